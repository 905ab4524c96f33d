// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolve

// Tier 為獎項稀有度分級，由「倍率 = 獎項價值 / 計價基準」決定。
// 分級只是顯示層語彙（邊框顏色），不回饋到任何機率判定。
type Tier uint8

const (
	Common Tier = iota
	Uncommon
	Rare
	Epic
	Legendary
)

// 分級門檻（含下界）。唯一定義點：判定與顯示層都從這裡取。
const (
	LegendaryMinMult = 9.0
	EpicMinMult      = 5.0
	RareMinMult      = 1.8
	UncommonMinMult  = 0.8
)

var tierNames = map[Tier]string{
	Common:    "common",
	Uncommon:  "uncommon",
	Rare:      "rare",
	Epic:      "epic",
	Legendary: "legendary",
}

var tierColors = map[Tier]string{
	Common:    "white",
	Uncommon:  "blue",
	Rare:      "purple",
	Epic:      "red",
	Legendary: "gold",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "common"
}

// Color 回傳分級對應的邊框顏色名。
func (t Tier) Color() string {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return "white"
}

// TierOf 依倍率判定分級。門檻為含下界的階梯：
// >=9 傳說、>=5 史詩、>=1.8 稀有、>=0.8 罕見，其餘為普通。
func TierOf(multiplier float64) Tier {
	switch {
	case multiplier >= LegendaryMinMult:
		return Legendary
	case multiplier >= EpicMinMult:
		return Epic
	case multiplier >= RareMinMult:
		return Rare
	case multiplier >= UncommonMinMult:
		return Uncommon
	default:
		return Common
	}
}
