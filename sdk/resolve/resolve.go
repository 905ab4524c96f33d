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

// Package resolve 將一張彩券（outcome）判定為完整的開箱結果。
//
// 判定是純函式：相同的 (表, 計價基準, outcome) 永遠得到相同結果，
// 動畫與顯示層只是把既定結果演出來，絕不回頭影響判定。
package resolve

import (
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/wit"
)

// Result 為單次開箱的完整判定結果。
type Result struct {
	ItemIndex  int         // 表內索引
	Item       wit.BoxItem // 開出的獎項
	Outcome    int         // 判定用的彩券值
	Payout     float64     // 獎項價值
	Multiplier float64     // Payout / 計價基準
	Tier       Tier        // 稀有度分級
}

// Denom 回傳計價基準：箱子定價 > 0 時用定價，否則退回表的期望價值。
func Denom(table *wit.Table, fixedPrice float64) float64 {
	if fixedPrice > 0 {
		return fixedPrice
	}
	return table.ExpectedValue()
}

// ByOutcome 以伺服器給定的彩券值判定結果。決定性、無副作用。
func ByOutcome(table *wit.Table, denom float64, outcome int) (Result, error) {
	idx, err := table.IndexOf(outcome)
	if err != nil {
		return Result{}, err
	}
	item := table.Item(idx)

	mult := 0.0
	if denom > 0 {
		mult = item.UnitValue / denom
	}
	return Result{
		ItemIndex:  idx,
		Item:       item,
		Outcome:    outcome,
		Payout:     item.UnitValue,
		Multiplier: mult,
		Tier:       TierOf(mult),
	}, nil
}

// ByDemo 以本地 core 均勻抽一張彩券後判定，僅供展示/模擬模式。
//
// 與 ByOutcome 刻意分開：真實開箱的彩券必須來自伺服器，
// 展示模式的本地亂數絕不能流入真實路徑。
func ByDemo(c *core.Core, table *wit.Table, denom float64) (Result, error) {
	outcome := c.IntN(table.TotalWeight())
	return ByOutcome(table, denom, outcome)
}
