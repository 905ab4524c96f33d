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

// Package reel 實作滾軸演出控制器。
//
// 判定結果先於動畫存在；滾軸只是把既定結果「演」出來：
// 每條滾軸道鋪一段填充序列，把結果獎項縫在固定的結果格，
// 然後在合成時鐘上滑行 (coast) 至帶抖動的落點，再回正 (snap) 到
// 結果格的精確位置。整個模型單執行緒協作式，不碰牆上時鐘。
package reel

import (
	"time"

	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/sdk/wit"
)

const (
	// TotalSlots / ResultSlot 為序列版型契約：99 格，結果縫在第 90 格，
	// 結果格之後仍有 8 格填充，讓回正時畫面兩側不露空白。
	TotalSlots = 99
	ResultSlot = 90

	// DefaultStartSlot 為靜止時落在視窗中心的起始格。
	// 滑行距離即 (ResultSlot - DefaultStartSlot) 格。
	DefaultStartSlot = 49

	// MaxLanes 為單場演出的滾軸道數上限。
	MaxLanes = 4

	// DefaultItemSizePx 為單格像素高度的預設值。
	DefaultItemSizePx = 80

	// DefaultJitterMaxPx 為滑行落點抖動上限（±px）。
	DefaultJitterMaxPx = 55

	// 預設演出時長。
	DefaultNormalDuration = 5500 * time.Millisecond
	DefaultFastDuration   = 1500 * time.Millisecond
	DefaultSnapDuration   = 250 * time.Millisecond

	// defaultPoolSize 為填充池的目標格數。只是調校值，不是對外契約：
	// 池只決定填充畫面的質感，不影響任何判定。
	defaultPoolSize = 256
)

// BuildFillerPool 從獎項表展開一個有界填充池（元素為表內索引）。
//
// 權重等比壓縮到 poolSize 附近，但任何權重非零的獎項至少保留一格，
// 讓填充畫面看得到稀有獎項閃過。poolSize <= 0 時使用預設值。
func BuildFillerPool(table *wit.Table, poolSize int) []int {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	total := table.TotalWeight()
	pool := make([]int, 0, poolSize+table.Len())
	for i := 0; i < table.Len(); i++ {
		n := table.Item(i).TicketWeight * poolSize / total
		if n < 1 {
			n = 1
		}
		for k := 0; k < n; k++ {
			pool = append(pool, i)
		}
	}
	return pool
}

// BuildFillerSequence 鋪一條完整的滾軸道序列：
// TotalSlots 格全部由池中均勻抽樣，再把結果獎項縫在 ResultSlot。
// 回傳的序列建好後不再變動。
func BuildFillerSequence(c *core.Core, pool []int, resultItemIndex int) ([]int, error) {
	if len(pool) == 0 {
		return nil, errs.NewFatal("reel: empty filler pool")
	}
	seq := make([]int, TotalSlots)
	for i := range seq {
		seq[i] = c.Pick(pool)
	}
	seq[ResultSlot] = resultItemIndex
	return seq, nil
}

// LanePlan 為單條滾軸道的完整演出計畫，建好即凍結。
type LanePlan struct {
	Sequence   []int          // 滾軸道序列（表內索引），結果已縫在 ResultSlot
	StartIndex int            // 起始中心格
	JitterPx   int            // 滑行落點抖動（±px，帶號）
	Result     resolve.Result // 本道的既定結果
}

// PlanLanes 為一組判定結果產生各道演出計畫：
// 每道獨立鋪序列、獨立抽一個帶號抖動，起始中心格皆為 DefaultStartSlot。
func PlanLanes(c *core.Core, pool []int, results []resolve.Result, jitterMaxPx int) ([]LanePlan, error) {
	plans := make([]LanePlan, len(results))
	for i, r := range results {
		seq, err := BuildFillerSequence(c, pool, r.ItemIndex)
		if err != nil {
			return nil, err
		}
		plans[i] = LanePlan{
			Sequence:   seq,
			StartIndex: DefaultStartSlot,
			JitterPx:   c.JitterPx(jitterMaxPx),
			Result:     r,
		}
	}
	return plans, nil
}
