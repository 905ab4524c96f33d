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

// Package wit 實作加權獎項表 (Weighted Item Table)。
//
// 表是開箱的唯一機率真相：每個獎項持有 TicketWeight 張「彩券」，
// 一次開箱等價於從 [0, totalWeight) 均勻抽一張彩券，
// 落在哪個獎項的半開區間，就開出哪個獎項。
package wit

import (
	"fmt"
	"math"
	"sort"

	"github.com/zintix-labs/unboxlab/errs"
)

// ProbabilitySpace 為機率標示用的名目空間（十萬分率）。
// 僅用於顯示；實際判定一律以 totalWeight 正規化，與本常數無關。
const ProbabilitySpace = 100_000

// BoxItem 描述單一獎項。
type BoxItem struct {
	ItemKey      string  // 穩定識別鍵，表內唯一
	DisplayName  string  // 顯示名稱
	TicketWeight int     // 彩券張數，必須 >= 1
	UnitValue    float64 // 單件價值，必須 >= 0
}

// Table 為建好後不可變的獎項表。
// items 順序即定義順序；cum[i] 為前 i+1 項的權重前綴和，
// 獎項 i 的彩券區間為 [cum[i-1], cum[i])。
type Table struct {
	items []BoxItem
	cum   []int
	total int
}

// Build 驗證並建表。空表、非正權重、負價值、重複 ItemKey 一律拒絕。
func Build(items []BoxItem) (*Table, error) {
	if len(items) == 0 {
		return nil, errs.NewFatal("wit: empty item list")
	}

	seen := make(map[string]struct{}, len(items))
	cum := make([]int, len(items))
	total := 0
	for i, it := range items {
		if it.ItemKey == "" {
			return nil, errs.Fatalf("wit: item %d has empty key", i)
		}
		if _, dup := seen[it.ItemKey]; dup {
			return nil, errs.Fatalf("wit: duplicate item key %q", it.ItemKey)
		}
		seen[it.ItemKey] = struct{}{}
		if it.TicketWeight < 1 {
			return nil, errs.Fatalf("wit: item %q has non-positive weight %d", it.ItemKey, it.TicketWeight)
		}
		if it.UnitValue < 0 {
			return nil, errs.Fatalf("wit: item %q has negative value %v", it.ItemKey, it.UnitValue)
		}
		total += it.TicketWeight
		cum[i] = total
	}

	t := &Table{
		items: append([]BoxItem(nil), items...),
		cum:   cum,
		total: total,
	}
	return t, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// Len 回傳獎項數。
func (t *Table) Len() int { return len(t.items) }

// TotalWeight 回傳彩券總張數。
func (t *Table) TotalWeight() int { return t.total }

// Item 回傳第 i 個獎項（定義順序）。
func (t *Table) Item(i int) BoxItem { return t.items[i] }

// Items 回傳獎項切片的複本，保持表的不可變性。
func (t *Table) Items() []BoxItem {
	return append([]BoxItem(nil), t.items...)
}

// IndexOf 將一張彩券（outcome）判定為獎項索引：
// 回傳第一個滿足 outcome < cum[i] 的 i。
//
// 區間為半開 [cum[i-1], cum[i])，故每個獎項恰好對應 TicketWeight 張彩券，
// 邊界彩券屬於「下一個」獎項。outcome 超出 [0, totalWeight) 視為
// 呼叫端請求錯誤（Warn），絕不夾擠 (clamp) 到邊界。
func (t *Table) IndexOf(outcome int) (int, error) {
	if outcome < 0 || outcome >= t.total {
		return -1, errs.Warnf("wit: outcome %d out of range [0,%d)", outcome, t.total)
	}
	// 表建好後靜態且前綴和遞增，二分搜尋即可。
	i := sort.SearchInts(t.cum, outcome+1)
	return i, nil
}

// ExpectedValue 回傳一次開箱的期望價值 sum(p_i * value_i)。
func (t *Table) ExpectedValue() float64 {
	ev := 0.0
	for _, it := range t.items {
		ev += float64(it.TicketWeight) / float64(t.total) * it.UnitValue
	}
	return ev
}

// Probability 回傳獎項 i 的中獎機率。
func (t *Table) Probability(i int) float64 {
	return float64(t.items[i].TicketWeight) / float64(t.total)
}

// ProbabilityLabel 以十萬分率空間渲染獎項 i 的機率標示（顯示用）。
// 先將機率投影到 ProbabilitySpace 再換算百分比，
// 確保標示粒度固定為 0.001%，與表的實際 totalWeight 無關。
func (t *Table) ProbabilityLabel(i int) string {
	scaled := math.Round(t.Probability(i) * ProbabilitySpace)
	return fmt.Sprintf("%.3f%%", scaled*100/ProbabilitySpace)
}
