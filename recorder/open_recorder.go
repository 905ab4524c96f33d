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

package recorder

import (
	"fmt"

	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/spec"
	"github.com/zintix-labs/unboxlab/stats"
)

// OpenRecorder 開箱紀錄員
//
// OpenRecorder 負責紀錄開箱結果，並透過 Done 輸出統計報表。
// 多 worker 模擬時每個 worker 各自持有一份，結束後 Merge。
type OpenRecorder struct {
	BoxName string
	BoxId   spec.BID
	Denom   float64 // 每道計價基準
	Lanes   int     // 每次開箱道數
	Basic   *BasicRecord
	Tiers   *TierRecord
}

// BasicRecord 基本開箱資料紀錄
type BasicRecord struct {
	Opens       int
	LaneOpens   int
	TotalCost   float64
	TotalPayout float64
	MultSum     float64
	MultSqSum   float64 // 平方和
}

// TierRecord 稀有度分級落點統計，每道一筆。
type TierRecord struct {
	Counts [int(resolve.Legendary) + 1]int
}

func NewOpenRecorder(name string, id spec.BID, denom float64, lanes int) (*OpenRecorder, error) {
	s := new(OpenRecorder)

	if denom <= 0 {
		return s, errs.NewFatal(fmt.Sprintf("denom err %v", denom))
	}
	if lanes < 1 || lanes > 4 {
		return s, errs.NewFatal(fmt.Sprintf("lanes err %d", lanes))
	}
	// 通過valid
	s.BoxName = name
	s.BoxId = id
	s.Denom = denom
	s.Lanes = lanes
	s.Basic = new(BasicRecord)
	s.Tiers = new(TierRecord)

	return s, nil
}

func MergeOpenRecorder(r []*OpenRecorder) (*OpenRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge open record err : empty input")
	}
	r0 := r[0]
	s, err := NewOpenRecorder(r0.BoxName, r0.BoxId, r0.Denom, r0.Lanes)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.BoxName != r0.BoxName {
			return s, errs.NewFatal("merge open record err : different box name")
		}
		if v.Denom != r0.Denom {
			return s, errs.NewFatal("merge open record err : different denom")
		}
		if v.Lanes != r0.Lanes {
			return s, errs.NewFatal("merge open record err : different lanes")
		}
		s.Basic.Opens += v.Basic.Opens
		s.Basic.LaneOpens += v.Basic.LaneOpens
		s.Basic.TotalCost += v.Basic.TotalCost
		s.Basic.TotalPayout += v.Basic.TotalPayout
		s.Basic.MultSum += v.Basic.MultSum
		s.Basic.MultSqSum += v.Basic.MultSqSum

		for i := range v.Tiers.Counts {
			s.Tiers.Counts[i] += v.Tiers.Counts[i]
		}
	}
	return s, nil
}

// Record 以單次開箱的各道判定結果更新統計。
func (s *OpenRecorder) Record(results []resolve.Result) {
	s.Basic.Opens++
	for _, r := range results {
		s.Basic.LaneOpens++
		s.Basic.TotalCost += s.Denom
		s.Basic.TotalPayout += r.Payout
		s.Basic.MultSum += r.Multiplier
		s.Basic.MultSqSum += r.Multiplier * r.Multiplier
		s.Tiers.Counts[r.Tier]++
	}
}

func (s *OpenRecorder) Done() *stats.StatReport {
	labels := make([]string, len(s.Tiers.Counts))
	counts := make([]int, len(s.Tiers.Counts))
	for i := range s.Tiers.Counts {
		labels[i] = resolve.Tier(i).String()
		counts[i] = s.Tiers.Counts[i]
	}

	return &stats.StatReport{
		Summary: &stats.SummaryReport{
			BoxName:     s.BoxName,
			BoxId:       s.BoxId,
			Denom:       s.Denom,
			Lanes:       s.Lanes,
			Opens:       s.Basic.Opens,
			LaneOpens:   s.Basic.LaneOpens,
			TotalCost:   s.Basic.TotalCost,
			TotalPayout: s.Basic.TotalPayout,
			NoHitOpens:  s.Tiers.Counts[resolve.Common],
		},
		Mult: &stats.MultReport{
			MultSum:   s.Basic.MultSum,
			MultSqSum: s.Basic.MultSqSum,
		},
		Tiers: &stats.TierReport{
			Labels: labels,
			Counts: counts,
		},
	}
}
