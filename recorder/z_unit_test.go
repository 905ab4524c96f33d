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
	"math"
	"testing"

	"github.com/zintix-labs/unboxlab/sdk/resolve"
)

func laneResult(payout, denom float64) resolve.Result {
	mult := payout / denom
	return resolve.Result{
		Payout:     payout,
		Multiplier: mult,
		Tier:       resolve.TierOf(mult),
	}
}

func TestNewOpenRecorderValidation(t *testing.T) {
	if _, err := NewOpenRecorder("b", 1, 0, 1); err == nil {
		t.Fatal("zero denom accepted")
	}
	if _, err := NewOpenRecorder("b", 1, 1, 0); err == nil {
		t.Fatal("zero lanes accepted")
	}
	if _, err := NewOpenRecorder("b", 1, 1, 5); err == nil {
		t.Fatal("5 lanes accepted")
	}
}

func TestRecordAndDone(t *testing.T) {
	r, err := NewOpenRecorder("demo", 1001, 2.0, 2)
	if err != nil {
		t.Fatal(err)
	}

	// 兩次開箱各兩道：派彩 1,10 / 1,100
	r.Record([]resolve.Result{laneResult(1, 2), laneResult(10, 2)})
	r.Record([]resolve.Result{laneResult(1, 2), laneResult(100, 2)})

	rep := r.Done()
	rep.Done()

	if rep.Summary.Opens != 2 || rep.Summary.LaneOpens != 4 {
		t.Fatalf("open counts wrong: %+v", rep.Summary)
	}
	if math.Abs(rep.Summary.TotalCost-8) > 1e-12 {
		t.Fatalf("TotalCost = %v, want 8", rep.Summary.TotalCost)
	}
	if math.Abs(rep.Summary.TotalPayout-112) > 1e-12 {
		t.Fatalf("TotalPayout = %v, want 112", rep.Summary.TotalPayout)
	}
	if math.Abs(rep.Summary.RTP-14) > 1e-12 {
		t.Fatalf("RTP = %v, want 14", rep.Summary.RTP)
	}

	// 倍率 0.5, 5, 0.5, 50 -> common x2, epic x1, legendary x1
	if rep.Tiers.Counts[resolve.Common] != 2 ||
		rep.Tiers.Counts[resolve.Epic] != 1 ||
		rep.Tiers.Counts[resolve.Legendary] != 1 {
		t.Fatalf("tier counts wrong: %v", rep.Tiers.Counts)
	}
	if math.Abs(rep.Summary.HitRate-0.5) > 1e-12 {
		t.Fatalf("HitRate = %v, want 0.5", rep.Summary.HitRate)
	}
}

func TestMergeOpenRecorder(t *testing.T) {
	a, _ := NewOpenRecorder("demo", 1, 2.0, 1)
	b, _ := NewOpenRecorder("demo", 1, 2.0, 1)
	a.Record([]resolve.Result{laneResult(1, 2)})
	b.Record([]resolve.Result{laneResult(10, 2)})
	b.Record([]resolve.Result{laneResult(100, 2)})

	m, err := MergeOpenRecorder([]*OpenRecorder{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if m.Basic.Opens != 3 || m.Basic.LaneOpens != 3 {
		t.Fatalf("merged counts wrong: %+v", m.Basic)
	}
	if math.Abs(m.Basic.TotalPayout-111) > 1e-12 {
		t.Fatalf("merged payout %v, want 111", m.Basic.TotalPayout)
	}
	wantSq := 0.25 + 25 + 2500
	if math.Abs(m.Basic.MultSqSum-wantSq) > 1e-9 {
		t.Fatalf("merged sq-sum %v, want %v", m.Basic.MultSqSum, wantSq)
	}

	// 異質 recorder 不可合併
	c, _ := NewOpenRecorder("other", 2, 2.0, 1)
	if _, err := MergeOpenRecorder([]*OpenRecorder{a, c}); err == nil {
		t.Fatal("merge across different boxes accepted")
	}
	d, _ := NewOpenRecorder("demo", 1, 3.0, 1)
	if _, err := MergeOpenRecorder([]*OpenRecorder{a, d}); err == nil {
		t.Fatal("merge across different denoms accepted")
	}
	if _, err := MergeOpenRecorder(nil); err == nil {
		t.Fatal("empty merge accepted")
	}
}
