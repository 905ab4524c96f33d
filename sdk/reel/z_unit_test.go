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

package reel

import (
	"testing"
	"time"

	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/sdk/wit"
)

func testTable(t *testing.T) *wit.Table {
	t.Helper()
	tbl, err := wit.Build([]wit.BoxItem{
		{ItemKey: "A", DisplayName: "回收品", TicketWeight: 90000, UnitValue: 1},
		{ItemKey: "B", DisplayName: "紀念章", TicketWeight: 9000, UnitValue: 10},
		{ItemKey: "C", DisplayName: "典藏刀", TicketWeight: 1000, UnitValue: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func testPlans(t *testing.T, lanes int, jitter int) []LanePlan {
	t.Helper()
	tbl := testTable(t)
	c := core.New(core.Default().New(31337))
	pool := BuildFillerPool(tbl, 0)

	results := make([]resolve.Result, lanes)
	for i := range results {
		r, err := resolve.ByOutcome(tbl, 2.8, 99500)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = r
	}
	plans, err := PlanLanes(c, pool, results, jitter)
	if err != nil {
		t.Fatal(err)
	}
	return plans
}

func TestFillerPoolKeepsRareItems(t *testing.T) {
	tbl := testTable(t)
	pool := BuildFillerPool(tbl, 100)

	counts := make(map[int]int)
	for _, idx := range pool {
		counts[idx]++
	}
	// C 的權重壓縮後僅 1 格，但絕不可為 0。
	for i := 0; i < tbl.Len(); i++ {
		if counts[i] == 0 {
			t.Fatalf("item %d squeezed out of pool: %v", i, counts)
		}
	}
	if counts[0] <= counts[2] {
		t.Fatalf("pool ignores weights: %v", counts)
	}
}

func TestFillerSequenceLayout(t *testing.T) {
	tbl := testTable(t)
	c := core.New(core.Default().New(1))
	pool := BuildFillerPool(tbl, 0)

	seq, err := BuildFillerSequence(c, pool, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != TotalSlots {
		t.Fatalf("sequence length %d, want %d", len(seq), TotalSlots)
	}
	if seq[ResultSlot] != 2 {
		t.Fatalf("result slot holds %d, want 2", seq[ResultSlot])
	}
	for i, v := range seq {
		if v < 0 || v >= tbl.Len() {
			t.Fatalf("slot %d holds foreign index %d", i, v)
		}
	}

	if _, err := BuildFillerSequence(c, nil, 0); err == nil {
		t.Fatal("empty pool accepted")
	}
}

func TestPlanJitterBounded(t *testing.T) {
	plans := testPlans(t, 4, DefaultJitterMaxPx)
	for i, p := range plans {
		if p.JitterPx < -DefaultJitterMaxPx || p.JitterPx > DefaultJitterMaxPx {
			t.Fatalf("lane %d jitter %d out of ±%d", i, p.JitterPx, DefaultJitterMaxPx)
		}
	}
}

// 起始中心格必須是視窗中心的預設格，不能從第 0 格起跑。
func TestPlanLanesStartAtViewportCenter(t *testing.T) {
	plans := testPlans(t, 2, DefaultJitterMaxPx)
	for i, p := range plans {
		if p.StartIndex != DefaultStartSlot {
			t.Fatalf("lane %d start index %d, want %d", i, p.StartIndex, DefaultStartSlot)
		}
	}

	s, err := NewSession(Config{Fast: true}, plans, Events{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.LaneCount(); i++ {
		if got := s.Lane(i).Center(); got != DefaultStartSlot {
			t.Fatalf("lane %d initial center %d, want %d", i, got, DefaultStartSlot)
		}
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4000 && !s.Settled(); i++ {
		s.Advance(16 * time.Millisecond)
	}
	// 滑行距離縮短後，落點契約不變。
	for i := 0; i < s.LaneCount(); i++ {
		l := s.Lane(i)
		if l.Center() != ResultSlot {
			t.Fatalf("lane %d settled center %d, want %d", i, l.Center(), ResultSlot)
		}
		want := float64(DefaultItemSizePx * (ResultSlot - DefaultStartSlot))
		if l.Position() != want {
			t.Fatalf("lane %d settled position %v, want %v", i, l.Position(), want)
		}
	}
}

func TestSessionLaneCountBounds(t *testing.T) {
	if _, err := NewSession(Config{}, nil, Events{}); err == nil {
		t.Fatal("0 lanes accepted")
	}
	plans := testPlans(t, 4, 0)
	five := append(plans, plans[0])
	if _, err := NewSession(Config{}, five, Events{}); err == nil {
		t.Fatal("5 lanes accepted")
	}
}

// 定格時位置必須精確等於結果格位移，不受推進步長影響。
func TestFinalPositionExactUnderOddSteps(t *testing.T) {
	for _, step := range []time.Duration{
		16 * time.Millisecond,  // 60fps
		33 * time.Millisecond,  // 30fps
		7 * time.Millisecond,   // 不整除
		999 * time.Millisecond, // 粗步長
	} {
		plans := testPlans(t, 3, DefaultJitterMaxPx)
		s, err := NewSession(Config{Fast: true}, plans, Events{})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 4000 && !s.Settled(); i++ {
			s.Advance(step)
		}
		if !s.Settled() {
			t.Fatalf("step %v: session never settled", step)
		}
		for i := 0; i < s.LaneCount(); i++ {
			l := s.Lane(i)
			want := float64(DefaultItemSizePx * (ResultSlot - l.Plan().StartIndex))
			if l.Position() != want {
				t.Fatalf("step %v lane %d: position %v, want exactly %v", step, i, l.Position(), want)
			}
			if l.Center() != ResultSlot {
				t.Fatalf("step %v lane %d: center %d, want %d", step, i, l.Center(), ResultSlot)
			}
		}
	}
}

func TestPhaseOrderAndCenterEdges(t *testing.T) {
	plans := testPlans(t, 1, DefaultJitterMaxPx)
	var centers []int
	s, err := NewSession(Config{Fast: true}, plans, Events{
		CenterChanged: func(lane, idx int) { centers = append(centers, idx) },
	})
	if err != nil {
		t.Fatal(err)
	}

	if s.Lane(0).Phase() != PhaseIdle {
		t.Fatalf("pre-start phase %v, want idle", s.Lane(0).Phase())
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	sawCoast, sawSnap := false, false
	prev := s.Lane(0).Phase()
	for i := 0; i < 4000 && !s.Settled(); i++ {
		s.Advance(5 * time.Millisecond)
		cur := s.Lane(0).Phase()
		if cur < prev {
			t.Fatalf("phase went backwards: %v -> %v", prev, cur)
		}
		prev = cur
		if cur == PhaseCoasting {
			sawCoast = true
		}
		if cur == PhaseSnapping {
			sawSnap = true
		}
	}
	if !sawCoast || !sawSnap {
		t.Fatalf("missed phases: coast=%v snap=%v", sawCoast, sawSnap)
	}

	// 邊緣觸發：相鄰兩次事件的中心格必不相同。
	if len(centers) == 0 {
		t.Fatal("no center events during a full spin")
	}
	for i := 1; i < len(centers); i++ {
		if centers[i] == centers[i-1] {
			t.Fatalf("duplicate center event %d at position %d", centers[i], i)
		}
	}
	if centers[len(centers)-1] != ResultSlot {
		t.Fatalf("last center event %d, want %d", centers[len(centers)-1], ResultSlot)
	}
}

// 完成事件在最後一道定格後恰好發出一次。
func TestCompletedBarrierFiresOnce(t *testing.T) {
	plans := testPlans(t, 4, DefaultJitterMaxPx)
	fired := 0
	var got []resolve.Result
	s, err := NewSession(Config{Fast: true}, plans, Events{
		Completed: func(results []resolve.Result) {
			fired++
			got = results
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4000; i++ {
		s.Advance(16 * time.Millisecond)
	}
	if fired != 1 {
		t.Fatalf("Completed fired %d times, want 1", fired)
	}
	if len(got) != 4 {
		t.Fatalf("Completed carried %d results, want 4", len(got))
	}
	for i, r := range got {
		if r.Item.ItemKey != "C" {
			t.Fatalf("lane %d completed with %s, want C", i, r.Item.ItemKey)
		}
	}

	// 定格後繼續推進也不得再發。
	s.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("Completed re-fired after settle: %d", fired)
	}
}

func TestStartReentrantRejected(t *testing.T) {
	plans := testPlans(t, 2, 0)
	s, err := NewSession(Config{Fast: true}, plans, Events{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Advance(100 * time.Millisecond)
	if err := s.Start(); err == nil {
		t.Fatal("re-entrant Start accepted mid-spin")
	}

	for i := 0; i < 4000 && !s.Settled(); i++ {
		s.Advance(16 * time.Millisecond)
	}
	// 一場只演一次：定格後也不能重新啟動同一場。
	if err := s.Start(); err == nil {
		t.Fatal("replay of a finished session accepted")
	}
}

// 拆除後不得再發出任何事件。
func TestCloseSilencesEvents(t *testing.T) {
	plans := testPlans(t, 2, DefaultJitterMaxPx)
	events := 0
	s, err := NewSession(Config{Fast: true}, plans, Events{
		CenterChanged: func(lane, idx int) { events++ },
		Completed:     func([]resolve.Result) { events++ },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Advance(200 * time.Millisecond)
	if events == 0 {
		t.Fatal("no events before close, test premise broken")
	}

	s.Close()
	before := events
	for i := 0; i < 2000; i++ {
		s.Advance(16 * time.Millisecond)
	}
	if events != before {
		t.Fatalf("events after Close: %d new", events-before)
	}
	if err := s.Start(); err == nil {
		t.Fatal("Start accepted after Close")
	}
}

// 快速模式必須比一般模式早定格。
func TestFastModeShorter(t *testing.T) {
	advanceUntilSettled := func(fast bool) int {
		plans := testPlans(t, 1, 0)
		s, err := NewSession(Config{Fast: fast}, plans, Events{})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}
		steps := 0
		for !s.Settled() {
			s.Advance(16 * time.Millisecond)
			steps++
			if steps > 10000 {
				t.Fatal("never settled")
			}
		}
		return steps
	}
	if fastSteps, slowSteps := advanceUntilSettled(true), advanceUntilSettled(false); fastSteps >= slowSteps {
		t.Fatalf("fast mode (%d steps) not shorter than normal (%d steps)", fastSteps, slowSteps)
	}
}
