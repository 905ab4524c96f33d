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

package wit

import (
	"math"
	"testing"

	"github.com/zintix-labs/unboxlab/errs"
)

func demoItems() []BoxItem {
	return []BoxItem{
		{ItemKey: "A", DisplayName: "回收品", TicketWeight: 90000, UnitValue: 1},
		{ItemKey: "B", DisplayName: "紀念章", TicketWeight: 9000, UnitValue: 10},
		{ItemKey: "C", DisplayName: "典藏刀", TicketWeight: 1000, UnitValue: 100},
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		items []BoxItem
	}{
		{"empty", nil},
		{"zero weight", []BoxItem{{ItemKey: "A", TicketWeight: 0, UnitValue: 1}}},
		{"negative weight", []BoxItem{{ItemKey: "A", TicketWeight: -3, UnitValue: 1}}},
		{"negative value", []BoxItem{{ItemKey: "A", TicketWeight: 1, UnitValue: -1}}},
		{"empty key", []BoxItem{{ItemKey: "", TicketWeight: 1, UnitValue: 1}}},
		{"dup key", []BoxItem{
			{ItemKey: "A", TicketWeight: 1, UnitValue: 1},
			{ItemKey: "A", TicketWeight: 2, UnitValue: 2},
		}},
	}
	for _, c := range cases {
		if _, err := Build(c.items); err == nil {
			t.Errorf("%s: Build accepted invalid input", c.name)
		} else if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Fatal {
			t.Errorf("%s: want Fatal errs.E, got %v", c.name, err)
		}
	}
}

// 每張彩券恰好落在一個獎項，且每個獎項恰好收到 TicketWeight 張。
func TestIndexOfPartitionsTicketSpace(t *testing.T) {
	tbl, err := Build(demoItems())
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, tbl.Len())
	for outcome := 0; outcome < tbl.TotalWeight(); outcome++ {
		i, err := tbl.IndexOf(outcome)
		if err != nil {
			t.Fatalf("outcome %d: %v", outcome, err)
		}
		counts[i]++
	}
	for i, it := range tbl.Items() {
		if counts[i] != it.TicketWeight {
			t.Fatalf("item %s got %d tickets, want %d", it.ItemKey, counts[i], it.TicketWeight)
		}
	}
}

// 邊界彩券屬於下一個獎項（半開區間）。
func TestIndexOfBoundaries(t *testing.T) {
	tbl, err := Build(demoItems())
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		outcome int
		want    int
	}{
		{0, 0},
		{89999, 0},
		{90000, 1}, // A/B 邊界：屬於 B
		{98999, 1},
		{99000, 2}, // B/C 邊界：屬於 C
		{99999, 2},
	}
	for _, c := range cases {
		got, err := tbl.IndexOf(c.outcome)
		if err != nil {
			t.Fatalf("outcome %d: %v", c.outcome, err)
		}
		if got != c.want {
			t.Errorf("IndexOf(%d) = %d, want %d", c.outcome, got, c.want)
		}
	}
}

func TestIndexOfRejectsOutOfRange(t *testing.T) {
	tbl, err := Build(demoItems())
	if err != nil {
		t.Fatal(err)
	}
	for _, outcome := range []int{-1, 100000, 250000} {
		if _, err := tbl.IndexOf(outcome); err == nil {
			t.Errorf("IndexOf(%d) accepted out-of-range outcome", outcome)
		} else if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Warn {
			t.Errorf("IndexOf(%d): want Warn errs.E, got %v", outcome, err)
		}
	}
}

func TestExpectedValueAndProbability(t *testing.T) {
	tbl, err := Build(demoItems())
	if err != nil {
		t.Fatal(err)
	}

	// 0.9*1 + 0.09*10 + 0.01*100 = 2.8
	if ev := tbl.ExpectedValue(); math.Abs(ev-2.8) > 1e-12 {
		t.Fatalf("ExpectedValue = %v, want 2.8", ev)
	}
	if p := tbl.Probability(2); math.Abs(p-0.01) > 1e-12 {
		t.Fatalf("Probability(C) = %v, want 0.01", p)
	}
	if label := tbl.ProbabilityLabel(2); label != "1.000%" {
		t.Fatalf("ProbabilityLabel(C) = %q, want 1.000%%", label)
	}
	if label := tbl.ProbabilityLabel(0); label != "90.000%" {
		t.Fatalf("ProbabilityLabel(A) = %q, want 90.000%%", label)
	}
}

// 表的機率只由權重比例決定，與 totalWeight 是否等於名目空間無關。
func TestProbabilityIndependentOfSpace(t *testing.T) {
	small, err := Build([]BoxItem{
		{ItemKey: "X", TicketWeight: 9, UnitValue: 1},
		{ItemKey: "Y", TicketWeight: 1, UnitValue: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := small.Probability(1); math.Abs(p-0.1) > 1e-12 {
		t.Fatalf("Probability(Y) = %v, want 0.1", p)
	}
	if _, err := small.IndexOf(10); err == nil {
		t.Fatal("outcome beyond totalWeight accepted")
	}
	i, err := small.IndexOf(9)
	if err != nil || i != 1 {
		t.Fatalf("IndexOf(9) = %d,%v, want 1,nil", i, err)
	}
}
