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

import (
	"math"
	"testing"

	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/wit"
)

func demoTable(t *testing.T) *wit.Table {
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

// 門檻為含下界：恰好踩線要落在較高分級。
func TestTierOfInclusiveBounds(t *testing.T) {
	cases := []struct {
		mult float64
		want Tier
	}{
		{0, Common},
		{0.79, Common},
		{0.8, Uncommon},
		{1.7999, Uncommon},
		{1.8, Rare},
		{4.99, Rare},
		{5, Epic},
		{8.99, Epic},
		{9, Legendary},
		{120, Legendary},
	}
	for _, c := range cases {
		if got := TierOf(c.mult); got != c.want {
			t.Errorf("TierOf(%v) = %v, want %v", c.mult, got, c.want)
		}
	}
}

// 倍率遞增時分級不可能下降。
func TestTierMonotonic(t *testing.T) {
	prev := TierOf(0)
	for m := 0.0; m <= 12.0; m += 0.01 {
		cur := TierOf(m)
		if cur < prev {
			t.Fatalf("tier dropped from %v to %v at multiplier %v", prev, cur, m)
		}
		prev = cur
	}
}

func TestTierColors(t *testing.T) {
	want := map[Tier]string{
		Common: "white", Uncommon: "blue", Rare: "purple", Epic: "red", Legendary: "gold",
	}
	for tier, color := range want {
		if got := tier.Color(); got != color {
			t.Errorf("%v.Color() = %q, want %q", tier, got, color)
		}
	}
}

func TestByOutcomeDeterministic(t *testing.T) {
	tbl := demoTable(t)
	denom := Denom(tbl, 2.5) // 定價 2.5

	first, err := ByOutcome(tbl, denom, 99500)
	if err != nil {
		t.Fatal(err)
	}
	if first.Item.ItemKey != "C" {
		t.Fatalf("outcome 99500 resolved to %s, want C", first.Item.ItemKey)
	}
	if math.Abs(first.Multiplier-40) > 1e-12 {
		t.Fatalf("multiplier = %v, want 40", first.Multiplier)
	}
	if first.Tier != Legendary {
		t.Fatalf("tier = %v, want Legendary", first.Tier)
	}

	// 純函式：重複判定結果完全一致。
	for i := 0; i < 10; i++ {
		again, err := ByOutcome(tbl, denom, 99500)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("repeat resolve diverged: %+v vs %+v", again, first)
		}
	}
}

func TestByOutcomeRejectsOutOfRange(t *testing.T) {
	tbl := demoTable(t)
	if _, err := ByOutcome(tbl, 1, -1); err == nil {
		t.Fatal("negative outcome accepted")
	}
	if _, err := ByOutcome(tbl, 1, tbl.TotalWeight()); err == nil {
		t.Fatal("outcome == totalWeight accepted")
	}
}

func TestDenomFallsBackToExpectedValue(t *testing.T) {
	tbl := demoTable(t)
	if d := Denom(tbl, 0); math.Abs(d-tbl.ExpectedValue()) > 1e-12 {
		t.Fatalf("Denom(0) = %v, want EV %v", d, tbl.ExpectedValue())
	}
	if d := Denom(tbl, 3.3); d != 3.3 {
		t.Fatalf("Denom(3.3) = %v", d)
	}
}

func TestByDemoStaysInTable(t *testing.T) {
	tbl := demoTable(t)
	c := core.New(core.Default().New(2024))
	denom := Denom(tbl, 0)

	seen := make(map[string]int)
	for i := 0; i < 20000; i++ {
		r, err := ByDemo(c, tbl, denom)
		if err != nil {
			t.Fatal(err)
		}
		seen[r.Item.ItemKey]++
	}
	// 90/9/1 權重下兩萬次必然三項皆出現
	for _, key := range []string{"A", "B", "C"} {
		if seen[key] == 0 {
			t.Fatalf("item %s never drawn in 20000 demo opens: %v", key, seen)
		}
	}
	if seen["A"] < seen["B"] || seen["B"] < seen["C"] {
		t.Fatalf("draw frequencies ignore weights: %v", seen)
	}
}
