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

package unboxlab

import (
	"context"
	"math"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/reel"
)

const demoBoxYAML = `
box_name: demo_box
box_id: 1001
fixed_price: 0
items:
  - item_key: scrap
    display_name: Scrap Metal
    ticket_weight: 90000
    unit_value: 1
  - item_key: blade
    display_name: Chrome Blade
    ticket_weight: 9000
    unit_value: 10
  - item_key: crown
    display_name: Golden Crown
    ticket_weight: 1000
    unit_value: 100
`

func demoFS() fstest.MapFS {
	return fstest.MapFS{
		"demo_box.yaml": &fstest.MapFile{Data: []byte(demoBoxYAML)},
	}
}

func demoLab(t *testing.T) *Unboxlab {
	t.Helper()
	lab, err := NewAuto(core.Default(), Configs(demoFS()))
	if err != nil {
		t.Fatal(err)
	}
	return lab
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Configs(demoFS())); err == nil {
		t.Fatal("nil factory accepted")
	}
	if _, err := New(core.Default(), nil); err == nil {
		t.Fatal("empty configs accepted")
	}
}

func TestRegisterAllAndLookup(t *testing.T) {
	lab := demoLab(t)

	ent, ok := lab.EntryById(1001)
	if !ok || ent.Name != "demo_box" || ent.ConfigName != "demo_box.yaml" {
		t.Fatalf("entry by id wrong: %+v ok=%v", ent, ok)
	}
	if _, ok := lab.EntryByName("Demo_Box"); !ok {
		t.Fatal("name lookup should be case-insensitive")
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 1 || sum[0].BID != 1001 || sum[0].ItemCount != 3 {
		t.Fatalf("summary wrong: %+v", sum)
	}
}

func TestRegisterAllDuplicateID(t *testing.T) {
	dup := demoFS()
	dup["other_box.yaml"] = &fstest.MapFile{Data: []byte(`
box_name: other_box
box_id: 1001
items:
  - item_key: x
    display_name: X
    ticket_weight: 1
    unit_value: 1
`)}
	lab, err := New(core.Default(), Configs(dup))
	if err != nil {
		t.Fatal(err)
	}
	if err := lab.RegisterAll(); err == nil {
		t.Fatal("duplicate box id across configs accepted")
	}
}

func TestOpenByOutcomeDeterministic(t *testing.T) {
	lab := demoLab(t)

	req := &dto.OpenRequest{BoxId: 1001, Lanes: 2, Outcomes: []int{0, 99999}}

	a, err := lab.NewOpenerWithSeed(1001, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := lab.NewOpenerWithSeed(1001, 42)
	if err != nil {
		t.Fatal(err)
	}

	ra, err := a.Open(req)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := b.Open(req)
	if err != nil {
		t.Fatal(err)
	}

	// 判定由彩券決定
	if ra.Lanes[0].ItemKey != "scrap" || ra.Lanes[1].ItemKey != "crown" {
		t.Fatalf("resolution wrong: %s / %s", ra.Lanes[0].ItemKey, ra.Lanes[1].ItemKey)
	}
	if math.Abs(ra.TotalPayout-101) > 1e-12 {
		t.Fatalf("TotalPayout = %v, want 101", ra.TotalPayout)
	}

	// 同 seed 同請求，演出計畫（序列/抖動）必須逐位一致
	if !reflect.DeepEqual(ra, rb) {
		t.Fatal("same seed produced different open results")
	}

	// 每道序列版型完整，結果格縫著判定結果
	want := []int{0, 2}
	for i, l := range ra.Lanes {
		if len(l.Sequence) != reel.TotalSlots {
			t.Fatalf("sequence len %d, want %d", len(l.Sequence), reel.TotalSlots)
		}
		if l.Sequence[l.ResultSlot] != want[i] {
			t.Fatalf("lane %d result slot holds %d, want %d", i, l.Sequence[l.ResultSlot], want[i])
		}
	}
}

func TestOpenRejections(t *testing.T) {
	lab := demoLab(t)
	o, err := lab.NewOpenerWithSeed(1001, 7)
	if err != nil {
		t.Fatal(err)
	}

	// 箱子識別不符
	if _, err := o.Open(&dto.OpenRequest{BoxId: 9999, Lanes: 1, Outcomes: []int{0}}); err == nil {
		t.Fatal("mismatched bid accepted")
	}
	// 彩券超界：整筆拒絕
	if _, err := o.Open(&dto.OpenRequest{BoxId: 1001, Lanes: 1, Outcomes: []int{100000}}); err == nil {
		t.Fatal("out-of-range outcome accepted")
	}
	// 真實請求缺彩券
	if _, err := o.Open(&dto.OpenRequest{BoxId: 1001, Lanes: 2, Outcomes: []int{1}}); err == nil {
		t.Fatal("lane/outcome mismatch accepted")
	}
	// 展示模式夾帶彩券
	if _, err := o.Open(&dto.OpenRequest{BoxId: 1001, Lanes: 1, Demo: true, Outcomes: []int{1}}); err == nil {
		t.Fatal("demo with outcomes accepted")
	}
}

func TestOpenSnapshotRoundTrip(t *testing.T) {
	lab := demoLab(t)
	o, err := lab.NewOpenerWithSeed(1001, 11)
	if err != nil {
		t.Fatal(err)
	}

	snap, err := o.SnapshotCore()
	if err != nil {
		t.Fatal(err)
	}
	req := &dto.OpenRequest{BoxId: 1001, Lanes: 1, Demo: true}

	r1, err := o.Open(req)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.RestoreCore(snap); err != nil {
		t.Fatal(err)
	}
	r2, err := o.Open(req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Fatal("restored core did not replay the same open")
	}
}

func TestBuildRuntime(t *testing.T) {
	lab := demoLab(t)
	rt, err := lab.BuildRuntime(2)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	res, err := rt.Open(ctx, &dto.OpenRequest{BoxId: 1001, Lanes: 1, Outcomes: []int{99999}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Lanes[0].ItemKey != "crown" {
		t.Fatalf("item = %s, want crown", res.Lanes[0].ItemKey)
	}

	// 以名稱路由
	if _, err := rt.Open(ctx, &dto.OpenRequest{BoxName: "demo_box", Lanes: 1, Demo: true}); err != nil {
		t.Fatal(err)
	}
	// 未知箱子
	if _, err := rt.Open(ctx, &dto.OpenRequest{BoxId: 4242, Lanes: 1, Demo: true}); err == nil {
		t.Fatal("unknown bid accepted")
	}

	ms := rt.Metrics()
	if len(ms) != 1 || ms[0].Opens < 2 {
		t.Fatalf("metrics wrong: %+v", ms)
	}

	rt.Close()
	if !rt.Closed() {
		t.Fatal("runtime should report closed")
	}
	if _, err := rt.Open(ctx, &dto.OpenRequest{BoxId: 1001, Lanes: 1, Demo: true}); err == nil {
		t.Fatal("open after close accepted")
	}
}

func TestOpenerPoolWarnKeepsOpener(t *testing.T) {
	lab := demoLab(t)
	rt, err := lab.BuildRuntime(1)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	ctx := context.Background()
	// Warn 級錯誤不重建機台
	for i := 0; i < 3; i++ {
		if _, err := rt.Open(ctx, &dto.OpenRequest{BoxId: 1001, Lanes: 1, Outcomes: []int{-1}}); err == nil {
			t.Fatal("negative outcome accepted")
		}
	}
	m := rt.Metrics()[0]
	if m.Rebuilds != 0 || m.Warns != 3 {
		t.Fatalf("warn path rebuilt opener: %+v", m)
	}
	// 池沒被打空，正常請求照常服務
	if _, err := rt.Open(ctx, &dto.OpenRequest{BoxId: 1001, Lanes: 1, Demo: true}); err != nil {
		t.Fatal(err)
	}
}

func TestSeedMaker(t *testing.T) {
	a := newSeedMaker(1)
	b := newSeedMaker(1)
	seen := map[int64]struct{}{}
	for i := 0; i < 1000; i++ {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatal("seed maker is not deterministic")
		}
		if va < 0 {
			t.Fatalf("negative seed %d", va)
		}
		if _, dup := seen[va]; dup {
			t.Fatalf("duplicate seed %d at %d", va, i)
		}
		seen[va] = struct{}{}
	}
}

func TestSimulatorSim(t *testing.T) {
	lab := demoLab(t)
	sim, err := lab.NewSimulatorWithSeed(1001, 99)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := sim.Sim(1, 10000, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Opens != 10000 || rep.Summary.LaneOpens != 10000 {
		t.Fatalf("open counts wrong: %+v", rep.Summary)
	}
	// fixed_price 缺省時 denom = 期望價值，長期 RTP 應收斂到 1
	if rep.Summary.RTP < 0.8 || rep.Summary.RTP > 1.2 {
		t.Fatalf("RTP = %v, want ~1.0", rep.Summary.RTP)
	}

	// 同 seed 重跑結果一致
	sim2, err := lab.NewSimulatorWithSeed(1001, 99)
	if err != nil {
		t.Fatal(err)
	}
	rep2, err := sim2.Sim(1, 10000, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.TotalPayout != rep2.Summary.TotalPayout {
		t.Fatal("same seed simulation diverged")
	}
}

func TestSimulatorSimMP(t *testing.T) {
	lab := demoLab(t)
	sim, err := lab.NewSimulatorWithSeed(1001, 7)
	if err != nil {
		t.Fatal(err)
	}

	rep, est, err := sim.SimMP(2, 5000, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Opens != 5000 || rep.Summary.LaneOpens != 10000 {
		t.Fatalf("merged counts wrong: %+v", rep.Summary)
	}
	if est == nil {
		t.Fatal("worker estimator missing")
	}
	if est.Median.Hat <= 0 {
		t.Fatalf("median rtp %v, want > 0", est.Median.Hat)
	}
}

func TestSimulatorPresent(t *testing.T) {
	lab := demoLab(t)
	sim, err := lab.NewSimulatorWithSeed(1001, 3)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := sim.SimPresent(4, 5, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Opens != 5 || rep.Completed != 5 {
		t.Fatalf("present counts wrong: %+v", rep)
	}
	if !rep.AllOnResult {
		t.Fatal("a lane settled off the result slot")
	}
	if rep.CenterEvents == 0 {
		t.Fatal("no center events observed")
	}
}

func TestSimulatorByYAML(t *testing.T) {
	lab := demoLab(t)
	// 與 catalog 註冊資料一致，放行
	if _, err := lab.NewSimulatorByYAML([]byte(demoBoxYAML), 1); err != nil {
		t.Fatal(err)
	}
	// 未註冊的箱子，拒絕
	raw := []byte(`
box_name: rogue_box
box_id: 777
items:
  - item_key: x
    display_name: X
    ticket_weight: 1
    unit_value: 1
`)
	if _, err := lab.NewSimulatorByYAML(raw, 1); err == nil {
		t.Fatal("unregistered setting accepted")
	}
}
