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

package catalog

import (
	"testing"
	"testing/fstest"
)

const boxYAML = `
box_name: demo_box
box_id: 1001
fixed_price: 2.5
items:
  - {item_key: A, display_name: a, ticket_weight: 90000, unit_value: 1}
  - {item_key: B, display_name: b, ticket_weight: 9000, unit_value: 10}
  - {item_key: C, display_name: c, ticket_weight: 1000, unit_value: 100}
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"box_a.yaml": &fstest.MapFile{Data: []byte(boxYAML)},
		"box_b.yaml": &fstest.MapFile{Data: []byte(boxYAML)},
	}
}

func TestRegisterAndLoad(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatal(err)
	}
	err = c.Register(
		Entry{BID: 1, Name: "Box A", ConfigName: "box_a.yaml"},
		Entry{BID: 2, Name: "box b", ConfigName: "box_b.yaml"},
	)
	if err != nil {
		t.Fatal(err)
	}

	// 名稱查詢大小寫/空白不敏感
	if _, ok := c.GetByName("  BOX A  "); !ok {
		t.Fatal("normalized name lookup failed")
	}

	bs, err := c.BoxSettingByID(1)
	if err != nil {
		t.Fatal(err)
	}
	if bs.BoxName != "demo_box" || len(bs.Items) != 3 {
		t.Fatalf("loaded setting wrong: %+v", bs)
	}

	ids := c.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids not stable-sorted: %v", ids)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	newCat := func() *Catalog {
		c, err := New(testFS())
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	c := newCat()
	if err := c.Register(
		Entry{BID: 1, Name: "a", ConfigName: "box_a.yaml"},
		Entry{BID: 1, Name: "b", ConfigName: "box_b.yaml"},
	); err == nil {
		t.Fatal("duplicate bid accepted in one batch")
	}

	c = newCat()
	if err := c.Register(Entry{BID: 1, Name: "a", ConfigName: "box_a.yaml"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(Entry{BID: 2, Name: "A", ConfigName: "box_b.yaml"}); err == nil {
		t.Fatal("duplicate normalized name accepted")
	}
	if err := c.Register(Entry{BID: 3, Name: "c", ConfigName: "box_a.yaml"}); err == nil {
		t.Fatal("duplicate config name accepted")
	}
	if err := c.Register(Entry{BID: 4, Name: "d", ConfigName: "missing.yaml"}); err == nil {
		t.Fatal("missing config accepted")
	}
}

func TestFreezeBlocksRegister(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatal(err)
	}
	c.Freeze()
	if !c.IsFrozen() {
		t.Fatal("IsFrozen false after Freeze")
	}
	if err := c.Register(Entry{BID: 1, Name: "a", ConfigName: "box_a.yaml"}); err == nil {
		t.Fatal("Register accepted after Freeze")
	}
}

func TestMultiFSRejectsSubdirsAndCrossDup(t *testing.T) {
	deep := fstest.MapFS{
		"sub/box.yaml": &fstest.MapFile{Data: []byte(boxYAML)},
	}
	if _, err := New(deep); err == nil {
		t.Fatal("nested config FS accepted")
	}

	a := fstest.MapFS{"same.yaml": &fstest.MapFile{Data: []byte(boxYAML)}}
	b := fstest.MapFS{"same.yaml": &fstest.MapFile{Data: []byte(boxYAML)}}
	if _, err := New(a, b); err == nil {
		t.Fatal("duplicate config across FS accepted")
	}
}
