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

package dto

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeOpenRequestGET(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/open?uid=u1&box=demo&bid=1001&lanes=3&outcomes=5,90000,99999&fast=true", nil)
	req, err := DecodeOpenRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.UID != "u1" || req.BoxName != "demo" || req.BoxId != 1001 {
		t.Fatalf("identity fields wrong: %+v", req)
	}
	if req.Lanes != 3 || len(req.Outcomes) != 3 || req.Outcomes[2] != 99999 {
		t.Fatalf("lanes/outcomes wrong: %+v", req)
	}
	if !req.Fast || req.Demo {
		t.Fatalf("flags wrong: %+v", req)
	}
	if err := req.Parse(); err != nil {
		t.Fatalf("consistent request rejected: %v", err)
	}
}

func TestDecodeOpenRequestGETBadValues(t *testing.T) {
	for _, q := range []string{
		"bid=abc",
		"lanes=x",
		"outcomes=1,two,3",
		"demo=maybe",
		"fast=2x",
	} {
		r := httptest.NewRequest("GET", "/v1/open?"+q, nil)
		if _, err := DecodeOpenRequest(r); err == nil {
			t.Errorf("query %q accepted", q)
		}
	}
}

func TestDecodeOpenRequestPOSTStrict(t *testing.T) {
	body := `{"uid":"u1","box":"demo","bid":7,"lanes":2,"outcomes":[1,2]}`
	r := httptest.NewRequest("POST", "/v1/open", strings.NewReader(body))
	req, err := DecodeOpenRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.BoxId != 7 || req.Lanes != 2 {
		t.Fatalf("decode wrong: %+v", req)
	}

	// 未知欄位必須嚴格拒絕
	bad := `{"uid":"u1","surprise":true}`
	r = httptest.NewRequest("POST", "/v1/open", strings.NewReader(bad))
	if _, err := DecodeOpenRequest(r); err == nil {
		t.Fatal("unknown field accepted")
	}

	r = httptest.NewRequest("DELETE", "/v1/open", nil)
	if _, err := DecodeOpenRequest(r); err == nil {
		t.Fatal("method DELETE accepted")
	}
}

func TestParseContract(t *testing.T) {
	cases := []struct {
		name string
		req  OpenRequest
		ok   bool
	}{
		{"default one lane demo", OpenRequest{Demo: true}, true},
		{"real with matching outcomes", OpenRequest{Lanes: 2, Outcomes: []int{1, 2}}, true},
		{"real missing outcomes", OpenRequest{Lanes: 2}, false},
		{"real outcome count mismatch", OpenRequest{Lanes: 3, Outcomes: []int{1}}, false},
		{"demo with outcomes", OpenRequest{Demo: true, Outcomes: []int{1}}, false},
		{"too many lanes", OpenRequest{Lanes: 5, Demo: true}, false},
		{"negative lanes", OpenRequest{Lanes: -1, Demo: true}, false},
	}
	for _, c := range cases {
		err := c.req.Parse()
		if c.ok && err != nil {
			t.Errorf("%s: rejected: %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: accepted", c.name)
		}
	}
}

func TestParseDefaultsLanes(t *testing.T) {
	req := OpenRequest{Outcomes: []int{42}}
	if err := req.Parse(); err != nil {
		t.Fatal(err)
	}
	if req.Lanes != 1 {
		t.Fatalf("Lanes defaulted to %d, want 1", req.Lanes)
	}
}
