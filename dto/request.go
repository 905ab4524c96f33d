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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/spec"
)

type OpenRequest struct {
	UID      string   `json:"uid"`                // 唯一識別碼
	BoxName  string   `json:"box"`                // 要開的箱子
	BoxId    spec.BID `json:"bid"`                // 箱子編號
	Lanes    int      `json:"lanes"`              // 滾軸道數（1..4），缺省視為 1
	Outcomes []int    `json:"outcomes,omitempty"` // 伺服器給定的彩券值，每道一個
	Demo     bool     `json:"demo,omitempty"`     // 展示模式：彩券由本地亂數抽出
	Fast     bool     `json:"fast,omitempty"`     // 快速演出
	// Contract（強硬約束，避免雙重語意）：
	//   - demo 為 false 時 outcomes 必須提供且長度等於 lanes；真實開箱絕不用本地亂數。
	//   - demo 為 true 時 outcomes 必須省略；展示模式不可夾帶外部彩券。
	// 此約束在 Parse 檢查；Decode 只負責解碼。
}

// DecodeOpenRequest 會把 HTTP 請求解碼成 OpenRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（uid/box/bid/lanes/outcomes/demo/fast），
//     outcomes 以逗號分隔。適合展示與簡單測試。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何開箱合法性校驗；
//     合法性（BID 是否存在、outcomes 是否在彩券空間內）由上層（Opener/Runtime）決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
//   - POST 會開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeOpenRequest(r *http.Request) (*OpenRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(OpenRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.BoxName = q.Get("box")

		if s := q.Get("bid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid bid: %v", err))
			}
			req.BoxId = spec.BID(u)
		}

		if s := q.Get("lanes"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid lanes: %v", err))
			}
			req.Lanes = v
		}

		if s := q.Get("outcomes"); s != "" {
			parts := strings.Split(s, ",")
			req.Outcomes = make([]int, 0, len(parts))
			for _, p := range parts {
				v, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil {
					return nil, errs.NewWarn(fmt.Sprintf("invalid outcomes: %v", err))
				}
				req.Outcomes = append(req.Outcomes, v)
			}
		}

		if s := q.Get("demo"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid demo value " + err.Error())
			}
			req.Demo = v
		}

		if s := q.Get("fast"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errs.NewWarn("invalid fast value " + err.Error())
			}
			req.Fast = v
		}

		return req, nil

	case http.MethodPost:
		// 防止 body 過大（預設 1MiB）
		const maxBody = 1 << 20
		body := io.LimitReader(r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, errs.NewWarn("invalid json: " + err.Error())
		}
		return req, nil

	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// Parse 檢查解碼後請求的內部一致性，並把缺省欄位正規化。
// 表相關的合法性（彩券是否超界）不在這裡，由 Opener 對著表檢查。
func (or *OpenRequest) Parse() error {
	if or.Lanes == 0 {
		or.Lanes = 1
	}
	if or.Lanes < 1 || or.Lanes > 4 {
		return errs.Warnf("lanes %d out of range [1,4]", or.Lanes)
	}
	if or.Demo {
		if len(or.Outcomes) != 0 {
			return errs.NewWarn("demo request must not carry outcomes")
		}
		return nil
	}
	if len(or.Outcomes) != or.Lanes {
		return errs.Warnf("got %d outcomes for %d lanes", len(or.Outcomes), or.Lanes)
	}
	return nil
}
