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
	"github.com/zintix-labs/unboxlab/corefmt"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/reel"
	"github.com/zintix-labs/unboxlab/spec"
)

type OpenResult struct {
	BoxName     string         `json:"box"`          // 箱子名稱
	BoxID       spec.BID       `json:"bid"`          // 箱子編號
	Demo        bool           `json:"demo"`         // 是否展示模式
	TotalPayout float64        `json:"total_payout"` // 各道派彩合計
	Lanes       []LaneOpenDTO  `json:"lanes"`        // 每道的判定結果與演出計畫
	Timing      ReelTimingDTO  `json:"timing"`       // 本場演出時間參數
	State       OpenState      `json:"open_state"`   // 審計用核心快照
}

// LaneOpenDTO 為單道結果：先給判定，再附演出計畫。
type LaneOpenDTO struct {
	ItemKey     string  `json:"item_key"`
	DisplayName string  `json:"display_name"`
	Outcome     int     `json:"outcome"`
	Payout      float64 `json:"payout"`
	Multiplier  float64 `json:"multiplier"`
	Tier        string  `json:"tier"`
	TierColor   string  `json:"tier_color"`

	Sequence   []int `json:"sequence"`    // 滾軸道序列（表內索引）
	ResultSlot int   `json:"result_slot"` // 結果格
	StartIndex int   `json:"start_index"` // 起始中心格
	JitterPx   int   `json:"jitter_px"`   // 滑行落點抖動
}

type ReelTimingDTO struct {
	ItemSizePx int  `json:"item_size_px"`
	DurationMs int  `json:"duration_ms"` // 實際採用的滑行時長
	SnapMs     int  `json:"snap_ms"`
	Fast       bool `json:"fast"`
}

type OpenState struct {
	StartCoreSnapB64U string `json:"start_b64u"` // 必回
	AfterCoreSnapB64U string `json:"after_b64u"` // 必回
}

// NewOpenResult 把引擎產出的演出計畫轉為對外輸出。
// Sequence 直接引用計畫內的切片；計畫建好即凍結，無共享寫入問題。
func NewOpenResult(boxName string, bid spec.BID, demo bool,
	plans []reel.LanePlan, timing ReelTimingDTO, startSnap, afterSnap []byte) (OpenResult, error) {

	if len(plans) == 0 {
		return OpenResult{}, errs.NewWarn("open result has no lanes")
	}

	out := OpenResult{
		BoxName: boxName,
		BoxID:   bid,
		Demo:    demo,
		Timing:  timing,
		Lanes:   make([]LaneOpenDTO, len(plans)),
		State: OpenState{
			StartCoreSnapB64U: corefmt.EncodeBase64URL(startSnap),
			AfterCoreSnapB64U: corefmt.EncodeBase64URL(afterSnap),
		},
	}
	for i, p := range plans {
		r := p.Result
		out.TotalPayout += r.Payout
		out.Lanes[i] = LaneOpenDTO{
			ItemKey:     r.Item.ItemKey,
			DisplayName: r.Item.DisplayName,
			Outcome:     r.Outcome,
			Payout:      r.Payout,
			Multiplier:  r.Multiplier,
			Tier:        r.Tier.String(),
			TierColor:   r.Tier.Color(),
			Sequence:    p.Sequence,
			ResultSlot:  reel.ResultSlot,
			StartIndex:  p.StartIndex,
			JitterPx:    p.JitterPx,
		}
	}
	return out, nil
}
