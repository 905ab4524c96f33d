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
	"time"

	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
)

// Events 為演出事件回呼。nil 回呼代表不訂閱。
//
// 事件為邊緣觸發：CenterChanged 只在中心格「變化」時發出；
// Completed 在全部滾軸道 Settled 後恰好發出一次。
type Events struct {
	CenterChanged func(lane int, centerIdx int)
	Completed     func(results []resolve.Result)
}

// Config 為單場演出的時間參數。零值欄位採用預設。
type Config struct {
	ItemSizePx   int           // 單格像素高度
	Duration     time.Duration // 滑行時長（一般模式）
	FastDuration time.Duration // 滑行時長（快速模式）
	SnapDuration time.Duration // 回正時長
	Fast         bool          // 快速模式
}

func (c *Config) fill() {
	if c.ItemSizePx <= 0 {
		c.ItemSizePx = DefaultItemSizePx
	}
	if c.Duration <= 0 {
		c.Duration = DefaultNormalDuration
	}
	if c.FastDuration <= 0 {
		c.FastDuration = DefaultFastDuration
	}
	if c.SnapDuration <= 0 {
		c.SnapDuration = DefaultSnapDuration
	}
}

// Session 為一場開箱演出：1..4 條滾軸道共用一個合成時鐘。
//
// 單執行緒協作式模型：呼叫端以 Advance(dt) 主動推進時間，
// Session 絕不自行讀牆上時鐘、不起 goroutine。
// 一場 Session 對應一次開箱；要改道數就從 Idle 重建新場。
type Session struct {
	lanes  []*Lane
	events Events

	started        bool
	completedFired bool
	closed         bool
}

// NewSession 建立一場演出。道數限 1..MaxLanes；各道序列版型必須一致。
func NewSession(cfg Config, plans []LanePlan, events Events) (*Session, error) {
	if len(plans) < 1 || len(plans) > MaxLanes {
		return nil, errs.Warnf("reel: lane count %d out of range [1,%d]", len(plans), MaxLanes)
	}
	cfg.fill()

	coast := float64(cfg.Duration.Milliseconds())
	if cfg.Fast {
		coast = float64(cfg.FastDuration.Milliseconds())
	}
	snap := float64(cfg.SnapDuration.Milliseconds())

	lanes := make([]*Lane, len(plans))
	for i, p := range plans {
		if len(p.Sequence) != TotalSlots {
			return nil, errs.Fatalf("reel: lane %d sequence has %d slots, want %d", i, len(p.Sequence), TotalSlots)
		}
		if p.Sequence[ResultSlot] != p.Result.ItemIndex {
			return nil, errs.Fatalf("reel: lane %d result slot holds item %d, want %d", i, p.Sequence[ResultSlot], p.Result.ItemIndex)
		}
		if p.StartIndex < 0 || p.StartIndex >= ResultSlot {
			return nil, errs.Fatalf("reel: lane %d start index %d out of range [0,%d)", i, p.StartIndex, ResultSlot)
		}
		lanes[i] = newLane(p, cfg.ItemSizePx, coast, snap)
	}

	return &Session{lanes: lanes, events: events}, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// LaneCount 回傳滾軸道數。
func (s *Session) LaneCount() int { return len(s.lanes) }

// Lane 回傳第 i 條滾軸道（唯讀視圖）。
func (s *Session) Lane(i int) *Lane { return s.lanes[i] }

// Settled 回傳是否全部滾軸道皆已定格。
func (s *Session) Settled() bool {
	for _, l := range s.lanes {
		if l.phase != PhaseSettled {
			return false
		}
	}
	return true
}

// Start 讓全部滾軸道進入滑行。
// 演出進行中重入呼叫一律拒絕（Warn）；已關閉的場不可再啟動。
func (s *Session) Start() error {
	if s.closed {
		return errs.NewWarn("reel: session already closed")
	}
	if s.started && !s.Settled() {
		return errs.NewWarn("reel: spin already in progress")
	}
	if s.started {
		return errs.NewWarn("reel: session already played, build a new one")
	}
	s.started = true
	for _, l := range s.lanes {
		l.start()
	}
	return nil
}

// Advance 在合成時鐘上推進 dt，逐道更新並發出事件。
//
// 事件發出前都會檢查存活旗標：Close 之後任何 Advance 都不得再發事件。
// 最後一條滾軸道定格的那次推進中，先發完該道的 CenterChanged，
// 才發唯一一次 Completed。
func (s *Session) Advance(dt time.Duration) {
	if s.closed || !s.started || dt <= 0 {
		return
	}

	ms := float64(dt) / float64(time.Millisecond)
	for i, l := range s.lanes {
		if l.advance(ms) {
			if s.closed {
				return
			}
			if s.events.CenterChanged != nil {
				s.events.CenterChanged(i, l.center)
			}
		}
	}

	if s.completedFired || s.closed || !s.Settled() {
		return
	}
	s.completedFired = true
	if s.events.Completed != nil {
		results := make([]resolve.Result, len(s.lanes))
		for i, l := range s.lanes {
			results[i] = l.plan.Result
		}
		s.events.Completed(results)
	}
}

// Close 拆除本場演出。之後不再發出任何事件，Start/Advance 皆為拒絕或無效。
// 可重複呼叫。
func (s *Session) Close() {
	s.closed = true
}

// Closed 回傳本場是否已拆除。
func (s *Session) Closed() bool { return s.closed }
