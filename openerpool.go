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
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/spec"
)

// OpenerPool 單一箱子的開箱器池。
//
// 併發模型：
//   - pool channel 當作空閒佇列，借出/歸還都是 channel 操作，無鎖。
//   - 每台 Opener 有自己的 RNG 核心（由 seedMaker 派生獨立 seed），
//     彼此之間不共享任何可變狀態。
//   - 單次 Open 途中 panic 或 Fatal：該台直接棄置，丟進 broken 計數
//     並用新 seed 重建一台補回池內，服務不中斷。
//
// 關閉語意：Close 後所有借出都會立即失敗，池內機台陸續汲乾棄置。
type OpenerPool struct {
	bs *spec.BoxSetting
	cf core.PRNGFactory
	sm *seedMaker

	pool chan *Opener
	done chan struct{}

	closeOnce sync.Once
	reason    atomic.Value // string

	// 觀測計數
	inflight atomic.Int64
	opens    atomic.Int64
	rebuilds atomic.Int64
	panics   atomic.Int64
	fatals   atomic.Int64
	warns    atomic.Int64
}

// OpenerPoolMetrics 為池的觀測快照。
type OpenerPoolMetrics struct {
	BoxName  string   `json:"box"`
	BoxId    spec.BID `json:"bid"`
	Size     int      `json:"size"`
	Idle     int      `json:"idle"`
	Inflight int64    `json:"inflight"`
	Opens    int64    `json:"opens"`
	Rebuilds int64    `json:"rebuilds"`
	Panics   int64    `json:"panics"`
	Fatals   int64    `json:"fatals"`
	Warns    int64    `json:"warns"`
	Closed   bool     `json:"closed"`
	Reason   string   `json:"reason,omitempty"`
}

// newOpenerPool 建立並填滿一個池；任何一台建不起來就整池失敗。
func newOpenerPool(size int, bs *spec.BoxSetting, cf core.PRNGFactory, baseSeed int64) (*OpenerPool, error) {
	if size < 1 {
		return nil, errs.NewFatal("pool size must be >= 1")
	}
	p := &OpenerPool{
		bs:   bs,
		cf:   cf,
		sm:   newSeedMaker(baseSeed),
		pool: make(chan *Opener, size),
		done: make(chan struct{}),
	}
	p.reason.Store("")

	for i := 0; i < size; i++ {
		o, err := newOpenerWithSeed(bs, cf, p.sm.Next())
		if err != nil {
			return nil, err
		}
		p.pool <- o
	}
	return p, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// Open 借出一台 Opener 執行開箱，結束後視結果歸還或重建。
//
// 借出會同時監聽 ctx 與池關閉，兩者都能讓等待者立即離場。
// Warn 級錯誤（請求不合法、彩券超界）屬於正常業務路徑，
// 機台狀態未被污染，照常歸還。
func (p *OpenerPool) Open(ctx context.Context, r *dto.OpenRequest) (res dto.OpenResult, err error) {
	if p.Closed() {
		return dto.OpenResult{}, errs.NewWarn("opener pool already closed")
	}

	var o *Opener
	select {
	case <-ctx.Done():
		return dto.OpenResult{}, errs.Wrap(ctx.Err(), "open canceled while waiting for opener")
	case <-p.done:
		return dto.OpenResult{}, errs.NewWarn("opener pool already closed")
	case o = <-p.pool:
	}

	p.inflight.Add(1)
	defer func() {
		p.inflight.Add(-1)

		if rec := recover(); rec != nil {
			p.panics.Add(1)
			err = errs.Fatalf("opener panic recovered: %v", rec)
			p.replace()
			return
		}
		if err != nil && isFatalErr(err) {
			p.fatals.Add(1)
			p.replace()
			return
		}
		if err != nil {
			p.warns.Add(1)
		}
		p.giveBack(o)
	}()

	res, err = o.Open(r)
	if err == nil {
		p.opens.Add(1)
	}
	return res, err
}

// Metrics 回傳觀測快照。
func (p *OpenerPool) Metrics() OpenerPoolMetrics {
	reason, _ := p.reason.Load().(string)
	return OpenerPoolMetrics{
		BoxName:  p.bs.BoxName,
		BoxId:    p.bs.BoxID,
		Size:     cap(p.pool),
		Idle:     len(p.pool),
		Inflight: p.inflight.Load(),
		Opens:    p.opens.Load(),
		Rebuilds: p.rebuilds.Load(),
		Panics:   p.panics.Load(),
		Fatals:   p.fatals.Load(),
		Warns:    p.warns.Load(),
		Closed:   p.Closed(),
		Reason:   reason,
	}
}

// Close 關閉池並棄置所有空閒機台。可重複呼叫。
func (p *OpenerPool) Close() {
	p.closeWithReason("closed by caller")
}

// Closed 回傳池是否已關閉。
func (p *OpenerPool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ClosedReason 回傳關閉原因；未關閉時為空字串。
func (p *OpenerPool) ClosedReason() string {
	reason, _ := p.reason.Load().(string)
	return reason
}

// ============================================================
// ** 以下內部方法 **
// ============================================================

// replace 以新 seed 重建一台補回池內；池已關閉就放棄。
func (p *OpenerPool) replace() {
	if p.Closed() {
		return
	}
	o, err := newOpenerWithSeed(p.bs, p.cf, p.sm.Next())
	if err != nil {
		// 設定在建池時已驗證過，這裡失敗代表系統性問題，整池收掉。
		p.closeWithReason("opener rebuild failed: " + err.Error())
		return
	}
	p.rebuilds.Add(1)
	p.giveBack(o)
}

func (p *OpenerPool) giveBack(o *Opener) {
	select {
	case p.pool <- o:
	case <-p.done:
		// 關閉後不再歸還，機台直接棄置。
	}
}

func (p *OpenerPool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		p.reason.Store(reason)
		close(p.done)
		// 汲乾空閒機台，讓 GC 回收。
		for {
			select {
			case <-p.pool:
			default:
				return
			}
		}
	})
}

// isFatalErr 判斷錯誤是否為 Fatal 級（機台狀態不可信，需要重建）。
func isFatalErr(err error) bool {
	e, ok := errs.AsErr(err)
	if !ok {
		return true // 非分級錯誤一律視為最嚴重
	}
	return e.ErrLv == errs.Fatal
}
