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

	"github.com/zintix-labs/unboxlab/catalog"
	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/spec"
)

// OpenRuntime 是服務期的執行中樞：每個已註冊箱子一個 OpenerPool，
// 依請求中的箱子識別路由到對應池。
//
// 生命週期：BuildRuntime 建立（catalog 已 Freeze）-> 服務期 Open ->
// Close 一次性拆除所有池。Close 之後一切請求立即拒絕。
type OpenRuntime struct {
	lab      *Unboxlab
	pools    map[spec.BID]*OpenerPool
	ids      []spec.BID
	poolSize int

	done      chan struct{}
	closeOnce sync.Once
	reason    atomic.Value // string
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// Open 依請求路由到對應箱子的池並執行開箱。
//
// 路由規則：優先用 BoxId；缺省時用 BoxName 反查 catalog。
// 兩者都缺視為請求錯誤（Warn）。
func (rt *OpenRuntime) Open(ctx context.Context, r *dto.OpenRequest) (dto.OpenResult, error) {
	if rt.Closed() {
		return dto.OpenResult{}, errs.NewWarn("runtime already closed: " + rt.ClosedReason())
	}
	if r == nil {
		return dto.OpenResult{}, errs.NewWarn("nil open request")
	}

	id := r.BoxId
	if id == 0 {
		if r.BoxName == "" {
			return dto.OpenResult{}, errs.NewWarn("request has no box identity")
		}
		ent, ok := rt.lab.EntryByName(r.BoxName)
		if !ok {
			return dto.OpenResult{}, errs.Warnf("unknown box name %q", r.BoxName)
		}
		id = ent.BID
	}

	pool, ok := rt.pools[id]
	if !ok {
		return dto.OpenResult{}, errs.Warnf("unknown box id %d", id)
	}
	return pool.Open(ctx, r)
}

// Summary 轉發 catalog 摘要（/v1/boxes 用）。
func (rt *OpenRuntime) Summary() ([]catalog.Summary, error) {
	return rt.lab.Summary()
}

// IDs 回傳服務中的箱子編號（穩定排序）。
func (rt *OpenRuntime) IDs() []spec.BID {
	return append([]spec.BID(nil), rt.ids...)
}

// Metrics 回傳各池的觀測快照。
func (rt *OpenRuntime) Metrics() []OpenerPoolMetrics {
	ms := make([]OpenerPoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		ms = append(ms, rt.pools[id].Metrics())
	}
	return ms
}

// Close 拆除所有池。可重複呼叫。
func (rt *OpenRuntime) Close() {
	rt.closeWithReason("closed by caller")
}

// Closed 回傳 runtime 是否已關閉。
func (rt *OpenRuntime) Closed() bool {
	select {
	case <-rt.done:
		return true
	default:
		return false
	}
}

// ClosedReason 回傳關閉原因；未關閉時為空字串。
func (rt *OpenRuntime) ClosedReason() string {
	reason, _ := rt.reason.Load().(string)
	return reason
}

// ============================================================
// ** 以下內部方法 **
// ============================================================

func (rt *OpenRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		rt.reason.Store(reason)
		close(rt.done)
		for _, p := range rt.pools {
			p.Close()
		}
	})
}
