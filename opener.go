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
	"crypto/rand"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/reel"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/sdk/wit"
	"github.com/zintix-labs/unboxlab/spec"
)

// Opener 開箱器，是對外提供 Open 的最小單位。
//
// 一台 Opener 綁定一個箱子設定與一顆 RNG 核心：
//   - 判定：彩券 -> 獎項 -> 分級（resolve）。
//   - 演出計畫：滾軸道序列、抖動、時長（reel）。
//
// 兩者在同一次 Open 內一次產出，判定先於演出。
//
// 併發語意：Opener 以 mutex 保證單台序列化；要水平擴展請用 OpenerPool
// 開多台（各自獨立 seed），而不是多 goroutine 共打同一台。
type Opener struct {
	boxName string
	boxId   spec.BID

	core    *core.Core
	table   *wit.Table
	setting *spec.BoxSetting
	denom   float64 // 每道計價基準
	pool    []int   // 滾軸填充池（表內索引）

	// 避免外部併發可能性 效能可受
	mu sync.Mutex

	// 初始種子紀錄
	initseed int64

	// demo 熱路徑的重用緩衝
	rBuf []resolve.Result
}

// newOpener 以 crypto/rand 產生的 seed 建立 Opener。
func newOpener(bs *spec.BoxSetting, cf core.PRNGFactory) (*Opener, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newOpenerWithSeed(bs, cf, seed.Int64())
}

// newOpenerWithSeed 以指定 seed 建立 Opener；測試與模擬用。
func newOpenerWithSeed(bs *spec.BoxSetting, cf core.PRNGFactory, seed int64) (*Opener, error) {
	if bs == nil {
		return nil, errs.NewFatal("box setting required")
	}
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}

	items := make([]wit.BoxItem, len(bs.Items))
	for i, it := range bs.Items {
		items[i] = wit.BoxItem{
			ItemKey:      it.ItemKey,
			DisplayName:  it.DisplayName,
			TicketWeight: it.TicketWeight,
			UnitValue:    it.UnitValue,
		}
	}
	table, err := wit.Build(items)
	if err != nil {
		return nil, err
	}

	c := core.New(cf.New(seed))
	return &Opener{
		boxName:  bs.BoxName,
		boxId:    bs.BoxID,
		core:     c,
		table:    table,
		setting:  bs,
		denom:    resolve.Denom(table, bs.FixedPrice),
		pool:     reel.BuildFillerPool(table, bs.Reel.FillerPoolSize),
		initseed: seed,
		rBuf:     make([]resolve.Result, 0, reel.MaxLanes),
	}, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

func (o *Opener) BoxName() string   { return o.boxName }
func (o *Opener) BoxId() spec.BID   { return o.boxId }
func (o *Opener) Denom() float64    { return o.denom }
func (o *Opener) Table() *wit.Table { return o.table }
func (o *Opener) InitSeed() int64   { return o.initseed }

// Open 執行一次完整開箱並回傳對外輸出。
//
// 流程（順序即是合約）：
//  1. 請求合法性：箱子識別必須命中本台（Warn）。
//  2. Parse：道數/展示模式/彩券數的一致性。
//  3. 開箱前快照（審計起點）。
//  4. 逐道判定：真實請求走 ByOutcome（彩券由呼叫端給定），
//     展示模式走 ByDemo（本地亂數）。兩條路徑絕不混用。
//  5. 產出各道演出計畫（序列 + 抖動）。
//  6. 開箱後快照（審計終點）。
//
// 任一道彩券超界整筆拒絕（Warn），核心已消耗的亂數不回滾——
// 判定路徑失敗時尚未消耗任何亂數，只有演出計畫會推進核心。
func (o *Opener) Open(r *dto.OpenRequest) (dto.OpenResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.valid(r); err != nil {
		return dto.OpenResult{}, err
	}
	if err := r.Parse(); err != nil {
		return dto.OpenResult{}, err
	}

	startSnap, err := o.core.Snapshot()
	if err != nil {
		return dto.OpenResult{}, errs.Wrap(err, "core snapshot failed before open")
	}

	results := make([]resolve.Result, r.Lanes)
	for i := 0; i < r.Lanes; i++ {
		var res resolve.Result
		var rerr error
		if r.Demo {
			res, rerr = resolve.ByDemo(o.core, o.table, o.denom)
		} else {
			res, rerr = resolve.ByOutcome(o.table, o.denom, r.Outcomes[i])
		}
		if rerr != nil {
			return dto.OpenResult{}, rerr
		}
		results[i] = res
	}

	plans, err := reel.PlanLanes(o.core, o.pool, results, o.setting.Reel.JitterMaxPx)
	if err != nil {
		return dto.OpenResult{}, err
	}

	afterSnap, err := o.core.Snapshot()
	if err != nil {
		return dto.OpenResult{}, errs.Wrap(err, "core snapshot failed after open")
	}

	return dto.NewOpenResult(o.boxName, o.boxId, r.Demo, plans, o.timing(r.Fast), startSnap, afterSnap)
}

// OpenInternal 模擬專用的判定熱路徑：只做逐道判定，不鋪演出計畫、
// 不取快照、不組 DTO。回傳的切片為內部重用緩衝，呼叫端必須在
// 下一次呼叫前消費完畢。
func (o *Opener) OpenInternal(lanes int) ([]resolve.Result, error) {
	if lanes < 1 || lanes > reel.MaxLanes {
		return nil, errs.Warnf("lanes %d out of range [1,%d]", lanes, reel.MaxLanes)
	}
	o.rBuf = o.rBuf[:0]
	for i := 0; i < lanes; i++ {
		res, err := resolve.ByDemo(o.core, o.table, o.denom)
		if err != nil {
			return nil, err
		}
		o.rBuf = append(o.rBuf, res)
	}
	return o.rBuf, nil
}

// BuildSession 以本台的時間設定把演出計畫組成一場 reel.Session。
// 展演端（前端模擬、壓測）用它驗證計畫真的能定格在結果格。
func (o *Opener) BuildSession(plans []reel.LanePlan, fast bool, events reel.Events) (*reel.Session, error) {
	return reel.NewSession(o.sessionConfig(fast), plans, events)
}

// PlanDemo 展示模式的一站式入口：判定 + 演出計畫，不經 DTO。
func (o *Opener) PlanDemo(lanes int) ([]reel.LanePlan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	results, err := o.OpenInternal(lanes)
	if err != nil {
		return nil, err
	}
	return reel.PlanLanes(o.core, o.pool, results, o.setting.Reel.JitterMaxPx)
}

// SnapshotCore 取得核心當前狀態快照。
func (o *Opener) SnapshotCore() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.core.Snapshot()
}

// RestoreCore 以快照還原核心狀態；審計回放用。
func (o *Opener) RestoreCore(snap []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.core.Restore(snap)
}

// ============================================================
// ** 以下內部方法 **
// ============================================================

// valid 確認請求目標就是本台：名稱或編號至少命中一個，命中的都要一致。
func (o *Opener) valid(r *dto.OpenRequest) error {
	if r == nil {
		return errs.NewWarn("nil open request")
	}
	if r.BoxName == "" && r.BoxId == 0 {
		return errs.NewWarn("request has no box identity")
	}
	if r.BoxName != "" && r.BoxName != o.boxName {
		return errs.Warnf("box name %q does not match opener %q", r.BoxName, o.boxName)
	}
	if r.BoxId != 0 && r.BoxId != o.boxId {
		return errs.Warnf("box id %d does not match opener %d", r.BoxId, o.boxId)
	}
	return nil
}

func (o *Opener) timing(fast bool) dto.ReelTimingDTO {
	rs := o.setting.Reel
	durMs := rs.DurationMs
	if fast {
		durMs = rs.FastDurationMs
	}
	return dto.ReelTimingDTO{
		ItemSizePx: rs.ItemSizePx,
		DurationMs: durMs,
		SnapMs:     rs.SnapDurationMs,
		Fast:       fast,
	}
}

func (o *Opener) sessionConfig(fast bool) reel.Config {
	rs := o.setting.Reel
	return reel.Config{
		ItemSizePx:   rs.ItemSizePx,
		Duration:     msDur(rs.DurationMs),
		FastDuration: msDur(rs.FastDurationMs),
		SnapDuration: msDur(rs.SnapDurationMs),
		Fast:         fast,
	}
}

func msDur(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
