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
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/recorder"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/sdk/reel"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/spec"
	"github.com/zintix-labs/unboxlab/stats"
)

// Simulator 大量開箱模擬器。
//
// 單一 Simulator 綁定一個箱子設定，提供三種模擬：
//   - Sim    ：單機台序列模擬，量測 RTP/分級落點。
//   - SimMP  ：多 worker 平行模擬，每個 worker 獨立機台與紀錄員，
//     結束後合併並額外輸出跨 worker 的 RTP 分布敘事。
//   - SimPresent：演出驗證模擬，把每次開箱真的鋪成 reel.Session
//     並在合成時鐘上推進到定格，驗證演出層永遠落在結果格。
//
// 可重現性：initSeed 固定後，所有機台 seed 皆由 seedMaker 決定性派生，
// 同一 (設定, seed, 參數) 的模擬結果完全一致。
type Simulator struct {
	BoxName string
	BoxId   spec.BID

	bs *spec.BoxSetting
	cf core.PRNGFactory

	initSeed  int64
	seedmaker *seedMaker

	oBuf []*Opener
	rBuf []*recorder.OpenRecorder
}

// PresentReport 為演出驗證模擬的結果。
type PresentReport struct {
	Opens        int  // 完成的演出場數
	Lanes        int  // 每場道數
	CenterEvents int  // 收到的中心格變化事件總數
	Completed    int  // 收到的完成事件數（必須等於 Opens）
	AllOnResult  bool // 每場定格中心是否全部落在結果格
	Steps        int  // 合成時鐘推進總步數
}

func newSimulator(bs *spec.BoxSetting, cf core.PRNGFactory) (*Simulator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newSimulatorWithSeed(bs, cf, seed.Int64())
}

func newSimulatorWithSeed(bs *spec.BoxSetting, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	if bs == nil {
		return nil, errs.NewFatal("box setting required")
	}
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	return &Simulator{
		BoxName:   bs.BoxName,
		BoxId:     bs.BoxID,
		bs:        bs,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
	}, nil
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// InitSeed 回傳本次模擬的基準 seed，報表與重現用。
func (s *Simulator) InitSeed() int64 { return s.initSeed }

// Sim 單機台序列模擬：開 opens 次箱，每次 lanes 道。
func (s *Simulator) Sim(lanes, opens int, showpb bool) (*stats.StatReport, error) {
	if opens < 1 {
		return nil, errs.Warnf("opens %d must be >= 1", opens)
	}
	s.reset()

	o, r, err := s.newWorker(lanes)
	if err != nil {
		return nil, err
	}

	bar := pb.StartNew(opens)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < opens; i++ {
		results, err := o.OpenInternal(lanes)
		if err != nil {
			return nil, err
		}
		r.Record(results)
		bar.Increment()
	}
	bar.Finish()

	rep := r.Done()
	rep.Done()
	return rep, nil
}

// SimMP 多 worker 平行模擬。
//
// opens 盡量均分給 workers（餘數分給前幾個）；每個 worker 持有
// 獨立機台與獨立紀錄員，全程零共享、零鎖，結束後一次合併。
// 回傳合併後的總報表與跨 worker 的 RTP 分布估計。
func (s *Simulator) SimMP(lanes, opens, workers int, showpb bool) (*stats.StatReport, *stats.EstimatorWorkers, error) {
	if opens < 1 {
		return nil, nil, errs.Warnf("opens %d must be >= 1", opens)
	}
	if workers < 1 {
		return nil, nil, errs.Warnf("workers %d must be >= 1", workers)
	}
	if workers > opens {
		workers = opens
	}
	s.reset()

	for i := 0; i < workers; i++ {
		if _, _, err := s.newWorker(lanes); err != nil {
			return nil, nil, err
		}
	}

	bar := pb.StartNew(opens)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	share := opens / workers
	extra := opens % workers

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		n := share
		if w < extra {
			n++
		}
		wg.Add(1)
		go func(o *Opener, r *recorder.OpenRecorder, n int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				results, err := o.OpenInternal(lanes)
				if err != nil {
					errCh <- err
					return
				}
				r.Record(results)
				bar.Increment()
			}
		}(s.oBuf[w], s.rBuf[w], n)
	}
	wg.Wait()
	bar.Finish()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, nil, err
	}

	merged, err := recorder.MergeOpenRecorder(s.rBuf)
	if err != nil {
		return nil, nil, err
	}
	rep := merged.Done()
	rep.Done()

	// 跨 worker 的 RTP 分布：每個 worker 會話單獨成一份報表。
	wreps := make([]*stats.StatReport, len(s.rBuf))
	for i, r := range s.rBuf {
		wreps[i] = r.Done()
		wreps[i].Done()
	}
	return rep, stats.EstimatorWorkerExp(wreps), nil
}

// SimPresent 演出驗證模擬。
//
// 每次開箱都走完整路徑：判定 -> 演出計畫 -> reel.Session ->
// 以固定步長推進合成時鐘到全道定格。驗證重點：
//   - 每場恰好收到一次 Completed。
//   - 定格後每道中心格都是結果格（演出永遠忠實呈現判定）。
func (s *Simulator) SimPresent(lanes, opens int, fast, showpb bool) (*PresentReport, error) {
	if opens < 1 {
		return nil, errs.Warnf("opens %d must be >= 1", opens)
	}
	s.reset()

	o, _, err := s.newWorker(lanes)
	if err != nil {
		return nil, err
	}

	// 16ms 約等於 60fps 的影格間隔。
	const frame = 16 * time.Millisecond

	bar := pb.StartNew(opens)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	rep := &PresentReport{Lanes: lanes, AllOnResult: true}
	for i := 0; i < opens; i++ {
		plans, err := o.PlanDemo(lanes)
		if err != nil {
			return nil, err
		}

		completed := 0
		sess, err := o.BuildSession(plans, fast, reel.Events{
			CenterChanged: func(lane, centerIdx int) { rep.CenterEvents++ },
			Completed:     func([]resolve.Result) { completed++ },
		})
		if err != nil {
			return nil, err
		}
		if err := sess.Start(); err != nil {
			return nil, err
		}
		for !sess.Settled() {
			sess.Advance(frame)
			rep.Steps++
		}
		if completed != 1 {
			return nil, errs.Fatalf("presentation completed %d times, want exactly 1", completed)
		}
		for l := 0; l < sess.LaneCount(); l++ {
			if sess.Lane(l).Center() != reel.ResultSlot {
				rep.AllOnResult = false
			}
		}
		rep.Completed += completed
		rep.Opens++
		sess.Close()
		bar.Increment()
	}
	bar.Finish()
	return rep, nil
}

// ============================================================
// ** 以下內部方法 **
// ============================================================

// newWorker 建一組 (機台, 紀錄員) 並收進緩衝。
func (s *Simulator) newWorker(lanes int) (*Opener, *recorder.OpenRecorder, error) {
	o, err := newOpenerWithSeed(s.bs, s.cf, s.seedmaker.Next())
	if err != nil {
		return nil, nil, err
	}
	r, err := recorder.NewOpenRecorder(s.BoxName, s.BoxId, o.Denom(), lanes)
	if err != nil {
		return nil, nil, err
	}
	s.oBuf = append(s.oBuf, o)
	s.rBuf = append(s.rBuf, r)
	return o, r, nil
}

// reset 丟棄上一輪模擬的機台與紀錄員，seedmaker 續用（不回捲）。
func (s *Simulator) reset() {
	s.oBuf = s.oBuf[:0]
	s.rBuf = s.rBuf[:0]
}

// ============================================================
// ** seed 派生 **
// ============================================================

const (
	seedMul = 6364136223846793005
	seedInc = 1442695040888963407
	mask63  = 1<<63 - 1
)

// seedMaker 決定性派生子 seed。
//
// 狀態走一條 mod 2^63 的滿週期 LCG，輸出經 mix63 打散，
// 確保相鄰狀態的輸出毫無相關性。CAS 迴圈讓多 goroutine
// 併發取 seed 時也不會重複或跳號。
type seedMaker struct {
	state atomic.Int64
}

func newSeedMaker(seed int64) *seedMaker {
	sm := &seedMaker{}
	sm.state.Store(seed & mask63)
	return sm
}

func (sm *seedMaker) Next() int64 {
	for {
		old := sm.state.Load()
		next := (old*seedMul + seedInc) & mask63
		if sm.state.CompareAndSwap(old, next) {
			return mix63(next)
		}
	}
}

// mix63 為 splitmix64 的 63-bit 變體，雪崩效應讓輸出彼此獨立。
func mix63(x int64) int64 {
	z := uint64(x)
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z & mask63)
}
