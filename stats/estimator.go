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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// EstimatorWorkers 多 worker 模擬的 RTP 分布敘事：
// 描述各 worker 會話各自體驗到的 RTP 落在哪裡。
type EstimatorWorkers struct {
	Median PointStat
	P10    PointStat
	P90    PointStat
}

// ============================================================
// ** 對外 **
// ============================================================

// EstimatorWorkerExp 以各 worker 的統計報告估計 RTP 分布。
// worker 數太少時區間會很寬，這是樣本量的誠實反映。
func EstimatorWorkerExp(sts []*StatReport) *EstimatorWorkers {
	n := len(sts)
	out := &EstimatorWorkers{}
	if n == 0 {
		return out
	}

	rtp := make([]float64, n)
	for i, s := range sts {
		rtp[i] = s.Rtp()
	}

	medLo, medHi := quantileCI(rtp, 0.5, 0.95)
	p10Lo, p10Hi := quantileCI(rtp, 0.10, 0.95)
	p90Lo, p90Hi := quantileCI(rtp, 0.90, 0.95)

	out.Median = PointStat{Hat: quantilePoint(rtp, 0.5), CI: CI{Lo: medLo, Hi: medHi}}
	out.P10 = PointStat{Hat: quantilePoint(rtp, 0.10), CI: CI{Lo: p10Lo, Hi: p10Hi}}
	out.P90 = PointStat{Hat: quantilePoint(rtp, 0.90), CI: CI{Lo: p90Lo, Hi: p90Hi}}
	return out
}

func (est *EstimatorWorkers) Out() {
	fmt.Println("=== RTP across workers ===")
	keys := []string{"Median RTP", "P10 RTP", "P90 RTP"}
	msg := map[string]string{
		"Median RTP": fmtHatCIpct01(est.Median.Hat, est.Median.CI),
		"P10 RTP":    fmtHatCIpct01(est.P10.Hat, est.P10.CI),
		"P90 RTP":    fmtHatCIpct01(est.P90.Hat, est.P90.CI),
	}
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界：把 order statistic 的秩視為二項，
// 經 Beta 反推 p 範圍後轉回樣本索引。
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	// n=1 時 order statistic 退化（Beta 參數會出現 0），
	// 區間只能塌縮成唯一樣本本身。
	if n == 1 {
		return cp[0], cp[0]
	}

	alpha := 1 - confidence
	k := int(q * float64(n))
	// 夾在 [1, n-1]，保證兩個 Beta 的參數皆為正。
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint 最近秩法分位數點估計。
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}
