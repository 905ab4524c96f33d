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
	"math"
	"testing"

	"github.com/zintix-labs/unboxlab/spec"
)

// buildStatReport 以每道派彩直接組一份報告：denom 自訂、單道開箱，
// 倍率即 payout/denom。獎級只粗分兩類：零派彩進 Common，其餘進 Rare。
func buildStatReport(denom float64, payouts []float64) *StatReport {
	var totalPayout, multSum, multSqSum float64
	noHit := 0
	counts := []int{0, 0, 0, 0, 0}
	for _, p := range payouts {
		m := p / denom
		totalPayout += p
		multSum += m
		multSqSum += m * m
		if p == 0 {
			noHit++
			counts[0]++
		} else {
			counts[2]++
		}
	}

	report := &StatReport{
		Summary: &SummaryReport{
			BoxName:     "test_box",
			BoxId:       spec.BID(0),
			Denom:       denom,
			Lanes:       1,
			Opens:       len(payouts),
			LaneOpens:   len(payouts),
			TotalCost:   denom * float64(len(payouts)),
			TotalPayout: totalPayout,
			NoHitOpens:  noHit,
		},
		Mult: &MultReport{
			MultSum:   multSum,
			MultSqSum: multSqSum,
		},
		Tiers: &TierReport{
			Labels: []string{"Common", "Uncommon", "Rare", "Epic", "Legendary"},
			Counts: counts,
		},
	}
	report.Done()
	return report
}

func TestStatReportCoreMetrics(t *testing.T) {
	denom := 2.5
	rep := buildStatReport(denom, []float64{2.5, 5.0})

	wantRTP := (2.5 + 5.0) / (2 * denom)
	if got := rep.Rtp(); math.Abs(got-wantRTP) > 1e-12 {
		t.Fatalf("RTP got %.12f want %.12f", got, wantRTP)
	}

	// 樣本標準差（n-1）與 CV 按定義手算比對
	m0 := 2.5 / denom
	m1 := 5.0 / denom
	variance := ((m0*m0 + m1*m1) - (m0+m1)*(m0+m1)/2) / (2 - 1)
	wantStd := math.Sqrt(max0(variance))
	if got := rep.Std(); math.Abs(got-wantStd) > 1e-12 {
		t.Fatalf("Std got %.12f want %.12f", got, wantStd)
	}

	wantCV := wantStd / wantRTP
	if got := rep.Cv(); math.Abs(got-wantCV) > 1e-12 {
		t.Fatalf("CV got %.12f want %.12f", got, wantCV)
	}

	// 獎級比率長度對齊，計數總和等於道次
	if len(rep.Tiers.Rates) != len(rep.Tiers.Counts) {
		t.Fatalf("tier rates length mismatch")
	}
	total := 0
	for _, c := range rep.Tiers.Counts {
		total += c
	}
	if total != rep.Summary.LaneOpens {
		t.Fatalf("tier counts total %d != lane opens %d", total, rep.Summary.LaneOpens)
	}

	// Done 必須冪等
	rep.Done()
	if rep.Rtp() != wantRTP {
		t.Fatalf("RTP changed after second Done")
	}
}

func TestStatReportHitRate(t *testing.T) {
	rep := buildStatReport(1, []float64{0, 0, 0, 4})
	if got := rep.Summary.HitRate; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("hit rate got %.4f want 0.25", got)
	}
	// 點估計必須落在自己的信賴區間內
	ci := rep.Summary.RtpCI
	if ci.Lo > rep.Summary.RTP || ci.Hi < rep.Summary.RTP {
		t.Fatalf("RTP %.4f outside its own CI [%.4f, %.4f]", rep.Summary.RTP, ci.Lo, ci.Hi)
	}
}

func TestEstimatorWorkerExp(t *testing.T) {
	// 100 份報告，RTP 均勻鋪 0.00 ~ 0.99
	reports := make([]*StatReport, 0, 100)
	for i := 0; i < 100; i++ {
		payout := float64(i) / 100.0 // denom=1、單次開箱 -> RTP = i/100
		reports = append(reports, buildStatReport(1, []float64{payout}))
	}

	est := EstimatorWorkerExp(reports)
	if math.Abs(est.Median.Hat-0.5) > 0.05 {
		t.Fatalf("median RTP expected ~0.5, got %.3f", est.Median.Hat)
	}
	if math.Abs(est.P90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 RTP expected ~0.9, got %.3f", est.P90.Hat)
	}
	if math.Abs(est.P10.Hat-0.1) > 0.05 {
		t.Fatalf("P10 RTP expected ~0.1, got %.3f", est.P10.Hat)
	}
	if est.Median.CI.Lo > est.Median.Hat || est.Median.CI.Hi < est.Median.Hat {
		t.Fatalf("median point %.3f outside CI [%.3f, %.3f]", est.Median.Hat, est.Median.CI.Lo, est.Median.CI.Hi)
	}
}

// 單 worker 是合法輸入（/v1/simworker 允許 workers=1，SimMP 也會把
// worker 數夾到 opens）：分位數退化成唯一樣本，區間塌縮，不得 panic。
func TestEstimatorWorkerExpSingleWorker(t *testing.T) {
	est := EstimatorWorkerExp([]*StatReport{buildStatReport(1, []float64{0.42})})

	for name, ps := range map[string]PointStat{
		"Median": est.Median,
		"P10":    est.P10,
		"P90":    est.P90,
	} {
		if math.Abs(ps.Hat-0.42) > 1e-12 {
			t.Fatalf("%s Hat got %.4f want 0.42", name, ps.Hat)
		}
		if ps.CI.Lo != ps.Hat || ps.CI.Hi != ps.Hat {
			t.Fatalf("%s CI [%.4f, %.4f] not collapsed onto the sole sample %.4f",
				name, ps.CI.Lo, ps.CI.Hi, ps.Hat)
		}
	}
}

// 兩份報告是 Beta 參數仍為正的最小樣本數，上下界必須夾住兩個樣本。
func TestEstimatorWorkerExpTwoWorkers(t *testing.T) {
	est := EstimatorWorkerExp([]*StatReport{
		buildStatReport(1, []float64{0.2}),
		buildStatReport(1, []float64{0.8}),
	})
	if est.Median.CI.Lo < 0.2-1e-12 || est.Median.CI.Hi > 0.8+1e-12 {
		t.Fatalf("median CI [%.4f, %.4f] escapes sample range [0.2, 0.8]",
			est.Median.CI.Lo, est.Median.CI.Hi)
	}
	if est.Median.Hat < 0.2 || est.Median.Hat > 0.8 {
		t.Fatalf("median Hat %.4f outside sample range", est.Median.Hat)
	}
}

func TestEstimatorWorkerExpEmpty(t *testing.T) {
	est := EstimatorWorkerExp(nil)
	if est == nil {
		t.Fatal("estimator must not be nil for empty input")
	}
	if est.Median.Hat != 0 {
		t.Fatalf("empty input median got %.3f want 0", est.Median.Hat)
	}
}

// --- helpers ---

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
