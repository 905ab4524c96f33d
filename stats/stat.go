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
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/unboxlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// StatReport 開箱統計報告
type StatReport struct {
	Summary *SummaryReport `json:"Summary"`
	Mult    *MultReport    `json:"Mult"`
	Tiers   *TierReport    `json:"Tiers"`
	isDone  bool
}

type SummaryReport struct {
	BoxName     string   `json:"BoxName"`
	BoxId       spec.BID `json:"BoxId"`
	Denom       float64  `json:"Denom"` // 每道計價基準
	Lanes       int      `json:"Lanes"` // 每次開箱道數
	Opens       int      `json:"Opens"` // 開箱次數
	LaneOpens   int      `json:"LaneOpens"`
	TotalCost   float64  `json:"TotalCost"`
	TotalPayout float64  `json:"TotalPayout"`
	RTP         float64  `json:"RTP"`
	RtpCI       CI       `json:"RtpCI"`
	Std         float64  `json:"Std"`
	Cv          float64  `json:"Cv"`
	NoHitOpens  int      `json:"NoHitOpens"` // 普通級（白框）道數
	HitRate     float64  `json:"HitRate"`    // 罕見以上的比例
}

// MultReport 倍率統計
//
// 紀錄過程只累加合計與平方和，避免逐筆轉型成本；Done() 時一次性整理。
type MultReport struct {
	MultSum   float64 `json:"MultSum"`
	MultSqSum float64 `json:"MultSqSum"` // 平方和
}

// TierReport 稀有度分級落點統計，每道一筆。
type TierReport struct {
	Labels []string    `json:"Labels"`
	Counts []int       `json:"Counts"`
	Rates  []float64   `json:"Rates"`
	RateCI []PointStat `json:"RateCI"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 統計過程只做累加，完成後呼叫 Done 一次性計算 RTP、信賴區間與分級比例。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	s.Summary.RTP = s.Rtp()
	s.Summary.RtpCI = s.Ci()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()
	if s.Summary.LaneOpens > 0 {
		s.Summary.HitRate = 1.0 - float64(s.Summary.NoHitOpens)/float64(s.Summary.LaneOpens)
	}

	n := s.Summary.LaneOpens
	s.Tiers.Rates = make([]float64, len(s.Tiers.Counts))
	s.Tiers.RateCI = make([]PointStat, len(s.Tiers.Counts))
	for i, c := range s.Tiers.Counts {
		if n > 0 {
			s.Tiers.Rates[i] = float64(c) / float64(n)
		}
		hat, ci := proportionCICP(c, n, 0.95)
		s.Tiers.RateCI[i] = PointStat{Hat: hat, CI: ci}
	}

	s.isDone = true
}

// Rtp 回傳整體 RTP（總派彩 / 總成本）
func (s *StatReport) Rtp() float64 {
	if s.Summary.LaneOpens == 0 || s.Summary.TotalCost == 0 {
		return 0
	}
	return s.Summary.TotalPayout / s.Summary.TotalCost
}

// Std 回傳單道倍率的標準差
func (s *StatReport) Std() float64 {
	n := s.Summary.LaneOpens
	if n < 2 {
		return 0
	}
	nf := float64(n)
	variance := (s.Mult.MultSqSum - s.Mult.MultSum*s.Mult.MultSum/nf) / (nf - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Cv 回傳單道倍率的變異係數
func (s *StatReport) Cv() float64 {
	rtp := s.Rtp()
	std := s.Std()
	if rtp <= 0 {
		return 0
	}
	return std / rtp
}

// Ci 回傳(95% Rtp)信賴區間
func (s *StatReport) Ci() CI {
	rtp := s.Rtp()
	std := s.Std()
	rtpSe := float64(0)
	if s.Summary.LaneOpens > 1 {
		rtpSe = std / math.Sqrt(float64(s.Summary.LaneOpens))
	}
	return CI{
		Lo: max(rtp-1.96*rtpSe, 0.0),
		Hi: rtp + 1.96*rtpSe,
	}
}

func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	formatDuration(ut, s.Summary.Opens)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.BoxName, sk, sm)
	fmt.Println(str)

	tk, tm := s.fmtTiers()
	fmt.Println(fmtTable("Tier Distribution", tk, tm))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, opens int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	ops := int(float64(opens) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nops : %d opens/sec\n", sec, ops)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\nops : %d opens/sec\n", m, s, ops)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nops : %d opens/sec\n", h, m, s, ops)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Box Name":     p.Sprintf("%s", s.Summary.BoxName),
		"Box ID":       fmt.Sprintf("%d", s.Summary.BoxId),
		"Lanes":        p.Sprintf("%d", s.Summary.Lanes),
		"Total Opens":  p.Sprintf("%d", s.Summary.Opens),
		"Lane Opens":   p.Sprintf("%d", s.Summary.LaneOpens),
		"Denom":        p.Sprintf("%.4f", s.Summary.Denom),
		"Total Cost":   p.Sprintf("%.2f", s.Summary.TotalCost),
		"Total Payout": p.Sprintf("%.2f", s.Summary.TotalPayout),
		"Total RTP":    p.Sprintf("%.2f %%", 100.0*s.Summary.RTP),
		"RTP 95% CI":   p.Sprintf("[%.2f%%,%.2f%%]", 100.0*s.Summary.RtpCI.Lo, 100.0*s.Summary.RtpCI.Hi),
		"Hit Rate":     p.Sprintf("%.2f %%", 100.0*s.Summary.HitRate),
		"STD":          p.Sprintf("%.3f", s.Summary.Std),
		"CV":           p.Sprintf("%.3f", s.Summary.Cv),
	}
	keys := []string{"Box Name", "Box ID", "Lanes", "Total Opens", "Lane Opens", "Denom", "Total Cost", "Total Payout", "Total RTP", "RTP 95% CI", "Hit Rate", "STD", "CV"}
	return keys, basic
}

func (s *StatReport) fmtTiers() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, len(s.Tiers.Labels))
	msg := make(map[string]string, len(s.Tiers.Labels))
	for i, label := range s.Tiers.Labels {
		ps := s.Tiers.RateCI[i]
		keys[i] = label
		msg[label] = p.Sprintf("%d  %.4f%% [%.4f%%, %.4f%%]",
			s.Tiers.Counts[i], 100.0*ps.Hat, 100.0*ps.CI.Lo, 100.0*ps.CI.Hi)
	}
	return keys, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
