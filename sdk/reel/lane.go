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

import "math"

// Phase 為滾軸道狀態機的相位。
// 合法轉移：Idle -> Coasting -> Snapping -> Settled，單向不可逆。
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCoasting
	PhaseSnapping
	PhaseSettled
)

var phaseNames = map[Phase]string{
	PhaseIdle:     "idle",
	PhaseCoasting: "coasting",
	PhaseSnapping: "snapping",
	PhaseSettled:  "settled",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "idle"
}

// Lane 為單條滾軸道的演出狀態。
//
// 位移模型（像素，向結果方向為正）：
//   - 滑行段：pos(t) = coastTarget * easeOutCubic(t / coastDur)，
//     coastTarget = itemSize*(ResultSlot-StartIndex) + jitter。
//   - 回正段：由 coastTarget 線性插值到 exactTarget，
//     exactTarget = itemSize*(ResultSlot-StartIndex)。
//
// Settled 時 pos 必須精確等於 exactTarget——直接賦值，不靠插值收斂。
type Lane struct {
	plan     LanePlan
	itemSize int

	coastDur float64 // ms
	snapDur  float64 // ms

	coastTarget float64
	exactTarget float64

	phase   Phase
	elapsed float64 // 目前相位內已過時間 (ms)
	pos     float64
	center  int
}

func newLane(plan LanePlan, itemSize int, coastDur, snapDur float64) *Lane {
	exact := float64(itemSize * (ResultSlot - plan.StartIndex))
	return &Lane{
		plan:        plan,
		itemSize:    itemSize,
		coastDur:    coastDur,
		snapDur:     snapDur,
		coastTarget: exact + float64(plan.JitterPx),
		exactTarget: exact,
		phase:       PhaseIdle,
		center:      plan.StartIndex,
	}
}

// ============================================================
// ** 以下公開方法 **
// ============================================================

// Phase 回傳目前相位。
func (l *Lane) Phase() Phase { return l.phase }

// Position 回傳目前位移（px）。
func (l *Lane) Position() float64 { return l.pos }

// Center 回傳目前中心格索引。
func (l *Lane) Center() int { return l.center }

// Plan 回傳本道的演出計畫。
func (l *Lane) Plan() LanePlan { return l.plan }

// ============================================================
// 內部：相位推進
// ============================================================

func (l *Lane) start() {
	l.phase = PhaseCoasting
	l.elapsed = 0
}

// advance 在合成時鐘上推進 dt 毫秒，回傳中心格是否變化。
// 相位切換時把溢出的 dt 帶進下一相位，任意步長下落點仍精確。
func (l *Lane) advance(dt float64) (centerChanged bool) {
	if l.phase == PhaseIdle || l.phase == PhaseSettled || dt <= 0 {
		return false
	}

	l.elapsed += dt
	if l.phase == PhaseCoasting {
		if l.elapsed < l.coastDur {
			l.pos = l.coastTarget * easeOutCubic(l.elapsed/l.coastDur)
			return l.refreshCenter()
		}
		leftover := l.elapsed - l.coastDur
		l.pos = l.coastTarget
		l.phase = PhaseSnapping
		l.elapsed = leftover
	}

	// PhaseSnapping
	if l.elapsed < l.snapDur {
		l.pos = l.coastTarget + (l.exactTarget-l.coastTarget)*(l.elapsed/l.snapDur)
		return l.refreshCenter()
	}
	l.pos = l.exactTarget
	l.phase = PhaseSettled
	return l.refreshCenter()
}

// refreshCenter 由位移換算中心格，夾在序列範圍內。
func (l *Lane) refreshCenter() bool {
	c := l.plan.StartIndex + int(math.Round(l.pos/float64(l.itemSize)))
	if c < 0 {
		c = 0
	}
	if c > len(l.plan.Sequence)-1 {
		c = len(l.plan.Sequence) - 1
	}
	if c == l.center {
		return false
	}
	l.center = c
	return true
}

// easeOutCubic : 1-(1-x)^3，滑行段由快轉慢。
func easeOutCubic(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	inv := 1 - x
	return 1 - inv*inv*inv
}
