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

package core

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
// Unboxlab 在每次開箱前後各取一次快照，作為審計與回放的依據。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 為什麼要求同時提供 4 個方法（Uint64 / Float64 / UintN / IntN）而不只 Uint64？
// bounded 生成與浮點生成的最佳路徑因 PRNG 原生輸出寬度（32-bit vs 64-bit）而異，
// 合約只要求 Uint64 會迫使 32-bit 友善的實作走「先產 uint64 再裁切」的慢路徑。
// 把 IntN/UintN/Float64 交由 PRNG 自己實作，各實作可自選最合適的策略與精度。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約（很重要）：同一實作與版本下，New(seed) 必須是決定性的——
	// 相同的 seed 產生相同的初始內部狀態與輸出序列。
	//
	// Unboxlab 需要可重現（審計/回放/併發模擬的多開箱器派生），
	// seed 生命週期統一由引擎管理：外部未提供時引擎產生並保存 baseSeed，
	// 所有 Opener/Sim 皆由 baseSeed 以固定算法派生子 seed，
	// 因此永遠不需要「不帶 seed 的 New()」。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory，以 PCG32 為底。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG32WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
// 熱路徑中只使用哨兵值回傳
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// JitterPx 回傳 [-maxAbs, +maxAbs] 的整數偏移量，供每條滾軸道的
// 滑行落點抖動使用；maxAbs <= 0 時回傳 0。
func (c *Core) JitterPx(maxAbs int) int {
	if maxAbs <= 0 {
		return 0
	}
	return c.IntN(2*maxAbs+1) - maxAbs
}

// ShuffleInts 使用 Fisher-Yates (亦稱 Knuth Shuffle) 演算法
// 對[]int進行「就地 (In-place)」隨機重排。
//
// 演算法特性：
//
//  1. 公平性 (Unbiased)：
//     保證所有 N! 種排列出現機率嚴格相等 (1/N!)。
//
//  2. 效能：
//     時間 O(N)、空間 O(1)，原地交換，零配置。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
