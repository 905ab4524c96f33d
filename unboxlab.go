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

// Package unboxlab 提供開箱引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Unboxlab 把兩個必需的地基組裝在一起，並提供建立 Opener 的入口：
//  1. Catalog：箱子目錄（Single Source of Truth / SSOT），定義有哪些箱子、各自對應的設定檔名稱（ConfigName）。
//  2. PRNGFactory：亂數核心工廠，保證可重現（reproducible）與可審計（auditable）。
//
// 設計重點：
//   - Unboxlab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Opener 是對外提供 Open 的最小單位；判定（彩券 -> 獎項 -> 分級）與演出計畫
//     （滾軸道序列、抖動、時長）都在 Opener 內一次產出。
//   - 判定先於演出：Open 回傳的演出計畫只是把既定結果演出來，前端/模擬端不可能
//     經由演出層改變結果。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Unboxlab 建立 OpenRuntime，對外提供 /v1/open。
//   - 模擬器（sim）：由 Unboxlab 建立多台 Opener 進行大量模擬。
package unboxlab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/unboxlab/catalog"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//
// Unboxlab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Unboxlab 是「組裝器（assembler）」與「運行入口（runtime entry）」。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段：建立 catalog、檢查重複與缺漏。
//   - 執行階段：依據箱子 ID 產生 Opener，並在 Opener 上執行 Open。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Unboxlab instance」內。
//   - runtime 一旦開始（已建立 Opener 並對外服務），不建議再變更 Catalog。
type Unboxlab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 建立一個 Unboxlab instance。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現/可審計的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 BoxSetting。
func New(cf core.PRNGFactory, cfgs []fs.FS) (*Unboxlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	return &Unboxlab{cat: cata, cf: cf}, nil
}

// NewAuto 建立一個直接進入執行階段的 Unboxlab instance。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS) (*Unboxlab, error) {
	lab, err := New(cf, cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (u *Unboxlab) Register(ents ...catalog.Entry) error {
	return u.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）
// 嘗試解析成 *spec.BoxSetting，並用設定檔內宣告的 BoxID/BoxName 產生對應的
// catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...)
//     一次性寫入，不會出現半完成的 catalog。
func (u *Unboxlab) RegisterAll() error {
	sources := u.cat.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.BID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				bs   *spec.BoxSetting
				berr error
			)
			switch ext {
			case ".yaml", ".yml":
				bs, berr = spec.GetBoxSettingByYAML(raw)
			case ".json":
				bs, berr = spec.GetBoxSettingByJSON(raw)
			}
			if berr != nil {
				return errs.Wrap(berr, fmt.Sprintf("parse box setting failed: %s", base))
			}

			name := strings.TrimSpace(bs.BoxName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("box name required: %s", base))
			}

			id := bs.BoxID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate box id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := u.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("box id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate box name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := u.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("box name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			entries = append(entries, catalog.Entry{
				BID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return u.cat.Register(entries...)
}

func (u *Unboxlab) Freeze() {
	u.cat.Freeze()
}

func (u *Unboxlab) EntryById(id spec.BID) (catalog.Entry, bool) {
	return u.cat.GetByID(id)
}

func (u *Unboxlab) EntryByName(name string) (catalog.Entry, bool) {
	return u.cat.GetByName(name)
}

func (u *Unboxlab) IDs() []spec.BID {
	return u.cat.IDs()
}

func (u *Unboxlab) All() []catalog.Entry {
	return u.cat.All()
}

func (u *Unboxlab) Summary() ([]catalog.Summary, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if u.sum != nil {
		return u.sum, nil
	}
	ids := u.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		bs, err := u.cat.BoxSettingByID(id)
		if err != nil {
			return nil, errs.NewFatal("parse box setting failed")
		}
		cs = append(cs, catalog.Summary{
			BID:        id,
			Name:       bs.BoxName,
			FixedPrice: bs.FixedPrice,
			ItemCount:  len(bs.Items),
		})
	}
	u.sum = cs
	return u.sum, nil
}

// NewOpener 依據 Catalog 內的箱子 ID 建立一台 Opener。
//
// 行為：
//  1. 由 Catalog 取得對應的 BoxSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 PRNGFactory 產生 RNG 核心（seed 由 crypto/rand 產生）。
//
// 注意：seed 會被記錄在 Opener 內（initseed），用於追溯；真正的可審計能力
// 以 Core 的 Snapshot/Restore 合約為準。
func (u *Unboxlab) NewOpener(id spec.BID) (*Opener, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := u.cat.BoxSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newOpener(bs, u.cf)
}

// NewOpenerWithSeed 與 NewOpener 相同，但由呼叫端指定初始 seed。
//
// 使用情境：可重現的測試——同一份設定 + 同一個 seed，應產生一致的隨機序列。
// seed 只是「出生入口」；要在任意時間點完整重現，請使用 Snapshot/Restore。
func (u *Unboxlab) NewOpenerWithSeed(id spec.BID, seed int64) (*Opener, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := u.cat.BoxSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newOpenerWithSeed(bs, u.cf, seed)
}

func (u *Unboxlab) NewSimulator(id spec.BID) (*Simulator, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := u.cat.BoxSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(bs, u.cf)
}

func (u *Unboxlab) NewSimulatorWithSeed(id spec.BID, seed int64) (*Simulator, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := u.cat.BoxSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(bs, u.cf, seed)
}

func (u *Unboxlab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := spec.GetBoxSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := u.validCfg(bs); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(bs, u.cf, seed)
}

func (u *Unboxlab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	if !u.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	bs, err := spec.GetBoxSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := u.validCfg(bs); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(bs, u.cf, seed)
}

func (u *Unboxlab) validCfg(bs *spec.BoxSetting) error {
	ent, ok := u.cat.GetByID(bs.BoxID)
	if !ok {
		return errs.NewWarn("bid not exist")
	}
	ent2, ok := u.cat.GetByName(bs.BoxName)
	if !ok {
		return errs.NewWarn("box name not exist")
	}
	if ent.BID != ent2.BID {
		return errs.NewWarn("box id is not matched box name")
	}
	return nil
}

func (u *Unboxlab) BuildRuntime(poolSize int) (*OpenRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	u.Freeze()

	ids := u.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no boxes registered")
	}

	rt := &OpenRuntime{
		lab:      u,
		pools:    make(map[spec.BID]*OpenerPool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast）
	for _, id := range ids {
		bs, err := u.cat.BoxSettingByID(id)
		if err != nil {
			return nil, err
		}
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return nil, errs.Wrap(err, "new crypto seed error in go std lib")
		}
		op, err := newOpenerPool(rt.poolSize, bs, u.cf, seed.Int64())
		if err != nil {
			return nil, err
		}
		rt.pools[id] = op
	}
	return rt, nil
}
