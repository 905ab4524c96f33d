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

package spec

import (
	"fmt"

	"github.com/zintix-labs/unboxlab/errs"
)

// BID 為箱子的數字識別碼。
type BID uint32

// BoxSetting 包含啟動一個開箱器所需的所有高階設定。
type BoxSetting struct {
	BoxName    string        `yaml:"box_name"     json:"box_name"`
	BoxID      BID           `yaml:"box_id"       json:"box_id"`
	FixedPrice float64       `yaml:"fixed_price"  json:"fixed_price"`
	Items      []ItemSetting `yaml:"items"        json:"items"`
	Reel       ReelSetting   `yaml:"reel"         json:"reel"`
}

// ItemSetting 描述箱內單一獎項。
type ItemSetting struct {
	ItemKey      string  `yaml:"item_key"       json:"item_key"`
	DisplayName  string  `yaml:"display_name"   json:"display_name"`
	TicketWeight int     `yaml:"ticket_weight"  json:"ticket_weight"`
	UnitValue    float64 `yaml:"unit_value"     json:"unit_value"`
}

// ReelSetting 為滾軸演出的時間與版面參數，零值欄位套用預設。
type ReelSetting struct {
	ItemSizePx     int `yaml:"item_size_px"      json:"item_size_px"`
	JitterMaxPx    int `yaml:"jitter_max_px"     json:"jitter_max_px"`
	FillerPoolSize int `yaml:"filler_pool_size"  json:"filler_pool_size"`
	DurationMs     int `yaml:"duration_ms"       json:"duration_ms"`
	FastDurationMs int `yaml:"fast_duration_ms"  json:"fast_duration_ms"`
	SnapDurationMs int `yaml:"snap_duration_ms"  json:"snap_duration_ms"`
}

// 滾軸演出預設值。
const (
	defaultItemSizePx     = 80
	defaultJitterMaxPx    = 55
	defaultFillerPoolSize = 256
	defaultDurationMs     = 5500
	defaultFastDurationMs = 1500
	defaultSnapDurationMs = 250
)

// init
func (bs *BoxSetting) init() error {
	bs.Reel.fill()
	return bs.valid()
}

func (rs *ReelSetting) fill() {
	if rs.ItemSizePx <= 0 {
		rs.ItemSizePx = defaultItemSizePx
	}
	if rs.JitterMaxPx <= 0 {
		rs.JitterMaxPx = defaultJitterMaxPx
	}
	if rs.FillerPoolSize <= 0 {
		rs.FillerPoolSize = defaultFillerPoolSize
	}
	if rs.DurationMs <= 0 {
		rs.DurationMs = defaultDurationMs
	}
	if rs.FastDurationMs <= 0 {
		rs.FastDurationMs = defaultFastDurationMs
	}
	if rs.SnapDurationMs <= 0 {
		rs.SnapDurationMs = defaultSnapDurationMs
	}
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (bs *BoxSetting) valid() error {

	if bs.BoxName == "" {
		return errs.NewFatal("empty box_name")
	}

	// valid Items
	if len(bs.Items) == 0 {
		return errs.NewFatal(fmt.Sprintf("box_name: %s err:empty items", bs.BoxName))
	}
	seen := map[string]struct{}{}
	for _, it := range bs.Items {
		if it.ItemKey == "" {
			return errs.NewFatal(fmt.Sprintf("box_name: %s err:empty item_key", bs.BoxName))
		}
		if _, dup := seen[it.ItemKey]; dup {
			return errs.NewFatal(fmt.Sprintf("box_name: %s err:duplicate item_key %s", bs.BoxName, it.ItemKey))
		}
		seen[it.ItemKey] = struct{}{}
		if it.TicketWeight < 1 {
			return errs.NewFatal(fmt.Sprintf("box_name: %s err:invalid ticket_weight for %s", bs.BoxName, it.ItemKey))
		}
		if it.UnitValue < 0 {
			return errs.NewFatal(fmt.Sprintf("box_name: %s err:negative unit_value for %s", bs.BoxName, it.ItemKey))
		}
	}

	if bs.FixedPrice < 0 {
		return errs.NewFatal(fmt.Sprintf("box_name: %s err:negative fixed_price", bs.BoxName))
	}

	// 抖動必須小於一格，否則回正距離可能跨格。
	if bs.Reel.JitterMaxPx >= bs.Reel.ItemSizePx {
		return errs.NewFatal(fmt.Sprintf("box_name: %s err:jitter_max_px %d must be < item_size_px %d",
			bs.BoxName, bs.Reel.JitterMaxPx, bs.Reel.ItemSizePx))
	}
	if bs.Reel.FastDurationMs > bs.Reel.DurationMs {
		return errs.NewFatal(fmt.Sprintf("box_name: %s err:fast_duration_ms exceeds duration_ms", bs.BoxName))
	}

	return nil
}
