package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/unboxlab/recorder"
	"github.com/zintix-labs/unboxlab/sdk/resolve"
	"github.com/zintix-labs/unboxlab/spec"
)

type DistStat struct {
	// 箱子識別
	BoxName string   `json:"box_name"`
	BoxId   spec.BID `json:"box_id"`
	Denom   float64  `json:"denom"`
	Lanes   int      `json:"lanes"`
	// 逐道原始資料（外部模擬器丟進來重算統計用）
	Payouts []float64 `json:"payouts"`
	Tiers   []int     `json:"tiers"`
}

func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dst := new(DistStat)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 對齊道數
	laneOpens := min(len(dst.Payouts), len(dst.Tiers))
	if laneOpens < 1 {
		http.Error(w, "payouts/tiers must not be empty", http.StatusBadRequest)
		return
	}
	if dst.Denom <= 0 {
		http.Error(w, "denom must > 0", http.StatusBadRequest)
		return
	}
	if dst.Lanes < 1 || dst.Lanes > 4 {
		http.Error(w, "lanes must be between 1 and 4", http.StatusBadRequest)
		return
	}
	if laneOpens%dst.Lanes != 0 {
		http.Error(w, "payouts length must be a multiple of lanes", http.StatusBadRequest)
		return
	}
	for _, t := range dst.Tiers[:laneOpens] {
		if t < 0 || t > int(resolve.Legendary) {
			http.Error(w, "tier out of range", http.StatusBadRequest)
			return
		}
	}

	rec, err := recorder.NewOpenRecorder(dst.BoxName, dst.BoxId, dst.Denom, dst.Lanes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 逐次餵回 以重建統計
	results := make([]resolve.Result, dst.Lanes)
	for i := 0; i < laneOpens; i += dst.Lanes {
		for l := 0; l < dst.Lanes; l++ {
			results[l] = resolve.Result{
				Payout:     dst.Payouts[i+l],
				Multiplier: dst.Payouts[i+l] / dst.Denom,
				Tier:       resolve.Tier(dst.Tiers[i+l]),
			}
		}
		rec.Record(results)
	}
	st := rec.Done()
	st.Done()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
