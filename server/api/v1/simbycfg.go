package v1

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/server/httperr"
)

// SetByJson 傳入 JSON 箱子設定 以及希望模擬的開箱數
//
// 設定內的 box_id/box_name 必須已在 catalog 註冊且彼此對應；
// 這條路只是讓呼叫端微調同一顆箱子的參數做假設驗證，不開後門新箱子。
func (sh *SimHandler) SetByJson(w http.ResponseWriter, r *http.Request) {
	type SimRequestByJson struct {
		Lanes      int             `json:"lanes"`
		Opens      int             `json:"opens"`
		BoxSetting json.RawMessage `json:"cfg"`
		Seed       *int64          `json:"seed,omitempty"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(SimRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
		return
	}

	// 2. valid opens/lanes
	if req.Opens < 1 {
		httperr.Errs(w, errs.NewWarn("opens must be at least 1"))
		return
	}
	if req.Lanes == 0 {
		req.Lanes = 1
	}
	if req.Lanes < 1 || req.Lanes > 4 {
		httperr.Errs(w, errs.NewWarn("lanes must be between 1 and 4"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}

	// 3. NewSimulator
	sim, err := sh.Unboxlab.NewSimulatorByJSON(req.BoxSetting, *req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	result, err := sim.Sim(req.Lanes, req.Opens, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 4. 回傳Json
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
