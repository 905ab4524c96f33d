package v1

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/zintix-labs/unboxlab"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/server/httperr"
	"github.com/zintix-labs/unboxlab/spec"
	"github.com/zintix-labs/unboxlab/stats"
)

type SimHandler struct {
	Unboxlab *unboxlab.Unboxlab
}

func NewSimHandler(lab *unboxlab.Unboxlab) (*SimHandler, error) {
	return &SimHandler{Unboxlab: lab}, nil
}

func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRequestBody struct {
		BID   spec.BID `json:"bid"`
		Lanes int      `json:"lanes"`
		Opens int      `json:"opens"`
		Seed  *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Stats    *stats.StatReport `json:"stats"`
		UsedTime int64             `json:"used_ms"`
	}
	// ---
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// bid
		if s := q.URL.Query().Get("bid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("bid must be non-negative integer"))
				return
			}
			req.BID = spec.BID(u)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("bid is required"))
			return
		}

		// lanes
		if m := q.URL.Query().Get("lanes"); m != "" {
			u, err := strconv.Atoi(m)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("lanes must be integer"))
				return
			}
			req.Lanes = u
		} else {
			req.Lanes = 1
		}

		// opens
		if r := q.URL.Query().Get("opens"); r != "" {
			u, err := strconv.Atoi(r)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("opens must be integer"))
				return
			}
			req.Opens = u
		} else {
			httperr.Errs(w, errs.NewWarn("opens is required"))
			return
		}

		// seed
		if s := q.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	_, ok := sh.Unboxlab.EntryById(req.BID)
	if !ok {
		httperr.Errs(w, errs.NewWarn("bid not found"))
		return
	}
	if req.Lanes < 1 || req.Lanes > 4 {
		httperr.Errs(w, errs.NewWarn("lanes must be between 1 and 4"))
		return
	}
	if req.Opens < 1 || req.Opens > 1000000 {
		httperr.Errs(w, errs.NewWarn("opens must be between 1 to 1,000,000"))
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
	sim, err := sh.Unboxlab.NewSimulatorWithSeed(req.BID, *req.Seed)
	if err != nil {
		// 這裡的錯誤來自組裝層 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.BID)))
		return
	}
	start := time.Now()
	st, err := sim.Sim(req.Lanes, req.Opens, false)
	if err != nil {
		// 這裡的錯誤來自simulator 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	resp := SimResponse{
		Stats:    st,
		UsedTime: time.Since(start).Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (sh *SimHandler) SimWorkers(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimWorkerRequestBody struct {
		BID     spec.BID `json:"bid"`
		Workers int      `json:"workers"`
		Lanes   int      `json:"lanes"`
		Opens   int      `json:"opens"`
		Seed    *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimWorkerResponse struct {
		StatsReport *stats.StatReport       `json:"stats"`
		Estimator   *stats.EstimatorWorkers `json:"est"`
		UsedTime    int64                   `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(SimWorkerRequestBody)
	if r.Method == http.MethodGet {
		// bid
		if s := r.URL.Query().Get("bid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("bid must be non-negative integer"))
				return
			}
			req.BID = spec.BID(u)
		} else {
			httperr.Errs(w, errs.NewWarn("bid is required"))
			return
		}

		// workers
		if s := r.URL.Query().Get("workers"); s != "" {
			u, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("workers must be integer"))
				return
			}
			req.Workers = u
		} else {
			httperr.Errs(w, errs.NewWarn("workers is required"))
			return
		}

		// lanes
		if s := r.URL.Query().Get("lanes"); s != "" {
			u, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("lanes must be integer"))
				return
			}
			req.Lanes = u
		} else {
			req.Lanes = 1
		}

		// opens
		if s := r.URL.Query().Get("opens"); s != "" {
			u, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("opens must be integer"))
				return
			}
			req.Opens = u
		} else {
			httperr.Errs(w, errs.NewWarn("opens is required"))
			return
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	if _, ok := sh.Unboxlab.EntryById(req.BID); !ok {
		httperr.Errs(w, errs.NewWarn("bid not found"))
		return
	}
	if req.Workers < 1 || req.Workers > 64 {
		httperr.Errs(w, errs.NewWarn("workers must be between 1 and 64"))
		return
	}
	if req.Lanes < 1 || req.Lanes > 4 {
		httperr.Errs(w, errs.NewWarn("lanes must be between 1 and 4"))
		return
	}
	if req.Opens < 1 || req.Opens > 10000000 {
		httperr.Errs(w, errs.NewWarn("opens must be between 1 and 10,000,000"))
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
	// 取得sim
	sim, err := sh.Unboxlab.NewSimulatorWithSeed(req.BID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.BID)))
		return
	}
	start := time.Now()
	st, est, err := sim.SimMP(req.Lanes, req.Opens, req.Workers, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("simulator err: %d", req.BID)))
		return
	}
	resp := &SimWorkerResponse{
		StatsReport: st,
		Estimator:   est,
		UsedTime:    time.Since(start).Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
