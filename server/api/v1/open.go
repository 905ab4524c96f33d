package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/unboxlab"
	"github.com/zintix-labs/unboxlab/dto"
	"github.com/zintix-labs/unboxlab/errs"
	"github.com/zintix-labs/unboxlab/server/httperr"
	"github.com/zintix-labs/unboxlab/server/svrcfg"
)

func (c *OpenHandler) Open(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeOpenRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 開始 Open
	result, err := c.rt.Open(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Demo 展示開箱：強制走 demo 路徑，外帶的 outcomes 一律拒絕。
// 前端落地頁的「試開」按鈕用這條，不經過任何真實彩券。
func (c *OpenHandler) Demo(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeOpenRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Outcomes) != 0 {
		httperr.Errs(w, errs.NewWarn("demo request must not carry outcomes"))
		return
	}
	req.Demo = true

	ctx, cancel := context.WithTimeout(q.Context(), 5*time.Second)
	defer cancel()

	result, err := c.rt.Open(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Metrics 回傳各箱子池的觀測快照。
func (c *OpenHandler) Metrics(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.rt.Metrics())
}

// ============================================================
// ** OpenHandler **
// ============================================================

type OpenHandler struct {
	rt *unboxlab.OpenRuntime
}

func NewOpenHandler(sCfg *svrcfg.SvrCfg) (*OpenHandler, error) {
	rt, err := sCfg.Unboxlab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build open handler error")
	}
	return &OpenHandler{rt: rt}, nil
}
