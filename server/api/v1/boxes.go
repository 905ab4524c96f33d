package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/unboxlab"
	"github.com/zintix-labs/unboxlab/server/httperr"
)

// Boxes 回傳可開箱目錄的摘要（前端箱子列表用）。
func Boxes(lab *unboxlab.Unboxlab) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}
