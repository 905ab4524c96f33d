package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// Recover 接住 handler panic，回 500 並把 stack 印到 stderr。
// 直接用 chi 的 Recoverer：它對 http.ErrAbortHandler 會放行，不吞連線中斷。
func Recover(next http.Handler) http.Handler {
	return chimid.Recoverer(next)
}
