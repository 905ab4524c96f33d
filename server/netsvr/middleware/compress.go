package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func isNoBodyStatus(code int) bool {
	// 204 No Content, 304 Not Modified, 1xx Informational
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

// CompressConfig
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// compressor 統一 zstd/gzip 兩種壓縮器的操作面。
type compressor interface {
	io.Writer
	Reset(w io.Writer)
	Close() error
}

// codec 一種壓縮編碼：名稱 + 池化的壓縮器。
type codec struct {
	name string
	pool sync.Pool
	make func(io.Writer) compressor
}

func (c *codec) get(w io.Writer) compressor {
	if v := c.pool.Get(); v != nil {
		cw := v.(compressor)
		cw.Reset(w)
		return cw
	}
	return c.make(w)
}

func (c *codec) put(cw compressor) {
	_ = cw.Close()
	c.pool.Put(cw)
}

// 協商順位：zstd 優先，gzip 其次。
var codecs = []*codec{
	{
		name: "zstd",
		make: func(w io.Writer) compressor {
			zw, err := zstd.NewWriter(w,
				zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
				zstd.WithEncoderConcurrency(1),
			)
			if err != nil {
				panic(err)
			}
			return zw
		},
	},
	{
		name: "gzip",
		make: func(w io.Writer) compressor {
			gw, _ := gzip.NewWriterLevel(w, DefaultCompressConfig.GzipLevel)
			return gw
		},
	},
}

func negotiate(acceptEncoding string) *codec {
	for _, c := range codecs {
		if strings.Contains(acceptEncoding, c.name) {
			return c
		}
	}
	return nil
}

// --- ResponseWriter Wrapper ---

type compressResponseWriter struct {
	http.ResponseWriter
	w        io.Writer // 指向壓縮器
	disabled bool      // 標記是否動態取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	// 已停用壓縮 (204/304) 時直接寫入底層
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}

	// 壓縮後長度未知
	cw.Header().Del("Content-Length")

	// 嗅探 Content-Type
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}

	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")

	// 動態偵測是否應該取消壓縮 (204/304/1xx)
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}

	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	// 只有在啟用壓縮時，才 Flush 壓縮器
	if !cw.disabled {
		if f, ok := cw.w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	// 永遠 Flush 底層
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

func (cw *compressResponseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := cw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return errors.New("underlying response writer does not support Pusher")
}

// --- Middleware 入口 ---

func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket / HEAD 不壓縮
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		// 避免二次壓縮
		if w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}

		c := negotiate(r.Header.Get("Accept-Encoding"))
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", c.name)
		w.Header().Add("Vary", "Accept-Encoding")

		enc := c.get(w)
		cw := &compressResponseWriter{ResponseWriter: w, w: enc}
		// response 被標記為 disabled 時，把壓縮器重置到 io.Discard，
		// Close() 產生的 Footer 會被丟棄，不會污染 204/304 回應
		defer func() {
			if cw.disabled {
				enc.Reset(io.Discard)
			}
			c.put(enc)
		}()

		next.ServeHTTP(cw, r)
	})
}
