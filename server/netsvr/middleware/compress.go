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

// 已經是壓縮格式的內容（xlsx 本身就是 zip）再壓一次只會浪費 CPU
var precompressed = []string{
	"application/zip",
	"application/gzip",
	"application/zstd",
	"application/vnd.openxmlformats-",
	"application/vnd.ms-excel",
	"image/png",
	"image/jpeg",
}

func isPrecompressed(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, p := range precompressed {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return false
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

// encoder 是 gzip.Writer 與 zstd.Encoder 的共同行為
type encoder interface {
	io.Writer
	Flush() error
	Close() error
	Reset(w io.Writer)
}

// --- Pools ---
var (
	gzipPool sync.Pool
	zstdPool sync.Pool
)

func getEncoder(name string, w io.Writer) encoder {
	switch name {
	case "zstd":
		if v := zstdPool.Get(); v != nil {
			zw := v.(*zstd.Encoder)
			zw.Reset(w)
			return zw
		}
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(DefaultCompressConfig.ZstdLevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(err)
		}
		return zw
	default:
		if v := gzipPool.Get(); v != nil {
			gw := v.(*gzip.Writer)
			gw.Reset(w)
			return gw
		}
		gw, _ := gzip.NewWriterLevel(w, DefaultCompressConfig.GzipLevel)
		return gw
	}
}

func putEncoder(enc encoder) {
	switch e := enc.(type) {
	case *zstd.Encoder:
		zstdPool.Put(e)
	case *gzip.Writer:
		gzipPool.Put(e)
	}
}

// negotiate 依 Accept-Encoding 選擇編碼，zstd 優先
func negotiate(accept string) string {
	switch {
	case strings.Contains(accept, "zstd"):
		return "zstd"
	case strings.Contains(accept, "gzip"):
		return "gzip"
	default:
		return ""
	}
}

// --- ResponseWriter Wrapper ---

// compressResponseWriter 直到第一次 WriteHeader / Write 才決定要不要壓縮，
// 這時 handler 已經設好 Content-Type 與狀態碼。
type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	name     string
	decided  bool
	disabled bool
}

func (cw *compressResponseWriter) decide(code int) {
	if cw.decided {
		return
	}
	cw.decided = true
	h := cw.Header()
	if isNoBodyStatus(code) || isPrecompressed(h.Get("Content-Type")) || h.Get("Content-Encoding") != "" {
		cw.disabled = true
		return
	}
	h.Del("Content-Length")
	h.Set("Content-Encoding", cw.name)
	h.Add("Vary", "Accept-Encoding")
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if !cw.decided {
		// 嗅探 Content-Type
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		cw.decide(http.StatusOK)
	}
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.decide(code)
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	cw.decide(http.StatusOK)
	if !cw.disabled {
		_ = cw.enc.Flush()
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

// release 關閉編碼器並放回 pool。沒寫過 body 或停用壓縮時，
// footer 導向 io.Discard，避免污染回應。
func (cw *compressResponseWriter) release() {
	if !cw.decided || cw.disabled {
		cw.enc.Reset(io.Discard)
	}
	_ = cw.enc.Close()
	putEncoder(cw.enc)
}

// --- Middleware 入口 ---

func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// [Guard 1] WebSocket / Head
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		// [Guard 2] 避免二次壓縮
		if w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}

		name := negotiate(r.Header.Get("Accept-Encoding"))
		if name == "" {
			next.ServeHTTP(w, r)
			return
		}
		cw := &compressResponseWriter{ResponseWriter: w, enc: getEncoder(name, w), name: name}
		defer cw.release()
		next.ServeHTTP(cw, r)
	})
}
