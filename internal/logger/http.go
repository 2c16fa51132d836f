// 包 logger：HTTP 访问日志，入站为中间件，出站为 RoundTripper
package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessMiddleware：代理服务的入站访问日志（方法、路径、状态、耗时、字节数、远端地址）
// 约束：不读取请求体
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			l.Debug("http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}

// 文档注释：出站请求日志
// 背景：记录对上游的每次调用，便于排查超时与限流；只记录路径，不记录查询串（专业档的 key 在查询串中）。
type transport struct {
	next http.RoundTripper
	l    *slog.Logger
}

// Transport：包装出站 RoundTripper；next 为空时使用 http.DefaultTransport，l 为空时使用默认日志器
func Transport(next http.RoundTripper, l *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next, l: l}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	l := t.l
	if l == nil {
		l = L()
	}
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	dur := time.Since(start).Milliseconds()
	if err != nil {
		l.Debug("http_out_error", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "duration_ms", dur, "err", err)
		return nil, err
	}
	l.Debug("http_out",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"bytes", resp.ContentLength,
		"duration_ms", dur,
	)
	return resp, nil
}
