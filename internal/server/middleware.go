package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"rss-scn/internal/logx"
)

const headerRequestID = "X-Request-ID"

type ctxKey struct{}

// loggerFrom 取出请求级 logger；不存在时返回默认 logger。
func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// withRequestID 沿用客户端传入的 X-Request-ID，否则生成 uuid，并回写到响应头。
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), ctxKey{}, logx.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusWriter 记录写出的状态码与字节数。
type statusWriter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		loggerFrom(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status(),
			"bytes", sw.bytes,
			"took", time.Since(start).Round(time.Microsecond).String(),
		)
	})
}

// withRecover 将 handler 中的 panic 转为 500，进程继续服务。
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			loggerFrom(r.Context()).Error("panic in handler", "panic", v, "stack", string(debug.Stack()))
			http.Error(w, msgInternal, http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument 按路由记录请求数与耗时；未启用指标时原样返回。
func (a *API) instrument(route string, next http.Handler) http.Handler {
	if a.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		a.metrics.ObserveRequest(route, sw.status(), time.Since(start))
	})
}
