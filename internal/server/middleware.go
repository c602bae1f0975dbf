// Provides request logging and panic recovery middleware.

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/havenrealty/sitekeeper/internal/server/dto"
	"github.com/havenrealty/sitekeeper/internal/server/reqctx"
	"github.com/maruel/ksid"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestLogger assigns a request ID, echoes it in X-Request-ID and logs
// each request once it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ksid.NewID().String()
		w.Header().Set("X-Request-ID", id)
		ctx := reqctx.WithRequestID(r.Context(), id)
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(ctx))
		slog.InfoContext(ctx, "http",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", reqctx.GetClientIP(r),
		)
	})
}

// Recover turns a handler panic into a 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.ErrorContext(r.Context(), "Panic in handler", "panic", v, "path", r.URL.Path)
				writeAPIError(w, dto.Internal("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
