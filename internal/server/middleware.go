// Provides request id and access log middleware.

package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maruel/contactcrm/internal/server/reqctx"
	"github.com/maruel/ksid"
)

// statusWriter records the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogMiddleware assigns a request id to every request and logs one
// line per API request once it completes.
func RequestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ksid.NewID()
		w.Header().Set(reqctx.RequestIDHeader, id.String())
		ctx := reqctx.WithRequestID(r.Context(), id)
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(ctx))
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		level := slog.LevelInfo
		if !isAPI(r.URL.Path) {
			level = slog.LevelDebug
		}
		slog.Log(ctx, level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"dur", time.Since(start).Round(time.Millisecond),
			"id", id,
			"ip", reqctx.GetClientIP(r),
		)
	})
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
