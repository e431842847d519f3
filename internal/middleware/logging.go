package middleware

import (
	"net/http"
	"time"

	"whispernet/internal/contextutils"

	"go.uber.org/zap"
)

// statusWriter captures the status code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// slowRequestThreshold marks requests worth a warning instead of an info line.
const slowRequestThreshold = time.Second

// Logger emits one structured access-log line per request.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", duration),
				zap.String("request_id", contextutils.GetRequestID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			}

			switch {
			case sw.status >= http.StatusInternalServerError:
				logger.Error("request completed", fields...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}
