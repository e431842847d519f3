package middleware

import (
	"fmt"
	"net/http"
	"time"

	"whispernet/internal/contextutils"

	"github.com/gofrs/uuid"
)

const (
	// HeaderXRequestID carries the correlation ID in and out.
	HeaderXRequestID = "X-Request-ID"
)

// RequestID injects a correlation ID into the request context, reusing the
// caller-supplied one when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderXRequestID)
		if requestID == "" {
			if id, err := uuid.NewV4(); err == nil {
				requestID = id.String()
			} else {
				requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
			}
		}

		w.Header().Set(HeaderXRequestID, requestID)
		ctx := contextutils.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
