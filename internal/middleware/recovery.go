package middleware

import (
	"net/http"
	"runtime/debug"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"

	"go.uber.org/zap"
)

// Recovery converts handler panics into 500 responses. The stack goes to the
// log, never to the client.
func Recovery(logger *zap.Logger, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panicked",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", contextutils.GetRequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					builder.WriteJSON(w, r, &response.APIResponse{
						Success: false,
						Error: &response.ErrorDetail{
							Type:    "INTERNAL_ERROR",
							Message: "an internal error occurred",
						},
						RequestID: contextutils.GetRequestID(r.Context()),
					}, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
