package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Auth validates a Bearer JWT signed with the shared HMAC secret and puts
// the user ID into the request context. Requests without a valid token get
// a 401 envelope.
func Auth(secret string, logger *zap.Logger, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userIDFromRequest(r, secret)
			if err != nil {
				logger.Debug("rejected unauthenticated request",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				builder.WriteJSON(w, r, &response.APIResponse{
					Success: false,
					Error: &response.ErrorDetail{
						Type:    "UNAUTHORIZED",
						Message: "authentication required",
					},
					RequestID: contextutils.GetRequestID(r.Context()),
				}, http.StatusUnauthorized)
				return
			}

			ctx := contextutils.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFromRequest(r *http.Request, secret string) (int64, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("missing subject claim")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject is not a user id: %w", err)
	}
	return userID, nil
}
