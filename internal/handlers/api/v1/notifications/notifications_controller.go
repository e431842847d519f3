package notifications

import (
	"net/http"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"
	"whispernet/internal/services"

	"go.uber.org/zap"
)

// NotificationController upgrades clients onto the badge notification feed.
type NotificationController struct {
	services *services.ServiceCollection
	logger   *zap.Logger
	builder  *response.Builder
}

// NewNotificationController creates a notification controller.
func NewNotificationController(sc *services.ServiceCollection, logger *zap.Logger, builder *response.Builder) *NotificationController {
	return &NotificationController{services: sc, logger: logger, builder: builder}
}

// Stream handles GET /api/v1/notifications/ws
func (c *NotificationController) Stream(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}
	if err := c.services.GetNotificationService().HandleWS(w, r, userID); err != nil {
		c.logger.Warn("websocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
