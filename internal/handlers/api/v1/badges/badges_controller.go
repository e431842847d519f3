package badges

import (
	"net/http"
	"strconv"

	"whispernet/internal/contextutils"
	"whispernet/internal/response"
	"whispernet/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BadgeController exposes the badge catalog and earned-badge queries.
type BadgeController struct {
	services *services.ServiceCollection
	logger   *zap.Logger
	builder  *response.Builder
}

// NewBadgeController creates a badge controller.
func NewBadgeController(sc *services.ServiceCollection, logger *zap.Logger, builder *response.Builder) *BadgeController {
	return &BadgeController{services: sc, logger: logger, builder: builder}
}

// ListCatalog handles GET /api/v1/badges
func (c *BadgeController) ListCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := c.services.GetBadgeService().Catalog(r.Context())
	c.builder.WriteSuccess(w, r, catalog)
}

// ListUserBadges handles GET /api/v1/users/{userID}/badges
func (c *BadgeController) ListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		c.builder.WriteError(w, r, services.NewValidationError("invalid user id", err))
		return
	}

	earned, svcErr := c.services.GetBadgeService().ListUserBadges(r.Context(), userID)
	if svcErr != nil {
		c.builder.WriteError(w, r, svcErr)
		return
	}
	c.builder.WriteSuccess(w, r, earned)
}

// ListMyBadges handles GET /api/v1/me/badges
func (c *BadgeController) ListMyBadges(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	earned, err := c.services.GetBadgeService().ListUserBadges(r.Context(), userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}
	c.builder.WriteSuccess(w, r, earned)
}
