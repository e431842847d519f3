package router

import (
	"net/http"

	"whispernet/internal/config"
	"whispernet/internal/database"
	"whispernet/internal/handlers/api/v1/badges"
	"whispernet/internal/handlers/api/v1/notifications"
	"whispernet/internal/handlers/api/v1/shares"
	"whispernet/internal/handlers/api/v1/stories"
	"whispernet/internal/middleware"
	"whispernet/internal/response"
	"whispernet/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRouter wires every HTTP route onto a chi router.
func SetupRouter(sc *services.ServiceCollection, cfg *config.Config, logger *zap.Logger) http.Handler {
	builder := response.NewBuilder(logger)

	badgeController := badges.NewBadgeController(sc, logger, builder)
	shareController := shares.NewShareController(sc, logger, builder)
	storyController := stories.NewStoryController(sc, logger, builder)
	notifController := notifications.NewNotificationController(sc, logger, builder)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger, builder))
	r.Use(middleware.Logger(logger))

	r.Get("/health", healthHandler(sc, builder))

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads.
		r.Get("/badges", badgeController.ListCatalog)
		r.Get("/users/{userID}/badges", badgeController.ListUserBadges)
		r.Get("/stories/{storyID}", storyController.GetStory)
		r.Get("/stories/{storyID}/badges", storyController.ListStoryBadges)
		r.Get("/shares/{token}", shareController.GetLink)

		// Authenticated actions.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth.JWTSecret, logger, builder))

			r.Get("/me/badges", badgeController.ListMyBadges)
			r.Post("/shares", shareController.CreateLink)
			r.Post("/shares/{token}/claim", shareController.ClaimLink)
			r.Post("/stories/{storyID}/finish", storyController.FinishStory)
			r.Post("/stories/{storyID}/resonances", storyController.LeaveResonance)
			r.Get("/notifications/ws", notifController.Stream)
		})
	})

	return r
}

// healthHandler reports database and cache health in one payload.
func healthHandler(sc *services.ServiceCollection, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := sc.DBManager.Health(r.Context())

		cacheStatus := "healthy"
		if err := sc.Cache.Health(r.Context()); err != nil {
			cacheStatus = "unhealthy"
		}

		payload := map[string]interface{}{
			"database": dbHealth,
			"cache":    cacheStatus,
		}

		status := http.StatusOK
		if dbHealth.Status == database.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		builder.WriteJSON(w, r, builder.Success(r.Context(), payload), status)
	}
}
