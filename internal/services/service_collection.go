package services

import (
	"context"
	"fmt"

	"whispernet/internal/badges"
	"whispernet/internal/cache"
	"whispernet/internal/config"
	"whispernet/internal/database"
	"whispernet/internal/repositories"

	"go.uber.org/zap"
)

// ===============================
// SERVICE COLLECTION
// ===============================

// ServiceCollection holds every service with its dependencies wired in
// order: repositories, then the badge engine, then the feature services.
type ServiceCollection struct {
	DBManager *database.Manager
	Cache     cache.Cache
	Config    *config.Config
	Logger    *zap.Logger

	users     repositories.UserRepository
	stories   repositories.StoryRepository
	shares    repositories.ShareRepository
	events    repositories.EventRepository
	badgeRepo repositories.BadgeRepository

	engine *badges.Engine

	NotificationService NotificationService
	BadgeService        BadgeService
	ShareService        ShareService
	StoryService        StoryService
}

// NewServiceCollection wires repositories, the badge engine and the feature
// services against a live database manager and cache.
func NewServiceCollection(
	dbManager *database.Manager,
	c cache.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if c == nil {
		c = cache.NewNoopCache()
	}

	sc := &ServiceCollection{
		DBManager: dbManager,
		Cache:     c,
		Config:    cfg,
		Logger:    logger,
	}

	sc.initializeRepositories()
	sc.initializeEngine()
	sc.initializeServices()

	logger.Info("service collection initialized")
	return sc, nil
}

func (sc *ServiceCollection) initializeRepositories() {
	sc.users = repositories.NewUserRepository(sc.DBManager, sc.Logger)
	sc.stories = repositories.NewStoryRepository(sc.DBManager, sc.Logger)
	sc.shares = repositories.NewShareRepository(sc.DBManager, sc.Logger)
	sc.events = repositories.NewEventRepository(sc.DBManager, sc.Logger)
	sc.badgeRepo = repositories.NewBadgeRepository(sc.DBManager, sc.Logger)
}

func (sc *ServiceCollection) initializeEngine() {
	sc.NotificationService = NewNotificationService(sc.Logger)

	store := &repositories.EngineStore{
		UserRepository:  sc.users,
		StoryRepository: sc.stories,
		ShareRepository: sc.shares,
		EventRepository: sc.events,
		BadgeRepository: sc.badgeRepo,
	}
	sc.engine = badges.NewEngine(badges.Config{
		Store:         store,
		Notifier:      sc.NotificationService,
		Cache:         &badgeCacheInvalidator{cache: sc.Cache, logger: sc.Logger},
		Logger:        sc.Logger,
		NotifyTimeout: sc.Config.Badges.NotifyTimeout,
	})
}

func (sc *ServiceCollection) initializeServices() {
	sc.BadgeService = NewBadgeService(sc.engine, sc.badgeRepo, sc.Cache, sc.Logger)
	sc.ShareService = NewShareService(sc.shares, sc.stories, sc.events, sc.BadgeService, &sc.Config.Badges, sc.Logger)
	sc.StoryService = NewStoryService(sc.stories, sc.events, sc.BadgeService, &sc.Config.Badges, sc.Logger)
}

// ===============================
// SERVICE ACCESSORS
// ===============================

func (sc *ServiceCollection) GetBadgeService() BadgeService {
	return sc.BadgeService
}

func (sc *ServiceCollection) GetShareService() ShareService {
	return sc.ShareService
}

func (sc *ServiceCollection) GetStoryService() StoryService {
	return sc.StoryService
}

func (sc *ServiceCollection) GetNotificationService() NotificationService {
	return sc.NotificationService
}

// Shutdown stops background workers. The database and cache are owned by
// the caller and closed there.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	if sc.NotificationService != nil {
		if err := sc.NotificationService.Shutdown(ctx); err != nil {
			sc.Logger.Warn("notification service shutdown failed", zap.Error(err))
		}
	}
	sc.Logger.Info("service collection shut down")
	return nil
}

// badgeCacheInvalidator is the engine-facing cache hook. It works on the
// raw cache rather than BadgeService so the engine can be wired before the
// services that depend on it.
type badgeCacheInvalidator struct {
	cache  cache.Cache
	logger *zap.Logger
}

func (i *badgeCacheInvalidator) InvalidateUserBadges(ctx context.Context, userID int64) {
	if err := i.cache.Delete(ctx, cache.UserBadgesKey(userID)); err != nil {
		i.logger.Warn("failed to invalidate badge cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
