package services

import (
	"context"

	"whispernet/internal/badges"
	"whispernet/internal/cache"
	"whispernet/internal/models"
	"whispernet/internal/repositories"

	"go.uber.org/zap"
)

// BadgeService exposes the badge catalog and earned-badge queries, and
// fronts the eligibility engine for feature actions.
type BadgeService interface {
	// Catalog returns the static badge definitions.
	Catalog(ctx context.Context) []models.BadgeDefinition
	// ListUserBadges returns every badge a user holds, newest first.
	ListUserBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error)
	// ListStoryBadges returns the badges a story accumulated.
	ListStoryBadges(ctx context.Context, storyID int64) ([]*models.EarnedBadge, error)
	// Evaluate runs badge eligibility for a domain event. It never fails:
	// a broken engine yields an empty list.
	Evaluate(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64) []models.AwardedBadge
	// InvalidateUserBadges drops the user's cached badge list.
	InvalidateUserBadges(ctx context.Context, userID int64)
}

// badgeService implements BadgeService with a redis read-through cache.
type badgeService struct {
	engine *badges.Engine
	repo   repositories.BadgeRepository
	cache  cache.Cache
	logger *zap.Logger
}

// NewBadgeService creates a badge service around an engine.
func NewBadgeService(
	engine *badges.Engine,
	repo repositories.BadgeRepository,
	c cache.Cache,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		engine: engine,
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// Catalog returns the static definitions. No store round-trip is involved;
// the catalog lives in process memory for the lifetime of the server.
func (s *badgeService) Catalog(_ context.Context) []models.BadgeDefinition {
	return badges.Catalog()
}

// ListUserBadges serves from cache when possible. Cache failures degrade to
// the database; they are never surfaced.
func (s *badgeService) ListUserBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	key := cache.UserBadgesKey(userID)

	var cached []*models.EarnedBadge
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("badge cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	earned, err := s.repo.ListEarnedByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load earned badges")
	}

	if err := s.cache.Set(ctx, key, earned, 0); err != nil {
		s.logger.Warn("badge cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return earned, nil
}

// ListStoryBadges queries the ledger directly; story pages are rare enough
// to skip caching.
func (s *badgeService) ListStoryBadges(ctx context.Context, storyID int64) ([]*models.EarnedBadge, error) {
	earned, err := s.repo.ListEarnedForStory(ctx, storyID)
	if err != nil {
		return nil, NewInternalError("failed to load story badges")
	}
	return earned, nil
}

// Evaluate delegates to the engine.
func (s *badgeService) Evaluate(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64) []models.AwardedBadge {
	return s.engine.Evaluate(ctx, kind, actorID, storyID)
}

// InvalidateUserBadges satisfies badges.Invalidator so a fresh award drops
// the stale cached list.
func (s *badgeService) InvalidateUserBadges(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, cache.UserBadgesKey(userID)); err != nil {
		s.logger.Warn("badge cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
