package badges

import (
	"context"
	"time"

	"whispernet/internal/models"

	"go.uber.org/zap"
)

// Store is the aggregate data surface the engine reads and the two
// append-only writes it performs. Reads that find no row return (nil, nil)
// rather than an error, matching the repository convention.
type Store interface {
	GetStory(ctx context.Context, id int64) (*models.Story, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetLink(ctx context.Context, id int64) (*models.ShareLink, error)

	// Aggregates read by the rule evaluators.
	CountShelves(ctx context.Context, storyID int64) (int, error)
	MaxChainDepth(ctx context.Context, storyID int64) (int, error)
	CountResonances(ctx context.Context, storyID int64) (int, error)
	FinishedTimezones(ctx context.Context, storyID int64) ([]string, error)
	CountFinishedOnShelf(ctx context.Context, userID int64) (int, error)
	LatestClaimedLink(ctx context.Context, userID int64) (*models.ShareLink, error)
	LinksAtDepth(ctx context.Context, storyID int64, minDepth int) ([]*models.ShareLink, error)
	LinksSentBy(ctx context.Context, userID, storyID int64) ([]*models.ShareLink, error)

	// Writes performed by the award writer.
	InsertEarnedBadge(ctx context.Context, b *models.EarnedBadge) error
	InsertWhisperEvent(ctx context.Context, e *models.WhisperEvent) error
}

// Notifier is the outbound notification bridge. Calls are fire-and-forget
// from the engine's perspective; failures are logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, event *models.WhisperEvent) error
}

// Invalidator drops any cached badge state for a user after a fresh award.
type Invalidator interface {
	InvalidateUserBadges(ctx context.Context, userID int64)
}

// Engine evaluates badge eligibility after domain events and records awards.
// It holds no mutable state of its own; all shared state lives in the store.
type Engine struct {
	store         Store
	notifier      Notifier
	cache         Invalidator
	logger        *zap.Logger
	notifyTimeout time.Duration
}

// Config wires an Engine. Notifier and Cache are optional; Logger defaults
// to a no-op logger.
type Config struct {
	Store    Store
	Notifier Notifier
	Cache    Invalidator
	Logger   *zap.Logger
	// NotifyTimeout bounds one notification bridge delivery. Zero means
	// the default of 10s.
	NotifyTimeout time.Duration
}

// NewEngine creates a badge eligibility engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		store:         cfg.Store,
		notifier:      cfg.Notifier,
		cache:         cfg.Cache,
		logger:        logger,
		notifyTimeout: timeout,
	}
}
