package repositories

import (
	"context"

	"whispernet/internal/models"
)

// UserRepository reads account data.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StoryRepository manages stories, shelf membership and resonances.
type StoryRepository interface {
	GetStory(ctx context.Context, id int64) (*models.Story, error)
	CountShelves(ctx context.Context, storyID int64) (int, error)
	AddShelfEntry(ctx context.Context, entry *models.ShelfEntry) error
	OnShelf(ctx context.Context, userID, storyID int64) (bool, error)
	InsertResonance(ctx context.Context, r *models.Resonance) error
	CountResonances(ctx context.Context, storyID int64) (int, error)
}

// ShareRepository manages share links and chain aggregates.
type ShareRepository interface {
	CreateLink(ctx context.Context, link *models.ShareLink) error
	GetLink(ctx context.Context, id int64) (*models.ShareLink, error)
	GetLinkByToken(ctx context.Context, token string) (*models.ShareLink, error)
	ClaimLink(ctx context.Context, linkID, userID int64) (*models.ShareLink, error)
	MaxChainDepth(ctx context.Context, storyID int64) (int, error)
	LinksAtDepth(ctx context.Context, storyID int64, minDepth int) ([]*models.ShareLink, error)
	LinksSentBy(ctx context.Context, userID, storyID int64) ([]*models.ShareLink, error)
	LatestClaimedLink(ctx context.Context, userID int64) (*models.ShareLink, error)
}

// EventRepository appends and aggregates whisper events.
type EventRepository interface {
	InsertWhisperEvent(ctx context.Context, e *models.WhisperEvent) error
	FinishedTimezones(ctx context.Context, storyID int64) ([]string, error)
	CountFinishedOnShelf(ctx context.Context, userID int64) (int, error)
	HasFinished(ctx context.Context, userID, storyID int64) (bool, error)
}

// BadgeRepository manages the earned-badge ledger.
type BadgeRepository interface {
	InsertEarnedBadge(ctx context.Context, b *models.EarnedBadge) error
	ListEarnedByUser(ctx context.Context, userID int64) ([]*models.EarnedBadge, error)
	ListEarnedForStory(ctx context.Context, storyID int64) ([]*models.EarnedBadge, error)
}

// EngineStore bundles the repositories into the aggregate surface the badge
// engine consumes (it satisfies badges.Store through method promotion).
type EngineStore struct {
	UserRepository
	StoryRepository
	ShareRepository
	EventRepository
	BadgeRepository
}
