package services

import (
	"context"
	"errors"
	"time"

	"whispernet/internal/config"
	"whispernet/internal/models"
	"whispernet/internal/repositories"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// CreateLinkRequest gifts a story onward. ParentToken is set when the
// sender re-shares a link they previously claimed, which is what grows
// the chain.
type CreateLinkRequest struct {
	SenderID    int64   `json:"sender_id" validate:"required,gt=0"`
	StoryID     int64   `json:"story_id" validate:"required,gt=0"`
	ParentToken *string `json:"parent_token,omitempty"`
}

// ClaimLinkRequest accepts a gifted link.
type ClaimLinkRequest struct {
	Token  string `json:"token" validate:"required"`
	UserID int64  `json:"user_id" validate:"required,gt=0"`
}

// ShareResult pairs the affected link with any badges freshly awarded by
// the action, for the celebration UI.
type ShareResult struct {
	Link    *models.ShareLink     `json:"link"`
	Awarded []models.AwardedBadge `json:"awarded_badges,omitempty"`
}

// ShareService manages share links and the claims against them.
type ShareService interface {
	CreateLink(ctx context.Context, req *CreateLinkRequest) (*ShareResult, error)
	ClaimLink(ctx context.Context, req *ClaimLinkRequest) (*ShareResult, error)
	GetLinkByToken(ctx context.Context, token string) (*models.ShareLink, error)
}

type shareService struct {
	shares  repositories.ShareRepository
	stories repositories.StoryRepository
	events  repositories.EventRepository
	badges  BadgeService
	cfg     *config.BadgeConfig
	logger  *zap.Logger
}

// NewShareService creates a share link service.
func NewShareService(
	shares repositories.ShareRepository,
	stories repositories.StoryRepository,
	events repositories.EventRepository,
	badgeSvc BadgeService,
	cfg *config.BadgeConfig,
	logger *zap.Logger,
) ShareService {
	return &shareService{
		shares:  shares,
		stories: stories,
		events:  events,
		badges:  badgeSvc,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateLink mints a share link. The chain depth is derived once, here:
// 0 for a fresh share, parent depth + 1 for a re-share. It is never
// recomputed after that.
func (s *shareService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*ShareResult, error) {
	story, err := s.stories.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, NewInternalError("failed to load story")
	}
	if story == nil {
		return nil, EntityNotFoundError("story", req.StoryID)
	}

	link := &models.ShareLink{
		Token:     newToken(),
		SenderID:  req.SenderID,
		StoryID:   req.StoryID,
		ExpiresAt: time.Now().UTC().Add(s.cfg.LinkExpiry),
	}

	if req.ParentToken != nil {
		parent, err := s.shares.GetLinkByToken(ctx, *req.ParentToken)
		if err != nil {
			return nil, NewInternalError("failed to load parent link")
		}
		if parent == nil || parent.StoryID != req.StoryID {
			return nil, NewValidationError("parent link does not belong to this story", nil)
		}
		link.ParentLinkID = &parent.ID
		link.ShareChainDepth = parent.ShareChainDepth + 1
	}

	if err := s.shares.CreateLink(ctx, link); err != nil {
		return nil, NewInternalError("failed to create share link")
	}

	s.recordEvent(ctx, models.EventBookGifted, req.SenderID, &req.StoryID, map[string]any{
		"link_id": link.ID,
		"depth":   link.ShareChainDepth,
	})
	awarded := s.evaluateBadges(ctx, models.EventBookGifted, req.SenderID, &req.StoryID)

	return &ShareResult{Link: link, Awarded: awarded}, nil
}

// ClaimLink accepts a gifted link: marks it claimed, shelves the story for
// the claimer, records the event and evaluates badges. The repository's
// conditional update makes the claim first-wins.
func (s *shareService) ClaimLink(ctx context.Context, req *ClaimLinkRequest) (*ShareResult, error) {
	link, err := s.shares.GetLinkByToken(ctx, req.Token)
	if err != nil {
		return nil, NewInternalError("failed to load share link")
	}
	if link == nil {
		return nil, EntityNotFoundError("share link", req.Token)
	}
	if link.IsExpired(time.Now()) {
		return nil, NewBusinessError("share link has expired", "LINK_EXPIRED")
	}
	if link.SenderID == req.UserID {
		return nil, NewBusinessError("cannot claim your own share link", "SELF_CLAIM")
	}

	claimed, err := s.shares.ClaimLink(ctx, link.ID, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkAlreadyClaimed) {
			return nil, NewConflictError("share link already claimed", "LINK_CLAIMED")
		}
		return nil, NewInternalError("failed to claim share link")
	}

	entry := &models.ShelfEntry{UserID: req.UserID, StoryID: claimed.StoryID, Source: "claimed"}
	if err := s.stories.AddShelfEntry(ctx, entry); err != nil {
		// The claim stands; the shelf entry can be recreated later.
		s.logger.Error("failed to shelve claimed story",
			zap.Int64("user_id", req.UserID),
			zap.Int64("story_id", claimed.StoryID),
			zap.Error(err),
		)
	}

	s.recordEvent(ctx, models.EventBookClaimed, req.UserID, &claimed.StoryID, map[string]any{
		"link_id":   claimed.ID,
		"sender_id": claimed.SenderID,
		"depth":     claimed.ShareChainDepth,
	})
	awarded := s.evaluateBadges(ctx, models.EventBookClaimed, req.UserID, &claimed.StoryID)

	return &ShareResult{Link: claimed, Awarded: awarded}, nil
}

// GetLinkByToken resolves a link for preview before claiming.
func (s *shareService) GetLinkByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.shares.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, NewInternalError("failed to load share link")
	}
	if link == nil {
		return nil, EntityNotFoundError("share link", token)
	}
	return link, nil
}

// recordEvent appends a whisper event. A failed append is logged and
// swallowed: the feature action must still succeed.
func (s *shareService) recordEvent(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64, metadata map[string]any) {
	event := newWhisperEvent(kind, actorID, storyID, metadata)
	if err := s.events.InsertWhisperEvent(ctx, event); err != nil {
		s.logger.Error("failed to record whisper event",
			zap.String("event_type", string(kind)),
			zap.Int64("actor_id", actorID),
			zap.Error(err),
		)
	}
}

// evaluateBadges triggers the engine. With async evaluation configured the
// awards are not reported back to the caller; they still persist and notify.
func (s *shareService) evaluateBadges(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64) []models.AwardedBadge {
	if s.cfg.EvaluateAsync {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.badges.Evaluate(ctx, kind, actorID, storyID)
		}()
		return nil
	}
	return s.badges.Evaluate(ctx, kind, actorID, storyID)
}

// newWhisperEvent builds an event row with a fresh id.
func newWhisperEvent(kind models.EventKind, actorID int64, storyID *int64, metadata map[string]any) *models.WhisperEvent {
	id, _ := uuid.NewV4()
	return &models.WhisperEvent{
		ID:        id.String(),
		EventType: kind,
		ActorID:   actorID,
		StoryID:   storyID,
		Metadata:  metadata,
		IsPublic:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// newToken mints the public share token.
func newToken() string {
	token, _ := uuid.NewV4()
	return token.String()
}
