package services

import (
	"context"
	"errors"
	"time"

	"whispernet/internal/config"
	"whispernet/internal/models"
	"whispernet/internal/repositories"

	"go.uber.org/zap"
)

// FinishStoryRequest marks a story finished by a reader. Timezone is the
// reader's IANA zone at the moment of finishing, kept on the event so
// region aggregates never need a profile lookup.
type FinishStoryRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	StoryID  int64  `json:"story_id" validate:"required,gt=0"`
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

// ResonanceRequest leaves a single reaction word on a story.
type ResonanceRequest struct {
	UserID  int64  `json:"user_id" validate:"required,gt=0"`
	StoryID int64  `json:"story_id" validate:"required,gt=0"`
	Word    string `json:"word" validate:"required,max=40"`
}

// StoryActionResult reports the badges a reader action produced.
type StoryActionResult struct {
	Awarded []models.AwardedBadge `json:"awarded_badges,omitempty"`
}

// StoryService covers the reader actions that feed the badge engine.
type StoryService interface {
	GetStory(ctx context.Context, id int64) (*models.Story, error)
	FinishStory(ctx context.Context, req *FinishStoryRequest) (*StoryActionResult, error)
	LeaveResonance(ctx context.Context, req *ResonanceRequest) (*StoryActionResult, error)
}

type storyService struct {
	stories repositories.StoryRepository
	events  repositories.EventRepository
	badges  BadgeService
	cfg     *config.BadgeConfig
	logger  *zap.Logger
}

// NewStoryService creates a story reader-action service.
func NewStoryService(
	stories repositories.StoryRepository,
	events repositories.EventRepository,
	badgeSvc BadgeService,
	cfg *config.BadgeConfig,
	logger *zap.Logger,
) StoryService {
	return &storyService{
		stories: stories,
		events:  events,
		badges:  badgeSvc,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *storyService) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	story, err := s.stories.GetStory(ctx, id)
	if err != nil {
		return nil, NewInternalError("failed to load story")
	}
	if story == nil {
		return nil, EntityNotFoundError("story", id)
	}
	return story, nil
}

// FinishStory records that the reader finished the story. Finishing twice
// is a no-op rather than an error, so clients can retry freely.
func (s *storyService) FinishStory(ctx context.Context, req *FinishStoryRequest) (*StoryActionResult, error) {
	story, err := s.stories.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, NewInternalError("failed to load story")
	}
	if story == nil {
		return nil, EntityNotFoundError("story", req.StoryID)
	}

	done, err := s.events.HasFinished(ctx, req.UserID, req.StoryID)
	if err != nil {
		return nil, NewInternalError("failed to check finish state")
	}
	if done {
		return &StoryActionResult{}, nil
	}

	metadata := map[string]any{}
	if req.Timezone != "" {
		metadata["timezone"] = req.Timezone
	}
	if err := s.recordEvent(ctx, models.EventBookFinished, req.UserID, &req.StoryID, metadata); err != nil {
		return nil, NewInternalError("failed to record finish")
	}
	awarded := s.evaluateBadges(ctx, models.EventBookFinished, req.UserID, &req.StoryID)

	return &StoryActionResult{Awarded: awarded}, nil
}

// LeaveResonance attaches the reaction word, one per reader per story.
func (s *storyService) LeaveResonance(ctx context.Context, req *ResonanceRequest) (*StoryActionResult, error) {
	story, err := s.stories.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, NewInternalError("failed to load story")
	}
	if story == nil {
		return nil, EntityNotFoundError("story", req.StoryID)
	}
	if story.AuthorID == req.UserID {
		return nil, NewBusinessError("cannot resonate with your own story", "SELF_RESONANCE")
	}

	resonance := &models.Resonance{
		UserID:  req.UserID,
		StoryID: req.StoryID,
		Word:    req.Word,
	}
	if err := s.stories.InsertResonance(ctx, resonance); err != nil {
		if errors.Is(err, repositories.ErrDuplicateResonance) {
			return nil, NewConflictError("story already has your resonance", "DUPLICATE_RESONANCE")
		}
		return nil, NewInternalError("failed to save resonance")
	}

	if err := s.recordEvent(ctx, models.EventResonanceLeft, req.UserID, &req.StoryID, map[string]any{
		"word": req.Word,
	}); err != nil {
		// Resonance row exists; the event gap only delays badge progress.
		s.logger.Error("failed to record resonance event",
			zap.Int64("user_id", req.UserID),
			zap.Int64("story_id", req.StoryID),
			zap.Error(err),
		)
	}
	awarded := s.evaluateBadges(ctx, models.EventResonanceLeft, req.UserID, &req.StoryID)

	return &StoryActionResult{Awarded: awarded}, nil
}

func (s *storyService) recordEvent(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64, metadata map[string]any) error {
	event := newWhisperEvent(kind, actorID, storyID, metadata)
	if err := s.events.InsertWhisperEvent(ctx, event); err != nil {
		return err
	}
	return nil
}

func (s *storyService) evaluateBadges(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64) []models.AwardedBadge {
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
