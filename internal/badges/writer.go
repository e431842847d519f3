package badges

import (
	"context"
	"errors"
	"time"

	"whispernet/internal/models"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyEarned is returned by Store.InsertEarnedBadge when the
// (badge_type, user_id, story_id) triple already has a ledger row. It is the
// expected outcome of a race, not a failure: the store's uniqueness
// constraint is the only concurrency control the engine relies on.
var ErrAlreadyEarned = errors.New("badge already earned")

// award attempts the idempotent persist of one earned badge. It returns the
// enriched award report on a genuine first award and nil in every other
// case; the caller never sees an error from this path.
func (e *Engine) award(ctx context.Context, badge models.BadgeType, userID int64, storyID *int64) *models.AwardedBadge {
	def, ok := Definition(badge)
	if !ok {
		e.logger.Error("award attempted for unknown badge", zap.String("badge", string(badge)))
		return nil
	}

	earned := &models.EarnedBadge{
		BadgeType: badge,
		UserID:    userID,
		StoryID:   storyID,
		EarnedAt:  time.Now().UTC(),
	}

	if err := e.store.InsertEarnedBadge(ctx, earned); err != nil {
		if errors.Is(err, ErrAlreadyEarned) {
			return nil
		}
		e.logger.Error("failed to persist earned badge",
			zap.String("badge", string(badge)),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	awarded := &models.AwardedBadge{
		BadgeType:    badge,
		BadgeName:    def.Name,
		BadgeTagline: def.Tagline,
		UserID:       userID,
		StoryID:      storyID,
		EarnedAt:     earned.EarnedAt,
	}
	e.resolveSubjects(ctx, awarded)

	event := e.buildEarnedEvent(awarded)
	if err := e.store.InsertWhisperEvent(ctx, event); err != nil {
		e.logger.Error("failed to record badge_earned event",
			zap.String("badge", string(badge)),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	if e.notifier != nil {
		go e.forwardNotification(event)
	}
	if e.cache != nil {
		e.cache.InvalidateUserBadges(ctx, userID)
	}

	e.logger.Info("badge awarded",
		zap.String("badge", string(badge)),
		zap.Int64("user_id", userID),
		zap.Int64p("story_id", storyID),
	)

	return awarded
}

// resolveSubjects fills in display names for the celebration payload.
// Resolution is best effort: a missing row leaves the field empty.
func (e *Engine) resolveSubjects(ctx context.Context, awarded *models.AwardedBadge) {
	if user, err := e.store.GetUser(ctx, awarded.UserID); err != nil {
		e.logger.Warn("failed to resolve awarded user", zap.Int64("user_id", awarded.UserID), zap.Error(err))
	} else if user != nil {
		awarded.UserDisplayName = user.DisplayName
	}

	if awarded.StoryID == nil {
		return
	}
	if story, err := e.store.GetStory(ctx, *awarded.StoryID); err != nil {
		e.logger.Warn("failed to resolve awarded story", zap.Int64("story_id", *awarded.StoryID), zap.Error(err))
	} else if story != nil {
		awarded.StoryTitle = &story.Title
	}
}

// buildEarnedEvent shapes the badge_earned whisper event written on a first
// award and forwarded to the notification bridge.
func (e *Engine) buildEarnedEvent(awarded *models.AwardedBadge) *models.WhisperEvent {
	id, _ := uuid.NewV4()

	metadata := map[string]any{
		"badge_type":    string(awarded.BadgeType),
		"badge_name":    awarded.BadgeName,
		"badge_tagline": awarded.BadgeTagline,
		"display_name":  awarded.UserDisplayName,
	}
	if awarded.StoryTitle != nil {
		metadata["story_title"] = *awarded.StoryTitle
	}

	return &models.WhisperEvent{
		ID:        id.String(),
		EventType: models.EventBadgeEarned,
		ActorID:   awarded.UserID,
		StoryID:   awarded.StoryID,
		Metadata:  metadata,
		IsPublic:  true,
		CreatedAt: awarded.EarnedAt,
	}
}

// forwardNotification hands the event to the bridge without awaiting its
// outcome. The bridge runs outside the request, so it gets its own context.
func (e *Engine) forwardNotification(event *models.WhisperEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("notification bridge panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
	defer cancel()

	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("notification bridge delivery failed",
			zap.String("event_type", string(event.EventType)),
			zap.Int64("actor_id", event.ActorID),
			zap.Error(err),
		)
	}
}
