// file: internal/repositories/badge_repository.go
package repositories

import (
	"context"
	"errors"
	"fmt"

	"whispernet/internal/badges"
	"whispernet/internal/database"
	"whispernet/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over the earned_badges ledger.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// InsertEarnedBadge appends one ledger row. The unique index on
// (badge_type, user_id, story_id) is the only concurrency control: a
// uniqueness conflict maps to badges.ErrAlreadyEarned, the expected outcome
// of a race, not a failure.
func (r *badgeRepository) InsertEarnedBadge(ctx context.Context, b *models.EarnedBadge) error {
	query := `
		INSERT INTO earned_badges (badge_type, user_id, story_id, earned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.QueryRowContext(
		ctx, query,
		b.BadgeType, b.UserID, b.StoryID, b.EarnedAt,
	).Scan(&b.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return badges.ErrAlreadyEarned
		}
		return fmt.Errorf("failed to insert earned badge: %w", err)
	}
	return nil
}

// ListEarnedByUser returns every badge a user holds, newest first.
func (r *badgeRepository) ListEarnedByUser(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	query := `
		SELECT id, badge_type, user_id, story_id, earned_at
		FROM earned_badges
		WHERE user_id = $1
		ORDER BY earned_at DESC`

	return r.listEarned(ctx, query, userID)
}

// ListEarnedForStory returns the badges a story has accumulated.
func (r *badgeRepository) ListEarnedForStory(ctx context.Context, storyID int64) ([]*models.EarnedBadge, error) {
	query := `
		SELECT id, badge_type, user_id, story_id, earned_at
		FROM earned_badges
		WHERE story_id = $1
		ORDER BY earned_at DESC`

	return r.listEarned(ctx, query, storyID)
}

func (r *badgeRepository) listEarned(ctx context.Context, query string, arg interface{}) ([]*models.EarnedBadge, error) {
	rows, err := r.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned badges: %w", err)
	}
	defer rows.Close()

	var earned []*models.EarnedBadge
	for rows.Next() {
		var b models.EarnedBadge
		if err := rows.Scan(&b.ID, &b.BadgeType, &b.UserID, &b.StoryID, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earned badge: %w", err)
		}
		earned = append(earned, &b)
	}
	return earned, rows.Err()
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
