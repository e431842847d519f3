// file: internal/repositories/story_repository.go
package repositories

import (
	"context"
	"errors"
	"fmt"

	"whispernet/internal/database"
	"whispernet/internal/models"

	"go.uber.org/zap"
)

// ErrDuplicateResonance marks a second reaction from the same user on the
// same story; at most one is allowed.
var ErrDuplicateResonance = errors.New("resonance already recorded for this user and story")

// storyRepository implements StoryRepository.
type storyRepository struct {
	*BaseRepository
}

// NewStoryRepository creates a new story repository.
func NewStoryRepository(db *database.Manager, logger *zap.Logger) StoryRepository {
	return &storyRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetStory retrieves a published story with its author name joined in.
// It returns (nil, nil) when the story does not exist.
func (r *storyRepository) GetStory(ctx context.Context, id int64) (*models.Story, error) {
	query := `
		SELECT s.id, s.author_id, s.title, s.status, s.created_at, s.updated_at,
			u.display_name
		FROM stories s
		INNER JOIN users u ON s.author_id = u.id
		WHERE s.id = $1 AND s.status != 'archived'`

	var story models.Story
	err := r.QueryRowContext(ctx, query, id).Scan(
		&story.ID, &story.AuthorID, &story.Title, &story.Status,
		&story.CreatedAt, &story.UpdatedAt, &story.AuthorName,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get story by ID: %w", err)
	}
	return &story, nil
}

// CountShelves counts the distinct users holding the story on a shelf.
func (r *storyRepository) CountShelves(ctx context.Context, storyID int64) (int, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM shelf_entries WHERE story_id = $1`

	var count int
	if err := r.QueryRowContext(ctx, query, storyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count shelf entries: %w", err)
	}
	return count, nil
}

// AddShelfEntry puts a story on a user's shelf. Re-adding is a no-op.
func (r *storyRepository) AddShelfEntry(ctx context.Context, entry *models.ShelfEntry) error {
	query := `
		INSERT INTO shelf_entries (user_id, story_id, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, story_id) DO NOTHING`

	if _, err := r.ExecContext(ctx, query, entry.UserID, entry.StoryID, entry.Source); err != nil {
		return fmt.Errorf("failed to add shelf entry: %w", err)
	}
	return nil
}

// OnShelf reports whether the story sits on the user's shelf.
func (r *storyRepository) OnShelf(ctx context.Context, userID, storyID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM shelf_entries WHERE user_id = $1 AND story_id = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, userID, storyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check shelf membership: %w", err)
	}
	return exists, nil
}

// InsertResonance records a reaction word. The unique index on
// (user_id, story_id) enforces the one-per-user rule.
func (r *storyRepository) InsertResonance(ctx context.Context, res *models.Resonance) error {
	query := `
		INSERT INTO resonances (user_id, story_id, word)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, res.UserID, res.StoryID, res.Word).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateResonance
		}
		return fmt.Errorf("failed to insert resonance: %w", err)
	}
	return nil
}

// CountResonances counts the reaction rows recorded for a story.
func (r *storyRepository) CountResonances(ctx context.Context, storyID int64) (int, error) {
	query := `SELECT COUNT(*) FROM resonances WHERE story_id = $1`

	var count int
	if err := r.QueryRowContext(ctx, query, storyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resonances: %w", err)
	}
	return count, nil
}
