// file: internal/repositories/event_repository.go
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"whispernet/internal/database"
	"whispernet/internal/models"

	"go.uber.org/zap"
)

// eventRepository implements EventRepository over the append-only
// whisper_events table.
type eventRepository struct {
	*BaseRepository
}

// NewEventRepository creates a new whisper event repository.
func NewEventRepository(db *database.Manager, logger *zap.Logger) EventRepository {
	return &eventRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// InsertWhisperEvent appends one event. Events are immutable once written;
// there is no update path.
func (r *eventRepository) InsertWhisperEvent(ctx context.Context, e *models.WhisperEvent) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	query := `
		INSERT INTO whisper_events (id, event_type, actor_id, story_id, metadata, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.ExecContext(
		ctx, query,
		e.ID, e.EventType, e.ActorID, e.StoryID, metadata, e.IsPublic, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert whisper event: %w", err)
	}
	return nil
}

// FinishedTimezones returns the timezone each finish of the story was
// reported from, one entry per finish event. Events without a timezone
// yield an empty string; the caller decides what counts as a region.
func (r *eventRepository) FinishedTimezones(ctx context.Context, storyID int64) ([]string, error) {
	query := `
		SELECT COALESCE(metadata->>'timezone', '')
		FROM whisper_events
		WHERE event_type = $1 AND story_id = $2`

	rows, err := r.QueryContext(ctx, query, models.EventBookFinished, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished timezones: %w", err)
	}
	defer rows.Close()

	var zones []string
	for rows.Next() {
		var tz string
		if err := rows.Scan(&tz); err != nil {
			return nil, fmt.Errorf("failed to scan timezone: %w", err)
		}
		zones = append(zones, tz)
	}
	return zones, rows.Err()
}

// CountFinishedOnShelf counts the distinct stories a user finished that sit
// on their own shelf and were written by someone else.
func (r *eventRepository) CountFinishedOnShelf(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT e.story_id)
		FROM whisper_events e
		INNER JOIN shelf_entries sh ON sh.story_id = e.story_id AND sh.user_id = e.actor_id
		INNER JOIN stories st ON st.id = e.story_id
		WHERE e.event_type = $1 AND e.actor_id = $2 AND st.author_id != $2`

	var count int
	if err := r.QueryRowContext(ctx, query, models.EventBookFinished, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count finished stories: %w", err)
	}
	return count, nil
}

// HasFinished reports whether the user already finished the story.
func (r *eventRepository) HasFinished(ctx context.Context, userID, storyID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM whisper_events
			WHERE event_type = $1 AND actor_id = $2 AND story_id = $3
		)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, models.EventBookFinished, userID, storyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check finish state: %w", err)
	}
	return exists, nil
}
