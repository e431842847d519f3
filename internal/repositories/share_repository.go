// file: internal/repositories/share_repository.go
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"whispernet/internal/database"
	"whispernet/internal/models"

	"go.uber.org/zap"
)

// ErrLinkAlreadyClaimed marks a claim attempt on a link that was claimed
// first by someone else.
var ErrLinkAlreadyClaimed = errors.New("share link already claimed")

// shareRepository implements ShareRepository.
type shareRepository struct {
	*BaseRepository
}

// NewShareRepository creates a new share link repository.
func NewShareRepository(db *database.Manager, logger *zap.Logger) ShareRepository {
	return &shareRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const shareLinkColumns = `
	id, token, sender_id, story_id, parent_link_id,
	share_chain_depth, claimed_by, claimed_at, expires_at, created_at`

// CreateLink inserts a link. share_chain_depth has already been derived
// from the parent by the service and is never recomputed afterwards.
func (r *shareRepository) CreateLink(ctx context.Context, link *models.ShareLink) error {
	query := `
		INSERT INTO share_links (
			token, sender_id, story_id, parent_link_id,
			share_chain_depth, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.QueryRowContext(
		ctx, query,
		link.Token, link.SenderID, link.StoryID, link.ParentLinkID,
		link.ShareChainDepth, link.ExpiresAt,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create share link: %w", err)
	}

	r.GetLogger().Info("share link created",
		zap.Int64("link_id", link.ID),
		zap.Int64("sender_id", link.SenderID),
		zap.Int64("story_id", link.StoryID),
		zap.Int("depth", link.ShareChainDepth),
	)
	return nil
}

// GetLink fetches a link by id, (nil, nil) when absent.
func (r *shareRepository) GetLink(ctx context.Context, id int64) (*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE id = $1`
	return r.scanLink(r.QueryRowContext(ctx, query, id))
}

// GetLinkByToken fetches a link by its public token, (nil, nil) when absent.
func (r *shareRepository) GetLinkByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE token = $1`
	return r.scanLink(r.QueryRowContext(ctx, query, token))
}

// ClaimLink marks a link claimed by userID. The conditional update makes
// the claim first-wins: a second claimer gets ErrLinkAlreadyClaimed.
func (r *shareRepository) ClaimLink(ctx context.Context, linkID, userID int64) (*models.ShareLink, error) {
	query := `
		UPDATE share_links
		SET claimed_by = $2, claimed_at = NOW()
		WHERE id = $1 AND claimed_by IS NULL AND expires_at > NOW()
		RETURNING ` + shareLinkColumns

	link, err := r.scanLink(r.QueryRowContext(ctx, query, linkID, userID))
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkAlreadyClaimed
	}
	return link, nil
}

// MaxChainDepth returns the deepest share link recorded for the story,
// 0 when the story has no links.
func (r *shareRepository) MaxChainDepth(ctx context.Context, storyID int64) (int, error) {
	query := `SELECT COALESCE(MAX(share_chain_depth), 0) FROM share_links WHERE story_id = $1`

	var depth int
	if err := r.QueryRowContext(ctx, query, storyID).Scan(&depth); err != nil {
		return 0, fmt.Errorf("failed to get max chain depth: %w", err)
	}
	return depth, nil
}

// LinksAtDepth lists the story's links at or beyond minDepth.
func (r *shareRepository) LinksAtDepth(ctx context.Context, storyID int64, minDepth int) ([]*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + `
		FROM share_links
		WHERE story_id = $1 AND share_chain_depth >= $2`
	return r.listLinks(ctx, query, storyID, minDepth)
}

// LinksSentBy lists the links a user sent for one story.
func (r *shareRepository) LinksSentBy(ctx context.Context, userID, storyID int64) ([]*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + `
		FROM share_links
		WHERE sender_id = $1 AND story_id = $2`
	return r.listLinks(ctx, query, userID, storyID)
}

// LatestClaimedLink returns the most recent link the user claimed,
// (nil, nil) when they never claimed one.
func (r *shareRepository) LatestClaimedLink(ctx context.Context, userID int64) (*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + `
		FROM share_links
		WHERE claimed_by = $1
		ORDER BY claimed_at DESC
		LIMIT 1`
	return r.scanLink(r.QueryRowContext(ctx, query, userID))
}

func (r *shareRepository) listLinks(ctx context.Context, query string, args ...interface{}) ([]*models.ShareLink, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	defer rows.Close()

	var links []*models.ShareLink
	for rows.Next() {
		var l models.ShareLink
		if err := rows.Scan(
			&l.ID, &l.Token, &l.SenderID, &l.StoryID, &l.ParentLinkID,
			&l.ShareChainDepth, &l.ClaimedBy, &l.ClaimedAt, &l.ExpiresAt, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan share link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func (r *shareRepository) scanLink(row *sql.Row) (*models.ShareLink, error) {
	var l models.ShareLink
	err := row.Scan(
		&l.ID, &l.Token, &l.SenderID, &l.StoryID, &l.ParentLinkID,
		&l.ShareChainDepth, &l.ClaimedBy, &l.ClaimedAt, &l.ExpiresAt, &l.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan share link: %w", err)
	}
	return &l, nil
}
