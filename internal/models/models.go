// file: internal/models/models.go
package models

import (
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User represents an account in the system. Only the slice of the profile
// that the badge engine and its feature actions need is modeled here;
// authentication state lives behind the external auth boundary.
type User struct {
	ID          int64  `json:"id" db:"id"`
	Username    string `json:"username" db:"username" validate:"required,min=3,max=50,alphanum"`
	DisplayName string `json:"display_name" db:"display_name"`

	// Coarse location hint reported by the client, e.g. "America/Santiago".
	// Used only as an aggregate source; never validated as a real zone.
	Timezone *string `json:"timezone,omitempty" db:"timezone"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Story represents a published story.
type Story struct {
	ID       int64  `json:"id" db:"id"`
	AuthorID int64  `json:"author_id" db:"author_id"`
	Title    string `json:"title" db:"title" validate:"required,max=200"`
	Status   string `json:"status" db:"status" validate:"oneof=draft published archived"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Computed/joined fields (not in DB)
	AuthorName     string `json:"author_name,omitempty" db:"-"`
	ShelfCount     int    `json:"shelf_count,omitempty" db:"-"`
	ResonanceCount int    `json:"resonance_count,omitempty" db:"-"`
}

// ShareLink is one hop in a share chain. ParentLinkID points at the link
// the sharer originally claimed; the pointers form a forest rooted at links
// with a nil parent. ShareChainDepth is fixed at creation time:
// 0 for a root link, parent depth + 1 otherwise.
type ShareLink struct {
	ID              int64      `json:"id" db:"id"`
	Token           string     `json:"token" db:"token"`
	SenderID        int64      `json:"sender_id" db:"sender_id"`
	StoryID         int64      `json:"story_id" db:"story_id"`
	ParentLinkID    *int64     `json:"parent_link_id,omitempty" db:"parent_link_id"`
	ShareChainDepth int        `json:"share_chain_depth" db:"share_chain_depth"`
	ClaimedBy       *int64     `json:"claimed_by,omitempty" db:"claimed_by"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	ExpiresAt       time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// IsClaimed reports whether the link has already been claimed.
func (l *ShareLink) IsClaimed() bool {
	return l.ClaimedBy != nil
}

// IsExpired reports whether the link can no longer be claimed.
func (l *ShareLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Resonance is a short reaction word attached to a story,
// at most one per (user, story).
type Resonance struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	StoryID   int64     `json:"story_id" db:"story_id"`
	Word      string    `json:"word" db:"word" validate:"required,max=40"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShelfEntry records that a story sits on a user's personal shelf,
// whether through authorship, claiming a share link, or saving it directly.
type ShelfEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	StoryID   int64     `json:"story_id" db:"story_id"`
	Source    string    `json:"source" db:"source"` // authored, claimed, saved
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ===============================
// DOMAIN EVENTS
// ===============================

// EventKind enumerates the whisper event types the engine produces
// and consumes.
type EventKind string

const (
	EventBookClaimed   EventKind = "book_claimed"
	EventBookGifted    EventKind = "book_gifted"
	EventBookFinished  EventKind = "book_finished"
	EventResonanceLeft EventKind = "resonance_left"
	EventBadgeEarned   EventKind = "badge_earned"
)

// FeatureEventKinds lists the kinds emitted by feature actions, i.e. the
// kinds the eligibility dispatcher accepts as triggers.
func FeatureEventKinds() []EventKind {
	return []EventKind{EventBookClaimed, EventBookGifted, EventBookFinished, EventResonanceLeft}
}

// WhisperEvent is an immutable append-only record of a notable action.
// It doubles as the notification routing payload and as an aggregate
// source for badge rules.
type WhisperEvent struct {
	ID        string         `json:"id" db:"id"`
	EventType EventKind      `json:"event_type" db:"event_type"`
	ActorID   int64          `json:"actor_id" db:"actor_id"`
	StoryID   *int64         `json:"story_id,omitempty" db:"story_id"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	IsPublic  bool           `json:"is_public" db:"is_public"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// ===============================
// PAGINATION
// ===============================

// PaginationParams carries paging inputs parsed from a request.
type PaginationParams struct {
	Limit  int    `json:"limit" validate:"min=0,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Sort   string `json:"sort"`
	Order  string `json:"order" validate:"omitempty,oneof=asc desc"`
}

// PaginationMeta describes the page that was returned.
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// PaginatedResponse wraps a page of results with its metadata.
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
