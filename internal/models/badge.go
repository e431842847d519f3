package models

import "time"

// BadgeType identifies one achievement badge.
type BadgeType string

const (
	BadgeEmber       BadgeType = "ember"
	BadgeCurrent     BadgeType = "current"
	BadgeWorldwalker BadgeType = "worldwalker"
	BadgeResonant    BadgeType = "resonant"
	BadgeWanderer    BadgeType = "wanderer"
	BadgeLamplighter BadgeType = "lamplighter"
	BadgeChainmaker  BadgeType = "chainmaker"
)

// BadgeScope says whether a badge is earned once per story or once per user.
type BadgeScope string

const (
	ScopeStory BadgeScope = "story"
	ScopeUser  BadgeScope = "user"
)

// BadgeDefinition is the static display metadata for one badge type.
// Definitions are loaded once at process start and never mutated.
type BadgeDefinition struct {
	Type    BadgeType  `json:"badge_type"`
	Name    string     `json:"name"`
	Tagline string     `json:"tagline"`
	Scope   BadgeScope `json:"scope"`
}

// EarnedBadge is one append-only ledger entry. The triple
// (badge_type, user_id, story_id) is unique; story_id is nil for
// user-scoped badges and the uniqueness still holds.
type EarnedBadge struct {
	ID        int64     `json:"id" db:"id"`
	BadgeType BadgeType `json:"badge_type" db:"badge_type"`
	UserID    int64     `json:"user_id" db:"user_id"`
	StoryID   *int64    `json:"story_id,omitempty" db:"story_id"`
	EarnedAt  time.Time `json:"earned_at" db:"earned_at"`
}

// AwardedBadge is the enriched report of a badge freshly persisted during
// one dispatch call, shaped for the celebration UI.
type AwardedBadge struct {
	BadgeType       BadgeType `json:"badge_type"`
	BadgeName       string    `json:"badge_name"`
	BadgeTagline    string    `json:"badge_tagline"`
	UserID          int64     `json:"user_id"`
	UserDisplayName string    `json:"user_display_name"`
	StoryID         *int64    `json:"story_id,omitempty"`
	StoryTitle      *string   `json:"story_title,omitempty"`
	EarnedAt        time.Time `json:"earned_at"`
}
