package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whispernet/internal/models"
	"whispernet/internal/repositories"
)

// ===============================
// REPOSITORY MOCKS
// ===============================

type mockStoryRepo struct {
	mu         sync.Mutex
	stories    map[int64]*models.Story
	shelf      []*models.ShelfEntry
	resonances map[string]*models.Resonance

	storyErr     error
	shelfErr     error
	resonanceErr error
}

func newMockStoryRepo() *mockStoryRepo {
	return &mockStoryRepo{
		stories:    make(map[int64]*models.Story),
		resonances: make(map[string]*models.Resonance),
	}
}

func (m *mockStoryRepo) GetStory(_ context.Context, id int64) (*models.Story, error) {
	if m.storyErr != nil {
		return nil, m.storyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stories[id], nil
}

func (m *mockStoryRepo) CountShelves(_ context.Context, storyID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.shelf {
		if e.StoryID == storyID {
			n++
		}
	}
	return n, nil
}

func (m *mockStoryRepo) AddShelfEntry(_ context.Context, entry *models.ShelfEntry) error {
	if m.shelfErr != nil {
		return m.shelfErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.shelf {
		if e.UserID == entry.UserID && e.StoryID == entry.StoryID {
			return nil
		}
	}
	m.shelf = append(m.shelf, entry)
	return nil
}

func (m *mockStoryRepo) OnShelf(_ context.Context, userID, storyID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.shelf {
		if e.UserID == userID && e.StoryID == storyID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStoryRepo) InsertResonance(_ context.Context, r *models.Resonance) error {
	if m.resonanceErr != nil {
		return m.resonanceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resonanceKey(r.UserID, r.StoryID)
	if _, ok := m.resonances[key]; ok {
		return repositories.ErrDuplicateResonance
	}
	m.resonances[key] = r
	return nil
}

func (m *mockStoryRepo) CountResonances(_ context.Context, storyID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.resonances {
		if r.StoryID == storyID {
			n++
		}
	}
	return n, nil
}

func resonanceKey(userID, storyID int64) string {
	return fmt.Sprintf("%d:%d", userID, storyID)
}

type mockShareRepo struct {
	mu     sync.Mutex
	nextID int64
	links  map[int64]*models.ShareLink

	createErr error
	claimErr  error
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{links: make(map[int64]*models.ShareLink)}
}

func (m *mockShareRepo) CreateLink(_ context.Context, link *models.ShareLink) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	link.ID = m.nextID
	link.CreatedAt = time.Now()
	m.links[link.ID] = link
	return nil
}

func (m *mockShareRepo) GetLink(_ context.Context, id int64) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[id], nil
}

func (m *mockShareRepo) GetLinkByToken(_ context.Context, token string) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.Token == token {
			return l, nil
		}
	}
	return nil, nil
}

func (m *mockShareRepo) ClaimLink(_ context.Context, linkID, userID int64) (*models.ShareLink, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok || link.ClaimedBy != nil {
		return nil, repositories.ErrLinkAlreadyClaimed
	}
	now := time.Now()
	link.ClaimedBy = &userID
	link.ClaimedAt = &now
	return link, nil
}

func (m *mockShareRepo) MaxChainDepth(_ context.Context, storyID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	depth := 0
	for _, l := range m.links {
		if l.StoryID == storyID && l.ShareChainDepth > depth {
			depth = l.ShareChainDepth
		}
	}
	return depth, nil
}

func (m *mockShareRepo) LinksAtDepth(_ context.Context, storyID int64, minDepth int) ([]*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ShareLink
	for _, l := range m.links {
		if l.StoryID == storyID && l.ShareChainDepth >= minDepth {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockShareRepo) LinksSentBy(_ context.Context, userID, storyID int64) ([]*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ShareLink
	for _, l := range m.links {
		if l.SenderID == userID && l.StoryID == storyID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockShareRepo) LatestClaimedLink(_ context.Context, userID int64) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ShareLink
	for _, l := range m.links {
		if l.ClaimedBy != nil && *l.ClaimedBy == userID {
			if latest == nil || l.ClaimedAt.After(*latest.ClaimedAt) {
				latest = l
			}
		}
	}
	return latest, nil
}

type mockEventRepo struct {
	mu       sync.Mutex
	events   []*models.WhisperEvent
	finished map[string]bool

	insertErr error
	hasErr    error
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{finished: make(map[string]bool)}
}

func (m *mockEventRepo) InsertWhisperEvent(_ context.Context, e *models.WhisperEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	if e.EventType == models.EventBookFinished && e.StoryID != nil {
		m.finished[resonanceKey(e.ActorID, *e.StoryID)] = true
	}
	return nil
}

func (m *mockEventRepo) FinishedTimezones(_ context.Context, storyID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zones []string
	for _, e := range m.events {
		if e.EventType != models.EventBookFinished || e.StoryID == nil || *e.StoryID != storyID {
			continue
		}
		if tz, ok := e.Metadata["timezone"].(string); ok {
			zones = append(zones, tz)
		} else {
			zones = append(zones, "")
		}
	}
	return zones, nil
}

func (m *mockEventRepo) CountFinishedOnShelf(_ context.Context, userID int64) (int, error) {
	return 0, nil
}

func (m *mockEventRepo) HasFinished(_ context.Context, userID, storyID int64) (bool, error) {
	if m.hasErr != nil {
		return false, m.hasErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished[resonanceKey(userID, storyID)], nil
}

func (m *mockEventRepo) byKind(kind models.EventKind) []*models.WhisperEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WhisperEvent
	for _, e := range m.events {
		if e.EventType == kind {
			out = append(out, e)
		}
	}
	return out
}

// ===============================
// BADGE SERVICE MOCK
// ===============================

// mockBadgeService records evaluation calls and returns a canned award list.
type mockBadgeService struct {
	mu      sync.Mutex
	calls   []evaluateCall
	awarded []models.AwardedBadge
}

type evaluateCall struct {
	kind    models.EventKind
	actorID int64
	storyID *int64
}

func (m *mockBadgeService) Catalog(_ context.Context) []models.BadgeDefinition {
	return nil
}

func (m *mockBadgeService) ListUserBadges(_ context.Context, _ int64) ([]*models.EarnedBadge, error) {
	return nil, nil
}

func (m *mockBadgeService) ListStoryBadges(_ context.Context, _ int64) ([]*models.EarnedBadge, error) {
	return nil, nil
}

func (m *mockBadgeService) Evaluate(_ context.Context, kind models.EventKind, actorID int64, storyID *int64) []models.AwardedBadge {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, evaluateCall{kind: kind, actorID: actorID, storyID: storyID})
	return m.awarded
}

func (m *mockBadgeService) InvalidateUserBadges(_ context.Context, _ int64) {}

func (m *mockBadgeService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockBadgeService) lastCall() evaluateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}
