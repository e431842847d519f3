package badges

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whispernet/internal/models"

	"go.uber.org/zap"
)

// mockStore is an in-memory Store for engine tests. Aggregate values are
// seeded per test; the earned-badge set enforces triple uniqueness under a
// mutex the way the database constraint does.
type mockStore struct {
	mu sync.Mutex

	stories map[int64]*models.Story
	users   map[int64]*models.User
	links   map[int64]*models.ShareLink

	shelfCounts     map[int64]int
	chainDepths     map[int64]int
	resonanceCounts map[int64]int
	timezones       map[int64][]string
	finishedOnShelf map[int64]int
	latestClaimed   map[int64]*models.ShareLink

	earnedKeys map[string]struct{}
	earnedRows []*models.EarnedBadge
	events     []*models.WhisperEvent

	// Per-aggregate failure injection.
	shelfErr     error
	depthErr     error
	resonanceErr error
	timezoneErr  error
	finishedErr  error
	insertErr    error
}

func newMockStore() *mockStore {
	return &mockStore{
		stories:         make(map[int64]*models.Story),
		users:           make(map[int64]*models.User),
		links:           make(map[int64]*models.ShareLink),
		shelfCounts:     make(map[int64]int),
		chainDepths:     make(map[int64]int),
		resonanceCounts: make(map[int64]int),
		timezones:       make(map[int64][]string),
		finishedOnShelf: make(map[int64]int),
		latestClaimed:   make(map[int64]*models.ShareLink),
		earnedKeys:      make(map[string]struct{}),
	}
}

func (m *mockStore) GetStory(_ context.Context, id int64) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stories[id], nil
}

func (m *mockStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockStore) GetLink(_ context.Context, id int64) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[id], nil
}

func (m *mockStore) CountShelves(_ context.Context, storyID int64) (int, error) {
	if m.shelfErr != nil {
		return 0, m.shelfErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shelfCounts[storyID], nil
}

func (m *mockStore) MaxChainDepth(_ context.Context, storyID int64) (int, error) {
	if m.depthErr != nil {
		return 0, m.depthErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chainDepths[storyID], nil
}

func (m *mockStore) CountResonances(_ context.Context, storyID int64) (int, error) {
	if m.resonanceErr != nil {
		return 0, m.resonanceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resonanceCounts[storyID], nil
}

func (m *mockStore) FinishedTimezones(_ context.Context, storyID int64) ([]string, error) {
	if m.timezoneErr != nil {
		return nil, m.timezoneErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timezones[storyID], nil
}

func (m *mockStore) CountFinishedOnShelf(_ context.Context, userID int64) (int, error) {
	if m.finishedErr != nil {
		return 0, m.finishedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishedOnShelf[userID], nil
}

func (m *mockStore) LatestClaimedLink(_ context.Context, userID int64) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestClaimed[userID], nil
}

func (m *mockStore) LinksAtDepth(_ context.Context, storyID int64, minDepth int) ([]*models.ShareLink, error) {
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

func (m *mockStore) LinksSentBy(_ context.Context, userID, storyID int64) ([]*models.ShareLink, error) {
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

func (m *mockStore) InsertEarnedBadge(_ context.Context, b *models.EarnedBadge) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := earnedKey(b.BadgeType, b.UserID, b.StoryID)
	if _, dup := m.earnedKeys[key]; dup {
		return ErrAlreadyEarned
	}
	m.earnedKeys[key] = struct{}{}
	m.earnedRows = append(m.earnedRows, b)
	return nil
}

func (m *mockStore) InsertWhisperEvent(_ context.Context, e *models.WhisperEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockStore) earnedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.earnedRows)
}

func (m *mockStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func earnedKey(badge models.BadgeType, userID int64, storyID *int64) string {
	var sid int64
	if storyID != nil {
		sid = *storyID
	}
	return fmt.Sprintf("%s|%d|%d", badge, userID, sid)
}

// mockNotifier records forwarded events and can be waited on.
type mockNotifier struct {
	mu     sync.Mutex
	events []*models.WhisperEvent
	err    error
	seen   chan struct{}
}

func newMockNotifier(capacity int) *mockNotifier {
	return &mockNotifier{seen: make(chan struct{}, capacity)}
}

func (n *mockNotifier) Notify(_ context.Context, event *models.WhisperEvent) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	select {
	case n.seen <- struct{}{}:
	default:
	}
	return n.err
}

func (n *mockNotifier) wait(timeout time.Duration) bool {
	select {
	case <-n.seen:
		return true
	case <-time.After(timeout):
		return false
	}
}

func newTestEngine(store *mockStore) *Engine {
	return NewEngine(Config{Store: store, Logger: zap.NewNop()})
}

// seedStory registers a story and its author and returns the story id.
func (m *mockStore) seedStory(storyID, authorID int64, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[storyID] = &models.Story{ID: storyID, AuthorID: authorID, Title: title, Status: "published"}
	if _, ok := m.users[authorID]; !ok {
		m.users[authorID] = &models.User{
			ID:          authorID,
			Username:    fmt.Sprintf("user%d", authorID),
			DisplayName: fmt.Sprintf("User %d", authorID),
			IsActive:    true,
			CreatedAt:   time.Now().Add(-30 * 24 * time.Hour),
		}
	}
}

func (m *mockStore) seedUser(id int64, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{
		ID:          id,
		Username:    fmt.Sprintf("user%d", id),
		DisplayName: fmt.Sprintf("User %d", id),
		IsActive:    true,
		CreatedAt:   createdAt,
	}
}

func (m *mockStore) seedLink(l *models.ShareLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.ID] = l
}

func ptr(v int64) *int64 { return &v }
