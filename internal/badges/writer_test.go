package badges

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"whispernet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockInvalidator struct {
	mu    sync.Mutex
	users []int64
}

func (m *mockInvalidator) InvalidateUserBadges(_ context.Context, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userID)
}

func TestAwardIdempotence(t *testing.T) {
	store := newMockStore()
	store.seedStory(1, 10, "Twice Told")
	engine := newTestEngine(store)

	first := engine.award(context.Background(), models.BadgeEmber, 10, ptr(1))
	require.NotNil(t, first)
	assert.Equal(t, "Ember", first.BadgeName)

	second := engine.award(context.Background(), models.BadgeEmber, 10, ptr(1))
	assert.Nil(t, second, "the duplicate attempt reports no new badge")

	assert.Equal(t, 1, store.earnedCount())
	assert.Equal(t, 1, store.eventCount(), "exactly one badge_earned event for one award")
}

func TestAwardConcurrentTriggers(t *testing.T) {
	store := newMockStore()
	store.seedStory(1, 10, "Photo Finish")
	engine := newTestEngine(store)

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		awarded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a := engine.award(context.Background(), models.BadgeResonant, 10, ptr(1)); a != nil {
				mu.Lock()
				awarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, awarded, "exactly one attempt wins the race")
	assert.Equal(t, 1, store.earnedCount())
	assert.Equal(t, 1, store.eventCount())
}

func TestAwardUserScopedBadgeHasNoStory(t *testing.T) {
	store := newMockStore()
	store.seedUser(7, time.Now().Add(-time.Hour))
	engine := newTestEngine(store)

	a := engine.award(context.Background(), models.BadgeWanderer, 7, nil)
	require.NotNil(t, a)
	assert.Nil(t, a.StoryID)
	assert.Nil(t, a.StoryTitle)
	assert.Equal(t, "User 7", a.UserDisplayName)
}

func TestAwardWriteFailureFailsOpen(t *testing.T) {
	store := newMockStore()
	store.insertErr = errors.New("store unavailable")
	engine := newTestEngine(store)

	a := engine.award(context.Background(), models.BadgeEmber, 10, ptr(1))
	assert.Nil(t, a, "a failed write is silently skipped, never surfaced")
	assert.Equal(t, 0, store.eventCount())
}

func TestAwardUnknownBadge(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store)

	a := engine.award(context.Background(), models.BadgeType("mystery"), 10, nil)
	assert.Nil(t, a)
	assert.Equal(t, 0, store.earnedCount())
}

func TestAwardForwardsNotification(t *testing.T) {
	store := newMockStore()
	store.seedStory(1, 10, "Heard")
	notifier := newMockNotifier(1)
	engine := NewEngine(Config{Store: store, Notifier: notifier, Logger: zap.NewNop()})

	a := engine.award(context.Background(), models.BadgeEmber, 10, ptr(1))
	require.NotNil(t, a)

	require.True(t, notifier.wait(2*time.Second), "bridge should receive the event")
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.Equal(t, models.EventBadgeEarned, event.EventType)
	assert.Equal(t, int64(10), event.ActorID)
	assert.Equal(t, "ember", event.Metadata["badge_type"])
	assert.Equal(t, "Heard", event.Metadata["story_title"])
}

func TestAwardNotifierFailureIgnored(t *testing.T) {
	store := newMockStore()
	store.seedStory(1, 10, "Unheard")
	notifier := newMockNotifier(1)
	notifier.err = errors.New("bridge down")
	engine := NewEngine(Config{Store: store, Notifier: notifier, Logger: zap.NewNop()})

	a := engine.award(context.Background(), models.BadgeEmber, 10, ptr(1))
	require.NotNil(t, a, "a bridge failure never blocks the award")
	require.True(t, notifier.wait(2*time.Second))
	assert.Equal(t, 1, store.earnedCount())
}

func TestAwardInvalidatesBadgeCache(t *testing.T) {
	store := newMockStore()
	store.seedUser(7, time.Now().Add(-time.Hour))
	inv := &mockInvalidator{}
	engine := NewEngine(Config{Store: store, Cache: inv, Logger: zap.NewNop()})

	require.NotNil(t, engine.award(context.Background(), models.BadgeWanderer, 7, nil))
	inv.mu.Lock()
	defer inv.mu.Unlock()
	assert.Equal(t, []int64{7}, inv.users)
}
