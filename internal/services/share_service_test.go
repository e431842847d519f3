package services

import (
	"context"
	"testing"
	"time"

	"whispernet/internal/config"
	"whispernet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newShareFixture() (*mockShareRepo, *mockStoryRepo, *mockEventRepo, *mockBadgeService, ShareService) {
	shares := newMockShareRepo()
	stories := newMockStoryRepo()
	events := newMockEventRepo()
	badgeSvc := &mockBadgeService{}
	cfg := &config.BadgeConfig{LinkExpiry: 14 * 24 * time.Hour}
	svc := NewShareService(shares, stories, events, badgeSvc, cfg, zap.NewNop())
	return shares, stories, events, badgeSvc, svc
}

func seedTestStory(stories *mockStoryRepo, id, authorID int64) {
	stories.stories[id] = &models.Story{ID: id, AuthorID: authorID, Title: "The Lantern Road", Status: "published"}
}

func TestCreateLink_FreshShareStartsChainAtZero(t *testing.T) {
	_, stories, events, badgeSvc, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	result, err := svc.CreateLink(context.Background(), &CreateLinkRequest{SenderID: 10, StoryID: 1})
	require.NoError(t, err)
	require.NotNil(t, result.Link)

	assert.Equal(t, 0, result.Link.ShareChainDepth)
	assert.Nil(t, result.Link.ParentLinkID)
	assert.NotEmpty(t, result.Link.Token)
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), result.Link.ExpiresAt, time.Minute)

	gifted := events.byKind(models.EventBookGifted)
	require.Len(t, gifted, 1)
	assert.Equal(t, int64(10), gifted[0].ActorID)

	require.Equal(t, 1, badgeSvc.callCount())
	assert.Equal(t, models.EventBookGifted, badgeSvc.lastCall().kind)
}

func TestCreateLink_ReshareExtendsChain(t *testing.T) {
	shares, stories, _, _, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	parent := &models.ShareLink{Token: "parent-token", SenderID: 10, StoryID: 1, ShareChainDepth: 2, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), parent))

	token := "parent-token"
	result, err := svc.CreateLink(context.Background(), &CreateLinkRequest{SenderID: 20, StoryID: 1, ParentToken: &token})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Link.ShareChainDepth)
	require.NotNil(t, result.Link.ParentLinkID)
	assert.Equal(t, parent.ID, *result.Link.ParentLinkID)
}

func TestCreateLink_ParentFromOtherStoryRejected(t *testing.T) {
	shares, stories, _, _, svc := newShareFixture()
	seedTestStory(stories, 1, 10)
	seedTestStory(stories, 2, 10)

	parent := &models.ShareLink{Token: "other-story", SenderID: 10, StoryID: 2, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), parent))

	token := "other-story"
	_, err := svc.CreateLink(context.Background(), &CreateLinkRequest{SenderID: 20, StoryID: 1, ParentToken: &token})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "VALIDATION_ERROR"))
}

func TestCreateLink_UnknownStory(t *testing.T) {
	_, _, _, _, svc := newShareFixture()

	_, err := svc.CreateLink(context.Background(), &CreateLinkRequest{SenderID: 10, StoryID: 99})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestClaimLink_ShelvesStoryAndEvaluates(t *testing.T) {
	shares, stories, events, badgeSvc, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	link := &models.ShareLink{Token: "tok", SenderID: 10, StoryID: 1, ShareChainDepth: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	result, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "tok", UserID: 20})
	require.NoError(t, err)
	require.NotNil(t, result.Link.ClaimedBy)
	assert.Equal(t, int64(20), *result.Link.ClaimedBy)

	onShelf, err := stories.OnShelf(context.Background(), 20, 1)
	require.NoError(t, err)
	assert.True(t, onShelf)

	claimed := events.byKind(models.EventBookClaimed)
	require.Len(t, claimed, 1)
	assert.Equal(t, int64(20), claimed[0].ActorID)
	assert.Equal(t, int64(10), claimed[0].Metadata["sender_id"])

	require.Equal(t, 1, badgeSvc.callCount())
	call := badgeSvc.lastCall()
	assert.Equal(t, models.EventBookClaimed, call.kind)
	assert.Equal(t, int64(20), call.actorID)
}

func TestClaimLink_SecondClaimConflicts(t *testing.T) {
	shares, stories, _, _, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	link := &models.ShareLink{Token: "tok", SenderID: 10, StoryID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	_, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "tok", UserID: 20})
	require.NoError(t, err)

	_, err = svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "tok", UserID: 30})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
}

func TestClaimLink_ExpiredLinkRejected(t *testing.T) {
	shares, stories, _, badgeSvc, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	link := &models.ShareLink{Token: "stale", SenderID: 10, StoryID: 1, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	_, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "stale", UserID: 20})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "BUSINESS_ERROR"))
	assert.Equal(t, 0, badgeSvc.callCount())
}

func TestClaimLink_SenderCannotClaimOwnLink(t *testing.T) {
	shares, stories, _, _, svc := newShareFixture()
	seedTestStory(stories, 1, 10)

	link := &models.ShareLink{Token: "mine", SenderID: 10, StoryID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	_, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "mine", UserID: 10})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "BUSINESS_ERROR"))
}

func TestClaimLink_UnknownToken(t *testing.T) {
	_, _, _, _, svc := newShareFixture()

	_, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "missing", UserID: 20})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestClaimLink_ShelfFailureDoesNotUndoClaim(t *testing.T) {
	shares, stories, _, badgeSvc, svc := newShareFixture()
	seedTestStory(stories, 1, 10)
	stories.shelfErr = assert.AnError

	link := &models.ShareLink{Token: "tok", SenderID: 10, StoryID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	result, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "tok", UserID: 20})
	require.NoError(t, err)
	assert.True(t, result.Link.IsClaimed())
	assert.Equal(t, 1, badgeSvc.callCount())
}

func TestClaimLink_AwardsPropagateToResult(t *testing.T) {
	shares, stories, _, badgeSvc, svc := newShareFixture()
	seedTestStory(stories, 1, 10)
	badgeSvc.awarded = []models.AwardedBadge{{BadgeType: models.BadgeEmber, UserID: 10}}

	link := &models.ShareLink{Token: "tok", SenderID: 10, StoryID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, shares.CreateLink(context.Background(), link))

	result, err := svc.ClaimLink(context.Background(), &ClaimLinkRequest{Token: "tok", UserID: 20})
	require.NoError(t, err)
	require.Len(t, result.Awarded, 1)
	assert.Equal(t, models.BadgeEmber, result.Awarded[0].BadgeType)
}
