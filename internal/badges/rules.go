package badges

import (
	"context"
	"strings"
	"time"

	"whispernet/internal/models"
)

// Qualifying thresholds. All comparisons are inclusive.
const (
	emberShelfThreshold      = 5
	currentDepthThreshold    = 3
	worldwalkerRegionMin     = 2
	resonantThreshold        = 25
	wandererFinishedMin      = 10
	lamplighterAccountWindow = 24 * time.Hour
	chainmakerDepthThreshold = 3
)

// Each evaluator fetches its own aggregate and reports either a qualifying
// candidate or nil. Missing subjects and zero-row aggregates mean "does not
// qualify", never an error.

// evalEmber: the story sits on >=5 distinct users' shelves; credits the author.
func (e *Engine) evalEmber(ctx context.Context, in ruleInput) (*candidate, error) {
	story, err := e.store.GetStory(ctx, *in.storyID)
	if err != nil || story == nil {
		return nil, err
	}

	count, err := e.store.CountShelves(ctx, story.ID)
	if err != nil {
		return nil, err
	}
	if count < emberShelfThreshold {
		return nil, nil
	}

	return &candidate{badge: models.BadgeEmber, userID: story.AuthorID, storyID: &story.ID}, nil
}

// evalCurrent: some share link of the story reached chain depth >=3;
// credits the author.
func (e *Engine) evalCurrent(ctx context.Context, in ruleInput) (*candidate, error) {
	story, err := e.store.GetStory(ctx, *in.storyID)
	if err != nil || story == nil {
		return nil, err
	}

	depth, err := e.store.MaxChainDepth(ctx, story.ID)
	if err != nil {
		return nil, err
	}
	if depth < currentDepthThreshold {
		return nil, nil
	}

	return &candidate{badge: models.BadgeCurrent, userID: story.AuthorID, storyID: &story.ID}, nil
}

// evalWorldwalker: finished-story events for the story came from >=2 distinct
// coarse regions; credits the author. The region is the prefix of the
// reported timezone before the first slash ("America/Santiago" -> "America").
// Missing or unparseable timezones are excluded from the region set.
func (e *Engine) evalWorldwalker(ctx context.Context, in ruleInput) (*candidate, error) {
	story, err := e.store.GetStory(ctx, *in.storyID)
	if err != nil || story == nil {
		return nil, err
	}

	zones, err := e.store.FinishedTimezones(ctx, story.ID)
	if err != nil {
		return nil, err
	}

	regions := make(map[string]struct{})
	for _, tz := range zones {
		if region, ok := coarseRegion(tz); ok {
			regions[region] = struct{}{}
		}
	}
	if len(regions) < worldwalkerRegionMin {
		return nil, nil
	}

	return &candidate{badge: models.BadgeWorldwalker, userID: story.AuthorID, storyID: &story.ID}, nil
}

// coarseRegion derives the region bucket from a reported timezone string.
func coarseRegion(tz string) (string, bool) {
	region, _, found := strings.Cut(tz, "/")
	if !found || region == "" {
		return "", false
	}
	return region, true
}

// evalResonant: >=25 resonance rows exist for the story; credits the author.
func (e *Engine) evalResonant(ctx context.Context, in ruleInput) (*candidate, error) {
	story, err := e.store.GetStory(ctx, *in.storyID)
	if err != nil || story == nil {
		return nil, err
	}

	count, err := e.store.CountResonances(ctx, story.ID)
	if err != nil {
		return nil, err
	}
	if count < resonantThreshold {
		return nil, nil
	}

	return &candidate{badge: models.BadgeResonant, userID: story.AuthorID, storyID: &story.ID}, nil
}

// evalWanderer: the actor finished >=10 distinct stories that sit on their
// own shelf and were written by someone else; credits the actor.
func (e *Engine) evalWanderer(ctx context.Context, in ruleInput) (*candidate, error) {
	count, err := e.store.CountFinishedOnShelf(ctx, in.actorID)
	if err != nil {
		return nil, err
	}
	if count < wandererFinishedMin {
		return nil, nil
	}

	return &candidate{badge: models.BadgeWanderer, userID: in.actorID}, nil
}

// evalLamplighter: the actor claimed a link within 24 hours of creating
// their account; credits the link's original sender.
func (e *Engine) evalLamplighter(ctx context.Context, in ruleInput) (*candidate, error) {
	link, err := e.store.LatestClaimedLink(ctx, in.actorID)
	if err != nil || link == nil {
		return nil, err
	}
	if link.ClaimedAt == nil {
		return nil, nil
	}

	claimer, err := e.store.GetUser(ctx, in.actorID)
	if err != nil || claimer == nil {
		return nil, err
	}

	if link.ClaimedAt.Sub(claimer.CreatedAt) > lamplighterAccountWindow {
		return nil, nil
	}

	return &candidate{badge: models.BadgeLamplighter, userID: link.SenderID}, nil
}

// evalChainmaker: some share link of the story at depth >=3 descends from a
// link the actor sent; credits the actor. The ancestry walk is sequential,
// one fetch per hop, and short-circuits on the first match.
func (e *Engine) evalChainmaker(ctx context.Context, in ruleInput) (*candidate, error) {
	sent, err := e.store.LinksSentBy(ctx, in.actorID, *in.storyID)
	if err != nil || len(sent) == 0 {
		return nil, err
	}

	targets := make(map[int64]struct{}, len(sent))
	for _, l := range sent {
		targets[l.ID] = struct{}{}
	}

	deep, err := e.store.LinksAtDepth(ctx, *in.storyID, chainmakerDepthThreshold)
	if err != nil {
		return nil, err
	}

	for _, l := range deep {
		id := l.ID
		ok, err := e.IsAncestor(ctx, &id, targets)
		if err != nil {
			return nil, err
		}
		if ok {
			return &candidate{badge: models.BadgeChainmaker, userID: in.actorID}, nil
		}
	}

	return nil, nil
}
