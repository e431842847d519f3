package badges

import (
	"context"
	"sync"

	"whispernet/internal/models"

	"go.uber.org/zap"
)

// ruleInput is the subject a rule evaluates: the acting user and, when the
// triggering event carries one, the story it concerns.
type ruleInput struct {
	actorID int64
	storyID *int64
}

// candidate is a qualifying result: the badge and the subject to credit.
// The credited user is not always the actor (Lamplighter credits the
// link's sender).
type candidate struct {
	badge   models.BadgeType
	userID  int64
	storyID *int64
}

// rule pairs a badge with its evaluator. needsStory rules are skipped when
// the triggering event has no story.
type rule struct {
	badge      models.BadgeType
	needsStory bool
	eval       func(e *Engine, ctx context.Context, in ruleInput) (*candidate, error)
}

// triggers maps each feature event kind to the rules it can affect. The
// table is static; adding a badge means adding a rule here, never touching
// the dispatch loop. Story-scoped rules run on every story-bearing event:
// an extra evaluation is harmless because the award write is idempotent.
var triggers = map[models.EventKind][]rule{
	models.EventBookClaimed: {
		{badge: models.BadgeEmber, needsStory: true, eval: (*Engine).evalEmber},
		{badge: models.BadgeCurrent, needsStory: true, eval: (*Engine).evalCurrent},
		{badge: models.BadgeWorldwalker, needsStory: true, eval: (*Engine).evalWorldwalker},
		{badge: models.BadgeResonant, needsStory: true, eval: (*Engine).evalResonant},
		{badge: models.BadgeLamplighter, eval: (*Engine).evalLamplighter},
		{badge: models.BadgeChainmaker, needsStory: true, eval: (*Engine).evalChainmaker},
	},
	models.EventBookGifted: {
		{badge: models.BadgeEmber, needsStory: true, eval: (*Engine).evalEmber},
		{badge: models.BadgeCurrent, needsStory: true, eval: (*Engine).evalCurrent},
		{badge: models.BadgeWorldwalker, needsStory: true, eval: (*Engine).evalWorldwalker},
		{badge: models.BadgeResonant, needsStory: true, eval: (*Engine).evalResonant},
		{badge: models.BadgeChainmaker, needsStory: true, eval: (*Engine).evalChainmaker},
	},
	models.EventBookFinished: {
		{badge: models.BadgeEmber, needsStory: true, eval: (*Engine).evalEmber},
		{badge: models.BadgeCurrent, needsStory: true, eval: (*Engine).evalCurrent},
		{badge: models.BadgeWorldwalker, needsStory: true, eval: (*Engine).evalWorldwalker},
		{badge: models.BadgeResonant, needsStory: true, eval: (*Engine).evalResonant},
		{badge: models.BadgeWanderer, eval: (*Engine).evalWanderer},
	},
	models.EventResonanceLeft: {
		{badge: models.BadgeEmber, needsStory: true, eval: (*Engine).evalEmber},
		{badge: models.BadgeCurrent, needsStory: true, eval: (*Engine).evalCurrent},
		{badge: models.BadgeWorldwalker, needsStory: true, eval: (*Engine).evalWorldwalker},
		{badge: models.BadgeResonant, needsStory: true, eval: (*Engine).evalResonant},
	},
}

// Evaluate runs every rule triggered by kind concurrently and returns the
// badges durably persisted during this call. Each badge in the result has
// already been written and queued for notification; the return value is an
// after-the-fact report.
//
// Evaluate never panics and never returns an error: badge evaluation must
// not block or fail the feature action that triggered it. A total failure
// degrades to a nil slice.
func (e *Engine) Evaluate(ctx context.Context, kind models.EventKind, actorID int64, storyID *int64) (awarded []models.AwardedBadge) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("badge evaluation panicked",
				zap.String("event_kind", string(kind)),
				zap.Int64("actor_id", actorID),
				zap.Any("panic", r),
			)
			awarded = nil
		}
	}()

	rules, ok := triggers[kind]
	if !ok {
		e.logger.Warn("no badge rules for event kind", zap.String("event_kind", string(kind)))
		return nil
	}

	in := ruleInput{actorID: actorID, storyID: storyID}

	var (
		mu      sync.Mutex
		results []models.AwardedBadge
		wg      sync.WaitGroup
	)

	for _, r := range rules {
		if r.needsStory && storyID == nil {
			continue
		}

		wg.Add(1)
		go func(r rule) {
			defer wg.Done()
			if b := e.runRule(ctx, r, in); b != nil {
				mu.Lock()
				results = append(results, *b)
				mu.Unlock()
			}
		}(r)
	}

	wg.Wait()
	return results
}

// runRule evaluates one rule inside its own error boundary. A failing or
// panicking evaluator contributes nothing and never disturbs its siblings.
func (e *Engine) runRule(ctx context.Context, r rule, in ruleInput) (awarded *models.AwardedBadge) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("badge rule panicked",
				zap.String("badge", string(r.badge)),
				zap.Any("panic", p),
			)
			awarded = nil
		}
	}()

	cand, err := r.eval(e, ctx, in)
	if err != nil {
		e.logger.Warn("badge rule evaluation failed",
			zap.String("badge", string(r.badge)),
			zap.Int64("actor_id", in.actorID),
			zap.Error(err),
		)
		return nil
	}
	if cand == nil {
		return nil
	}

	return e.award(ctx, cand.badge, cand.userID, cand.storyID)
}
