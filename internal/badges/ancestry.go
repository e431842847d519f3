package badges

import (
	"context"

	"go.uber.org/zap"
)

// IsAncestor reports whether the lineage of linkID, the link itself
// included, contains any id in targets. A nil linkID is never an ancestor.
//
// The walk is an iterative loop carrying a visited set: share chains are
// expected to form a forest, but nothing in the store verifies that, so a
// revisited id terminates the walk as "not an ancestor" instead of looping.
func (e *Engine) IsAncestor(ctx context.Context, linkID *int64, targets map[int64]struct{}) (bool, error) {
	visited := make(map[int64]struct{})

	for cur := linkID; cur != nil; {
		id := *cur

		if _, ok := targets[id]; ok {
			return true, nil
		}
		if _, seen := visited[id]; seen {
			e.logger.Warn("cycle detected in share chain", zap.Int64("link_id", id))
			return false, nil
		}
		visited[id] = struct{}{}

		link, err := e.store.GetLink(ctx, id)
		if err != nil {
			return false, err
		}
		if link == nil {
			return false, nil
		}
		cur = link.ParentLinkID
	}

	return false, nil
}
