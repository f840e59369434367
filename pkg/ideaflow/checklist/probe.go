package checklist

import (
	"context"
	"sort"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Judgment is the outcome of the external follow-up decision for a
// partially-addressed criterion: keep probing with a follow-up
// question, or stop and move on.
type Judgment struct {
	Continue bool
	// Question is the follow-up to surface when Continue is true.
	Question string
}

// Judge decides whether a partial criterion deserves its one follow-up
// probe. Implemented by an LLM call at the edge; fakes in tests.
type Judge interface {
	Judge(ctx context.Context, item state.ChecklistItem, userText string, attempts int) (Judgment, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, item state.ChecklistItem, userText string, attempts int) (Judgment, error)

// Judge implements Judge.
func (f JudgeFunc) Judge(ctx context.Context, item state.ChecklistItem, userText string, attempts int) (Judgment, error) {
	return f(ctx, item, userText, attempts)
}

// ProbeCandidate selects at most one partial item to probe this turn:
// the highest-priority id in PartialItems that has never been probed.
// Returns ok=false when no item is eligible.
func ProbeCandidate(c *state.Checklist) (string, bool) {
	candidates := make([]state.ChecklistItem, 0, len(c.PartialItems))
	for id := range c.PartialItems {
		if c.FollowupCounts[id] != 0 || c.DismissedItems[id] {
			continue
		}
		if item := c.Item(id); item != nil {
			candidates = append(candidates, *item)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID // deterministic tie-break
	})
	return candidates[0].ID, true
}

// ApplyJudgment records the follow-up decision for id and returns the
// updated checklist copy.
//
// On continue, the followup count is incremented (capping the id at
// one probe ever) and the id recorded as LastProbedItem. On stop, the
// id leaves partial tracking permanently: it is neither completed nor
// re-eligible, and the count is not incremented.
func ApplyJudgment(prior *state.Checklist, id string, j Judgment) *state.Checklist {
	c := prior.Clone()
	if j.Continue {
		c.FollowupCounts[id]++
		c.LastProbedItem = id
	} else {
		delete(c.PartialItems, id)
		c.DismissedItems[id] = true
	}
	return c
}
