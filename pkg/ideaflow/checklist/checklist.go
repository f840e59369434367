// Package checklist implements the progress-tracking engine embedded
// in the conversational turn node.
//
// The engine consumes per-criterion completion scores (produced by an
// external LLM analysis call, or by the deterministic keyword fallback
// when that call is unavailable) and evolves the checklist state:
// which criteria are fully addressed, which deserve exactly one
// follow-up probe, and what the bot should surface next.
package checklist

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Thresholds hold the score cutoffs for the two analysis paths.
//
// Fallback is intentionally lower than Complete: the keyword heuristic
// has lower precision, so it is deliberately more permissive. The two
// are independently tunable; do not assume they must match.
type Thresholds struct {
	// Complete marks a criterion fully addressed (LLM path).
	Complete float64
	// Partial marks a criterion partially addressed, eligible for one
	// follow-up probe.
	Partial float64
	// Fallback is the completion cutoff on the keyword-heuristic path.
	Fallback float64
}

// DefaultThresholds are the standard cutoffs.
var DefaultThresholds = Thresholds{
	Complete: 0.8,
	Partial:  0.3,
	Fallback: 0.4,
}

// responseSnippetLen bounds the stored response excerpt per item.
const responseSnippetLen = 200

// Apply folds one turn's per-criterion scores into the checklist and
// returns the updated copy. The prior checklist is not modified.
//
// Completed ids never regress: scores for already-completed ids are
// ignored, and completion removes an id from partial tracking.
// ActiveItems and Progress are always recomputed from scratch.
func Apply(prior *state.Checklist, scores map[string]float64, userText string, th Thresholds) *state.Checklist {
	return apply(prior, scores, userText, th.Complete, th.Partial)
}

func apply(prior *state.Checklist, scores map[string]float64, userText string, complete, partial float64) *state.Checklist {
	c := prior.Clone()
	now := time.Now().UTC()
	snippet := truncate(userText, responseSnippetLen)

	var firstCompleted string

	// Iterate items in declaration order so ties resolve
	// deterministically rather than by map iteration order.
	for i := range c.Items {
		item := &c.Items[i]
		score, ok := scores[item.ID]
		if !ok || c.CompletedItems[item.ID] {
			continue
		}

		switch {
		case score >= complete:
			c.CompletedItems[item.ID] = true
			delete(c.PartialItems, item.ID)
			item.Completed = true
			item.Response = snippet
			completedAt := now
			item.CompletedAt = &completedAt
			if firstCompleted == "" {
				firstCompleted = item.ID
			}
		case score >= partial:
			if !c.PartialItems[item.ID] && !c.DismissedItems[item.ID] {
				c.PartialItems[item.ID] = true
				item.Response = snippet
			}
		}
	}

	if firstCompleted != "" {
		c.LastAddressedItem = firstCompleted
	}

	recompute(c)
	return c
}

// recompute refreshes the derived fields: progress, completion flag,
// and the active item view.
func recompute(c *state.Checklist) {
	if len(c.Items) > 0 {
		c.Progress = int(float64(len(c.CompletedItems))/float64(len(c.Items))*100 + 0.5)
	} else {
		c.Progress = 0
	}
	c.IsComplete = len(c.CompletedItems) >= c.MinRequired
	c.ActiveItems = activeItems(c, 2)
}

// activeItems returns the top-n incomplete item ids by priority
// descending. Derived view only; never patched incrementally.
func activeItems(c *state.Checklist, n int) []string {
	incomplete := make([]state.ChecklistItem, 0, len(c.Items))
	for _, item := range c.Items {
		if !c.CompletedItems[item.ID] {
			incomplete = append(incomplete, item)
		}
	}
	sort.SliceStable(incomplete, func(i, j int) bool {
		return incomplete[i].Priority > incomplete[j].Priority
	})
	if len(incomplete) > n {
		incomplete = incomplete[:n]
	}
	ids := make([]string, len(incomplete))
	for i, item := range incomplete {
		ids[i] = item.ID
	}
	return ids
}

// Questions returns the prompt text for the currently active items,
// used when question generation falls back to the canned prompts.
func Questions(c *state.Checklist) []string {
	out := make([]string, 0, len(c.ActiveItems))
	for _, id := range c.ActiveItems {
		if item := c.Item(id); item != nil {
			out = append(out, item.Question)
		}
	}
	return out
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
