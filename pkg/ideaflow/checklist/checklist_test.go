package checklist

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_CompleteThreshold(t *testing.T) {
	cl := NewDefault()

	updated := Apply(cl, map[string]float64{"problem": 0.9}, "it solves scheduling pain for nurses", DefaultThresholds)

	assert.True(t, updated.CompletedItems["problem"])
	assert.False(t, updated.PartialItems["problem"])

	item := updated.Item("problem")
	require.NotNil(t, item)
	assert.True(t, item.Completed)
	assert.Equal(t, "it solves scheduling pain for nurses", item.Response)
	assert.NotNil(t, item.CompletedAt)
	assert.Equal(t, "problem", updated.LastAddressedItem)
}

func TestApply_PartialThreshold(t *testing.T) {
	cl := NewDefault()

	updated := Apply(cl, map[string]float64{"audience": 0.5}, "maybe nurses?", DefaultThresholds)

	assert.True(t, updated.PartialItems["audience"])
	assert.False(t, updated.CompletedItems["audience"])
	assert.Nil(t, updated.Item("audience").CompletedAt)
	assert.Equal(t, "maybe nurses?", updated.Item("audience").Response)
}

func TestApply_BelowPartialUntouched(t *testing.T) {
	cl := NewDefault()

	updated := Apply(cl, map[string]float64{"risks": 0.2}, "hello", DefaultThresholds)

	assert.False(t, updated.PartialItems["risks"])
	assert.False(t, updated.CompletedItems["risks"])
}

// TestApply_CompletionPromotesPartial verifies a partial id that later
// scores high moves to completed and leaves partial tracking.
func TestApply_CompletionPromotesPartial(t *testing.T) {
	cl := NewDefault()
	cl = Apply(cl, map[string]float64{"problem": 0.5}, "turn one", DefaultThresholds)
	require.True(t, cl.PartialItems["problem"])

	cl = Apply(cl, map[string]float64{"problem": 0.95}, "turn two, fully explained", DefaultThresholds)

	assert.True(t, cl.CompletedItems["problem"])
	assert.False(t, cl.PartialItems["problem"])
}

// TestApply_CompletedNeverShrinks verifies monotonicity: once
// completed, low scores on later turns change nothing.
func TestApply_CompletedNeverShrinks(t *testing.T) {
	cl := NewDefault()
	cl = Apply(cl, map[string]float64{"problem": 0.9}, "solid answer", DefaultThresholds)
	progressBefore := cl.Progress

	cl = Apply(cl, map[string]float64{"problem": 0.0}, "never mind", DefaultThresholds)

	assert.True(t, cl.CompletedItems["problem"])
	assert.True(t, cl.Items[0].Completed)
	assert.GreaterOrEqual(t, cl.Progress, progressBefore)
}

// TestApply_ProgressAndCompletion mirrors the ten-item / eight-required
// scenario: completing items 1-8 yields progress 80 and IsComplete.
func TestApply_ProgressAndCompletion(t *testing.T) {
	cl := NewDefault()
	require.Len(t, cl.Items, 10)
	require.Equal(t, 8, cl.MinRequired)

	scores := make(map[string]float64)
	for _, item := range cl.Items[:8] {
		scores[item.ID] = 0.9
	}

	updated := Apply(cl, scores, "a very thorough answer covering everything", DefaultThresholds)

	assert.Equal(t, 80, updated.Progress)
	assert.True(t, updated.IsComplete)
	assert.Len(t, updated.CompletedItems, 8)
}

func TestApply_ActiveItemsTopPriority(t *testing.T) {
	cl := NewDefault()

	updated := Apply(cl, nil, "", DefaultThresholds)
	assert.Equal(t, []string{"problem", "audience"}, updated.ActiveItems)

	// Completing the top item shifts the derived view down.
	updated = Apply(updated, map[string]float64{"problem": 0.9}, "answer", DefaultThresholds)
	assert.Equal(t, []string{"audience", "uniqueness"}, updated.ActiveItems)
}

func TestApply_ResponseSnippetTruncated(t *testing.T) {
	cl := NewDefault()
	long := strings.Repeat("x", 500)

	updated := Apply(cl, map[string]float64{"problem": 0.9}, long, DefaultThresholds)

	assert.Len(t, updated.Item("problem").Response, responseSnippetLen)
}

func TestApply_ResponseSnippetKeepsRunesIntact(t *testing.T) {
	cl := NewDefault()
	// Three-byte runes, so the 200-byte cap lands mid-rune.
	long := strings.Repeat("あ", 100)

	updated := Apply(cl, map[string]float64{"problem": 0.9}, long, DefaultThresholds)

	resp := updated.Item("problem").Response
	assert.True(t, utf8.ValidString(resp))
	assert.Equal(t, strings.Repeat("あ", 66), resp)
}

func TestApply_LastAddressedRetainedWhenNoCompletion(t *testing.T) {
	cl := NewDefault()
	cl = Apply(cl, map[string]float64{"problem": 0.9}, "answer", DefaultThresholds)
	require.Equal(t, "problem", cl.LastAddressedItem)

	cl = Apply(cl, map[string]float64{"audience": 0.5}, "partial only", DefaultThresholds)

	assert.Equal(t, "problem", cl.LastAddressedItem)
}

func TestApply_DoesNotMutatePrior(t *testing.T) {
	cl := NewDefault()

	_ = Apply(cl, map[string]float64{"problem": 0.9}, "answer", DefaultThresholds)

	assert.False(t, cl.CompletedItems["problem"])
	assert.False(t, cl.Items[0].Completed)
}

func TestProbeCandidate_HighestPriorityUnprobed(t *testing.T) {
	cl := NewDefault()
	cl.PartialItems["risks"] = true
	cl.PartialItems["audience"] = true

	id, ok := ProbeCandidate(cl)

	require.True(t, ok)
	assert.Equal(t, "audience", id)
}

func TestProbeCandidate_SkipsProbedAndDismissed(t *testing.T) {
	cl := NewDefault()
	cl.PartialItems["audience"] = true
	cl.PartialItems["risks"] = true
	cl.FollowupCounts["audience"] = 1
	cl.DismissedItems["risks"] = true
	// risks stays in partial here only to prove dismissal wins

	_, ok := ProbeCandidate(cl)

	assert.False(t, ok)
}

func TestProbeCandidate_EmptyChecklist(t *testing.T) {
	cl := NewDefault()

	_, ok := ProbeCandidate(cl)

	assert.False(t, ok)
}

func TestApplyJudgment_Continue(t *testing.T) {
	cl := NewDefault()
	cl.PartialItems["audience"] = true

	updated := ApplyJudgment(cl, "audience", Judgment{Continue: true, Question: "Which segment exactly?"})

	assert.Equal(t, 1, updated.FollowupCounts["audience"])
	assert.Equal(t, "audience", updated.LastProbedItem)
	assert.True(t, updated.PartialItems["audience"]) // still partial until scored
}

func TestApplyJudgment_Stop(t *testing.T) {
	cl := NewDefault()
	cl.PartialItems["audience"] = true

	updated := ApplyJudgment(cl, "audience", Judgment{Continue: false})

	assert.False(t, updated.PartialItems["audience"])
	assert.True(t, updated.DismissedItems["audience"])
	assert.Zero(t, updated.FollowupCounts["audience"]) // never incremented on stop
}

// TestProbeOnce walks the full sequence: partial on turn 1, judgment
// says stop, and the id is never probed again even when it scores
// partial on a later turn.
func TestProbeOnce(t *testing.T) {
	cl := NewDefault()

	// Turn 1: partial score surfaces the candidate.
	cl = Apply(cl, map[string]float64{"monetization": 0.5}, "ads maybe", DefaultThresholds)
	id, ok := ProbeCandidate(cl)
	require.True(t, ok)
	require.Equal(t, "monetization", id)

	// Judgment: stop. Permanently removed from partial tracking.
	cl = ApplyJudgment(cl, id, Judgment{Continue: false})
	assert.False(t, cl.PartialItems["monetization"])

	// Turn 3: another partial score must not resurrect it.
	cl = Apply(cl, map[string]float64{"monetization": 0.5}, "still ads", DefaultThresholds)
	assert.False(t, cl.PartialItems["monetization"])
	_, ok = ProbeCandidate(cl)
	assert.False(t, ok)
	assert.LessOrEqual(t, cl.FollowupCounts["monetization"], 1)
}

// TestProbeOnce_ContinuePath verifies the continue branch also caps a
// criterion at a single probe across the session.
func TestProbeOnce_ContinuePath(t *testing.T) {
	cl := NewDefault()
	cl = Apply(cl, map[string]float64{"channels": 0.5}, "word of mouth", DefaultThresholds)

	id, ok := ProbeCandidate(cl)
	require.True(t, ok)
	cl = ApplyJudgment(cl, id, Judgment{Continue: true, Question: "Beyond word of mouth?"})

	// Still partial, but no longer a candidate: count is 1.
	_, ok = ProbeCandidate(cl)
	assert.False(t, ok)
	assert.Equal(t, 1, cl.FollowupCounts["channels"])
}

func TestQuestions(t *testing.T) {
	cl := NewDefault()
	cl = Apply(cl, nil, "", DefaultThresholds)

	qs := Questions(cl)

	require.Len(t, qs, 2)
	assert.Contains(t, qs[0], "problem")
}
