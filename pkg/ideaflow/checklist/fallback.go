package checklist

import (
	"strings"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Weighting of the two fallback score components. The keyword ratio
// dominates; response length only nudges borderline answers.
const (
	keywordWeight = 0.7
	lengthWeight  = 0.3

	// fullLengthWords is the response length at which the length
	// component saturates.
	fullLengthWords = 50
)

// FallbackScores computes deterministic per-criterion scores from
// keyword overlap with the lowercased user text. This is the terminal
// fallback when the LLM analysis call is unavailable: it never fails
// and always produces a score for every incomplete item.
func FallbackScores(c *state.Checklist, userText string) map[string]float64 {
	text := strings.ToLower(userText)
	words := len(strings.Fields(text))

	lengthScore := float64(words) / fullLengthWords
	if lengthScore > 1 {
		lengthScore = 1
	}

	scores := make(map[string]float64, len(c.Items))
	for _, item := range c.Items {
		if c.CompletedItems[item.ID] {
			continue
		}
		if len(item.Keywords) == 0 {
			scores[item.ID] = 0
			continue
		}
		matched := 0
		for _, kw := range item.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(item.Keywords))
		scores[item.ID] = keywordWeight*ratio + lengthWeight*lengthScore
	}
	return scores
}

// ApplyFallback scores the user text with the keyword heuristic and
// folds the result into the checklist, using the lower fallback
// completion cutoff in place of the LLM-path threshold.
func ApplyFallback(prior *state.Checklist, userText string, th Thresholds) *state.Checklist {
	scores := FallbackScores(prior, userText)
	return apply(prior, scores, userText, th.Fallback, th.Partial)
}
