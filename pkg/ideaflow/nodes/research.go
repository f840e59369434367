package nodes

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// maxResultsPerQuery bounds how many hits feed the findings message.
const maxResultsPerQuery = 3

// Research returns the market-research node: run a short battery of
// web searches about the idea and attach the findings as an assistant
// message for the summarizer to draw on.
//
// Results are cached per query with a TTL, so re-entering the
// research step (another stage, a resumed run) does not repeat live
// calls. Live calls are spaced by the courtesy delay. Individual
// query failures are logged and skipped; the node only degrades,
// never blocks the path to summary.
func Research(cfg Config) ideaflow.NodeFunc {
	cache := gocache.New(cfg.ResearchTTL, 2*cfg.ResearchTTL)

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return func(ctx ideaflow.Context, s state.Session) (state.Update, error) {
		if s.IsProcessing {
			return state.Update{}, nil
		}

		searcher := ctx.Searcher()
		if searcher == nil {
			return state.Update{}, nil
		}

		topic := researchTopic(s)
		if topic == "" {
			return state.Update{}, nil
		}

		var findings []string
		liveCalls := 0

		for _, query := range researchQueries(topic) {
			if cached, ok := cache.Get(query); ok {
				findings = append(findings, formatFindings(query, cached.([]llm.SearchResult))...)
				continue
			}

			if liveCalls > 0 && cfg.CourtesyDelay > 0 {
				sleep(cfg.CourtesyDelay)
			}
			liveCalls++

			results, err := searcher.Search(ctx, query)
			if err != nil {
				ctx.Logger().Warn("search query failed, skipping",
					slog.String("query", query),
					slog.String("error", err.Error()))
				continue
			}

			if len(results) > maxResultsPerQuery {
				results = results[:maxResultsPerQuery]
			}
			cache.SetDefault(query, results)
			findings = append(findings, formatFindings(query, results)...)
		}

		if len(findings) == 0 {
			return state.Update{}, nil
		}

		var b strings.Builder
		b.WriteString("Here's what I found researching your idea:\n")
		for _, f := range findings {
			b.WriteString(f)
			b.WriteByte('\n')
		}

		return state.Update{
			IsProcessing: state.Ptr(false),
			Messages:     []state.Message{state.AssistantMessage(b.String(), s.CurrentStage)},
		}, nil
	}
}

// researchTopic picks the search subject: the session title when set,
// otherwise the opening user message.
func researchTopic(s state.Session) string {
	if s.Title != "" {
		return s.Title
	}
	for _, m := range s.Messages {
		if m.Role == state.RoleUser {
			return truncate(strings.TrimSpace(m.Content), 80)
		}
	}
	return ""
}

// researchQueries is the fixed battery run per topic.
func researchQueries(topic string) []string {
	return []string{
		topic + " market size",
		topic + " competitors",
		topic + " industry trends",
	}
}

func formatFindings(query string, results []llm.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.URL
		}
		out = append(out, fmt.Sprintf("- [%s] %s: %s", query, r.Title, snippet))
	}
	return out
}
