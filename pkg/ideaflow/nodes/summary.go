package nodes

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

var errNoClient = errors.New("no completion client configured")

// summaryResult is the JSON shape of the summarization call.
type summaryResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Summarize returns the stage-transition node: condense the
// conversation into a titled summary, advance the stage, and hand
// control back to the chat loop by resetting the user action.
//
// Summarization is the one node whose LLM call has no useful
// degraded mode, so failures return the error and let the resilience
// layer's retry policy deal with transient ones.
func Summarize(cfg Config) ideaflow.NodeFunc {
	return func(ctx ideaflow.Context, s state.Session) (state.Update, error) {
		if s.IsProcessing {
			return state.Update{}, nil
		}

		client := ctx.LLM()
		if client == nil {
			return state.Update{}, llm.NewError("summarize", errNoClient, false)
		}

		resp, err := client.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: summarySystemPrompt,
			Messages:     []llm.Message{{Role: llm.RoleUser, Content: summaryUserPrompt(s)}},
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
		})
		if err != nil {
			return state.Update{}, err
		}

		var result summaryResult
		if err := llm.ParseJSON(resp.Content, &result); err != nil {
			return state.Update{}, llm.NewError("summarize", fmt.Errorf("parse response: %w", err), false)
		}

		title := strings.TrimSpace(result.Title)
		if title == "" {
			title = fallbackTitle(s)
		}

		next, ok := s.CurrentStage.Next()
		if !ok {
			// Final stage: summarize in place without advancing.
			next = s.CurrentStage
		}

		ctx.Logger().Info("stage summarized",
			slog.String("from", string(s.CurrentStage)),
			slog.String("to", string(next)),
			slog.String("title", title))

		return state.Update{
			Title:        state.Ptr(title),
			CurrentStage: state.Ptr(next),

			// Back to plain chat so the cycle ends idle instead of
			// re-triggering summarization.
			LastUserAction: state.Ptr(state.ActionChat),
			IsProcessing:   state.Ptr(false),
			Messages:       []state.Message{state.AssistantMessage(result.Summary, s.CurrentStage)},
		}, nil
	}
}

// fallbackTitle derives a title from the first user message when the
// model omits one.
func fallbackTitle(s state.Session) string {
	for _, m := range s.Messages {
		if m.Role == state.RoleUser {
			return truncate(strings.TrimSpace(m.Content), 60)
		}
	}
	return "Untitled idea"
}
