package nodes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checklist"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// analysisResult is the JSON shape of the scoring call.
type analysisResult struct {
	Scores map[string]float64 `json:"scores"`
}

// judgmentResult is the JSON shape of the follow-up decision call.
type judgmentResult struct {
	Continue bool   `json:"continue"`
	Question string `json:"question"`
}

// Chat returns the turn-processing node: score the latest user
// message against the checklist, probe at most one partially
// addressed criterion, and reply with the next question.
//
// The node is total: every failure of the analysis call falls back to
// the keyword heuristic, and every failure of question generation
// falls back to the canned checklist questions. It never returns an
// error.
func Chat(cfg Config) ideaflow.NodeFunc {
	return func(ctx ideaflow.Context, s state.Session) (state.Update, error) {
		if s.IsProcessing {
			return state.Update{}, nil
		}

		cl := s.Checklist
		if cl == nil {
			cl = state.NewChecklist(checklist.DefaultItems(), cfg.MinRequired)
		}

		userText := latestUserText(s)

		// First contact: nothing to score yet, open with a question.
		if userText == "" {
			cl = cl.Clone()
			reply := generateQuestion(ctx, cfg, cl, "")
			return state.Update{
				IsProcessing: state.Ptr(false),
				Checklist:    cl,
				Messages:     []state.Message{state.AssistantMessage(reply, s.CurrentStage)},
			}, nil
		}

		scores := analyzeTurn(ctx, cfg, cl, userText)
		if scores != nil {
			cl = checklist.Apply(cl, scores, userText, cfg.Thresholds)
		} else {
			cl = checklist.ApplyFallback(cl, userText, cfg.Thresholds)
		}

		// Probe-once: a partial criterion gets exactly one follow-up,
		// and a follow-up replaces question generation for the turn.
		if id, ok := checklist.ProbeCandidate(cl); ok {
			judgment := judgeFollowup(ctx, cfg, cl, id, userText)
			cl = checklist.ApplyJudgment(cl, id, judgment)
			if judgment.Continue {
				return state.Update{
					IsProcessing: state.Ptr(false),
					Checklist:    cl,
					Messages:     []state.Message{state.AssistantMessage(judgment.Question, s.CurrentStage)},
				}, nil
			}
		}

		reply := generateQuestion(ctx, cfg, cl, userText)
		return state.Update{
			IsProcessing: state.Ptr(false),
			Checklist:    cl,
			Messages:     []state.Message{state.AssistantMessage(reply, s.CurrentStage)},
		}, nil
	}
}

// latestUserText returns the content of the most recent user message.
func latestUserText(s state.Session) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == state.RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// analyzeTurn runs the LLM scoring call over the incomplete criteria.
// Returns nil when the call is unavailable or unusable, signalling
// the fallback path.
func analyzeTurn(ctx ideaflow.Context, cfg Config, cl *state.Checklist, userText string) map[string]float64 {
	client := ctx.LLM()
	if client == nil {
		return nil
	}

	open := incompleteItems(cl)
	if len(open) == 0 {
		return map[string]float64{}
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: analysisSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: analysisUserPrompt(open, userText)}},
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  0, // scoring wants determinism
	})
	if err != nil {
		ctx.Logger().Warn("analysis call failed, using keyword fallback",
			slog.String("error", err.Error()))
		return nil
	}

	var result analysisResult
	if err := llm.ParseJSON(resp.Content, &result); err != nil {
		ctx.Logger().Warn("analysis response unparseable, using keyword fallback",
			slog.String("error", err.Error()))
		return nil
	}
	return result.Scores
}

// judgeFollowup asks whether the partial criterion deserves its one
// follow-up. Any failure is treated as "stop": the conversation moves
// on rather than stalling on a judgment call.
func judgeFollowup(ctx ideaflow.Context, cfg Config, cl *state.Checklist, id, userText string) checklist.Judgment {
	item := cl.Item(id)
	client := ctx.LLM()
	if item == nil || client == nil {
		return checklist.Judgment{}
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: judgmentSystemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: judgmentUserPrompt(*item, userText, cl.FollowupCounts[id]),
		}},
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		ctx.Logger().Warn("follow-up judgment failed, moving on",
			slog.String("item", id), slog.String("error", err.Error()))
		return checklist.Judgment{}
	}

	var result judgmentResult
	if err := llm.ParseJSON(resp.Content, &result); err != nil {
		return checklist.Judgment{}
	}
	if result.Continue && strings.TrimSpace(result.Question) == "" {
		return checklist.Judgment{}
	}
	return checklist.Judgment{Continue: result.Continue, Question: result.Question}
}

// generateQuestion produces the assistant's next question. Falls back
// to the canned checklist questions when the call fails.
func generateQuestion(ctx ideaflow.Context, cfg Config, cl *state.Checklist, userText string) string {
	if cl.IsComplete {
		return fmt.Sprintf(
			"We've covered the essentials (%d%% of the checklist). Say \"%s\" when you're ready for the summary.",
			cl.Progress, state.StageDone(state.StageBrainstorm))
	}

	if client := ctx.LLM(); client != nil {
		resp, err := client.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: questionSystemPrompt,
			Messages:     []llm.Message{{Role: llm.RoleUser, Content: questionUserPrompt(cl, userText)}},
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
		})
		if err == nil {
			if text := strings.TrimSpace(llm.StripFences(resp.Content)); text != "" {
				return text
			}
		} else {
			ctx.Logger().Warn("question generation failed, using canned questions",
				slog.String("error", err.Error()))
		}
	}

	if questions := checklist.Questions(cl); len(questions) > 0 {
		return strings.Join(questions, " ")
	}
	return "Tell me more about your idea."
}

// incompleteItems returns the items not yet completed, in declaration
// order.
func incompleteItems(cl *state.Checklist) []state.ChecklistItem {
	open := make([]state.ChecklistItem, 0, len(cl.Items))
	for _, item := range cl.Items {
		if !cl.CompletedItems[item.ID] {
			open = append(open, item)
		}
	}
	return open
}
