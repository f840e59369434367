package nodes

import (
	"context"
	"errors"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// scriptedClient routes completion calls by system prompt so one fake
// serves analysis, judgment, question, and summary calls in a single
// turn. Unscripted prompts return an error.
type scriptedClient struct {
	analysis string
	judgment string
	question string
	summary  string

	analysisErr error
	calls       []string
}

func (c *scriptedClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	switch req.SystemPrompt {
	case analysisSystemPrompt:
		c.calls = append(c.calls, "analysis")
		if c.analysisErr != nil {
			return nil, c.analysisErr
		}
		return &llm.CompletionResponse{Content: c.analysis}, nil
	case judgmentSystemPrompt:
		c.calls = append(c.calls, "judgment")
		return &llm.CompletionResponse{Content: c.judgment}, nil
	case questionSystemPrompt:
		c.calls = append(c.calls, "question")
		return &llm.CompletionResponse{Content: c.question}, nil
	case summarySystemPrompt:
		c.calls = append(c.calls, "summary")
		if c.summary == "" {
			return nil, errors.New("summary not scripted")
		}
		return &llm.CompletionResponse{Content: c.summary}, nil
	}
	return nil, errors.New("unscripted prompt")
}

func (c *scriptedClient) called(kind string) int {
	n := 0
	for _, call := range c.calls {
		if call == kind {
			n++
		}
	}
	return n
}

// fakeTranscriber returns a fixed transcription or error.
type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ string, _ llm.TranscribeOptions) (*llm.Transcription, error) {
	if t.err != nil {
		return nil, t.err
	}
	return &llm.Transcription{Text: t.text, Language: "en"}, nil
}

// fakeSearcher records queries and returns canned results.
type fakeSearcher struct {
	results []llm.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]llm.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// testCtx builds an execution context with the given services.
func testCtx(opts ...ideaflow.ContextOption) ideaflow.Context {
	return ideaflow.NewContext(context.Background(), opts...)
}

// brainstormSession is a session mid-brainstorm with one user turn.
func brainstormSession(userText string) state.Session {
	s := state.New("nodes-test")
	s.Messages = append(s.Messages, state.UserMessage(userText, s.CurrentStage))
	return s
}
