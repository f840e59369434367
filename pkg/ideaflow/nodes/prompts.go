package nodes

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// System prompts for the LLM calls the nodes make. All structured
// calls ask for bare JSON; responses may still arrive fenced, so
// parsing always strips markdown fences first.

const analysisSystemPrompt = `You evaluate how well a user's latest message addresses a set of
product-idea criteria. For each criterion, respond with a completion
score between 0.0 (not addressed) and 1.0 (fully addressed).

Respond with JSON only, no prose:
{"scores": {"<criterion-id>": <score>, ...}}`

const judgmentSystemPrompt = `A user partially addressed a criterion during a brainstorm. Decide
whether one follow-up question is worth asking, or whether to move on.

Respond with JSON only, no prose:
{"continue": true|false, "question": "<the follow-up, when continue is true>"}`

const questionSystemPrompt = `You are guiding a product brainstorm. Given the criteria still open,
ask the user one short, conversational question that moves the idea
forward. If a criterion was just addressed, briefly acknowledge it
first. Respond with the question text only.`

const summarySystemPrompt = `Summarize the brainstorm conversation into a concise product summary.

Respond with JSON only, no prose:
{"title": "<short product title>", "summary": "<one-paragraph summary>"}`

// analysisUserPrompt lists the open criteria and the message to score.
func analysisUserPrompt(items []state.ChecklistItem, userText string) string {
	var b strings.Builder
	b.WriteString("Criteria:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %s\n", item.ID, item.Question)
	}
	b.WriteString("\nUser message:\n")
	b.WriteString(userText)
	return b.String()
}

func judgmentUserPrompt(item state.ChecklistItem, userText string, attempts int) string {
	return fmt.Sprintf("Criterion: %s\nUser response: %s\nPrior follow-up attempts: %d",
		item.Question, userText, attempts)
}

func questionUserPrompt(c *state.Checklist, userText string) string {
	var b strings.Builder
	if c.LastAddressedItem != "" {
		if item := c.Item(c.LastAddressedItem); item != nil {
			fmt.Fprintf(&b, "Just addressed: %s\n", item.Question)
		}
	}
	b.WriteString("Open criteria:\n")
	for _, id := range c.ActiveItems {
		if item := c.Item(id); item != nil {
			fmt.Fprintf(&b, "- %s\n", item.Question)
		}
	}
	b.WriteString("\nLatest user message:\n")
	b.WriteString(userText)
	return b.String()
}

func summaryUserPrompt(s state.Session) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, m := range s.Messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
