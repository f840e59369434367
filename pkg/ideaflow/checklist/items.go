package checklist

import "github.com/randalmurphal/ideaflow/pkg/ideaflow/state"

// DefaultMinRequired is how many of the default criteria must be
// completed before the brainstorm stage is considered done.
const DefaultMinRequired = 8

// DefaultItems returns the standard brainstorm criteria, highest
// priority first. Keywords feed the fallback scorer only.
func DefaultItems() []state.ChecklistItem {
	return []state.ChecklistItem{
		{ID: "problem", Question: "What specific problem does your idea solve?", Priority: 10,
			Keywords: []string{"problem", "pain", "solve", "struggle", "frustrat"}},
		{ID: "audience", Question: "Who is your target audience or customer?", Priority: 9,
			Keywords: []string{"audience", "customer", "user", "target", "demographic"}},
		{ID: "uniqueness", Question: "What makes your idea different from what already exists?", Priority: 8,
			Keywords: []string{"different", "unique", "better", "unlike", "novel"}},
		{ID: "monetization", Question: "How will the idea make money?", Priority: 7,
			Keywords: []string{"revenue", "money", "price", "subscription", "pay"}},
		{ID: "competitors", Question: "Who are the main competitors or alternatives?", Priority: 6,
			Keywords: []string{"competitor", "alternative", "existing", "rival", "instead"}},
		{ID: "mvp-scope", Question: "What would the smallest useful first version look like?", Priority: 5,
			Keywords: []string{"mvp", "first version", "prototype", "minimum", "start with"}},
		{ID: "market-size", Question: "How large is the market you are addressing?", Priority: 4,
			Keywords: []string{"market", "size", "demand", "billion", "million"}},
		{ID: "channels", Question: "How will you reach your first users?", Priority: 3,
			Keywords: []string{"marketing", "channel", "reach", "launch", "acquire"}},
		{ID: "risks", Question: "What are the biggest risks or unknowns?", Priority: 2,
			Keywords: []string{"risk", "challenge", "unknown", "concern", "fail"}},
		{ID: "success-metrics", Question: "How will you measure success?", Priority: 1,
			Keywords: []string{"metric", "measure", "success", "kpi", "goal"}},
	}
}

// NewDefault creates a checklist over the default criteria.
func NewDefault() *state.Checklist {
	return state.NewChecklist(DefaultItems(), DefaultMinRequired)
}
