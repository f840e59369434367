package state

import "time"

// ChecklistItem is one criterion the conversation should eventually
// cover.
type ChecklistItem struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	// Keywords feed the fallback scoring heuristic when the LLM
	// analysis path is unavailable.
	Keywords []string `json:"keywords,omitempty"`
	Priority int      `json:"priority"`

	Completed   bool       `json:"completed"`
	Response    string     `json:"response,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Checklist tracks which criteria a user's idea has addressed.
//
// An id is never both completed and eligible for further probing:
// completion removes it from PartialItems. CompletedItems never
// shrinks across turns.
type Checklist struct {
	Items []ChecklistItem `json:"items"`

	CompletedItems map[string]bool `json:"completed_items"`
	PartialItems   map[string]bool `json:"partial_items"`

	// FollowupCounts caps follow-up probes at one per id.
	FollowupCounts map[string]int `json:"followup_counts"`

	// DismissedItems holds ids whose follow-up judgment said "stop":
	// neither completed nor ever re-eligible for partial tracking.
	DismissedItems map[string]bool `json:"dismissed_items"`

	// ActiveItems is a derived view (top-priority incomplete ids),
	// recomputed fresh on every update, never patched incrementally.
	ActiveItems []string `json:"active_items"`

	Progress    int  `json:"progress"`
	IsComplete  bool `json:"is_complete"`
	MinRequired int  `json:"min_required"`

	LastAddressedItem string `json:"last_addressed_item,omitempty"`
	LastProbedItem    string `json:"last_probed_item,omitempty"`
}

// NewChecklist creates a checklist over the given items requiring
// minRequired completions before IsComplete.
func NewChecklist(items []ChecklistItem, minRequired int) *Checklist {
	c := &Checklist{
		Items:          append([]ChecklistItem(nil), items...),
		CompletedItems: make(map[string]bool),
		PartialItems:   make(map[string]bool),
		FollowupCounts: make(map[string]int),
		DismissedItems: make(map[string]bool),
		MinRequired:    minRequired,
	}
	return c
}

// Clone returns a deep copy. Nodes must not mutate the checklist held
// by the session snapshot they were given.
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	cp := &Checklist{
		Items:             append([]ChecklistItem(nil), c.Items...),
		CompletedItems:    copyBoolSet(c.CompletedItems),
		PartialItems:      copyBoolSet(c.PartialItems),
		FollowupCounts:    copyIntMap(c.FollowupCounts),
		DismissedItems:    copyBoolSet(c.DismissedItems),
		ActiveItems:       append([]string(nil), c.ActiveItems...),
		Progress:          c.Progress,
		IsComplete:        c.IsComplete,
		MinRequired:       c.MinRequired,
		LastAddressedItem: c.LastAddressedItem,
		LastProbedItem:    c.LastProbedItem,
	}
	return cp
}

// Item returns the item with the given id, or nil.
func (c *Checklist) Item(id string) *ChecklistItem {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

func copyBoolSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
