package state

import (
	"sort"
	"time"
)

// Update is a partial state delta returned by a node. Nil pointer
// fields mean "keep the existing value"; an absent field never clears
// a defined one. Clearing is explicit via the Clear* sentinels.
type Update struct {
	Title          *string `json:"title,omitempty"`
	CurrentStage   *Stage  `json:"current_stage,omitempty"`
	LastUserAction *Action `json:"last_user_action,omitempty"`
	IsProcessing   *bool   `json:"is_processing,omitempty"`

	// Error sets the error field. ClearError removes it; setting and
	// clearing in the same update is a programming error and clearing
	// wins.
	Error      *string `json:"error,omitempty"`
	ClearError bool    `json:"clear_error,omitempty"`

	// Messages are unioned with the existing history. An empty slice
	// means "no new messages", never "clear history".
	Messages []Message `json:"messages,omitempty"`

	Checklist *Checklist `json:"checklist_state,omitempty"`

	VoiceTranscription *Transcription `json:"voice_transcription,omitempty"`
	VoiceAudioPending  *string        `json:"voice_audio_pending,omitempty"`
	// ClearVoice drops both the pending audio reference and any
	// transcription, preventing reprocessing loops.
	ClearVoice bool `json:"clear_voice,omitempty"`

	UserPrompts    map[string]string `json:"user_prompts,omitempty"`
	SelectedModels map[string]string `json:"selected_models,omitempty"`
}

// IsZero reports whether the update changes nothing. Nodes return a
// zero Update to no-op (e.g. under the re-entrancy guard).
func (u Update) IsZero() bool {
	return u.Title == nil &&
		u.CurrentStage == nil &&
		u.LastUserAction == nil &&
		u.IsProcessing == nil &&
		u.Error == nil &&
		!u.ClearError &&
		len(u.Messages) == 0 &&
		u.Checklist == nil &&
		u.VoiceTranscription == nil &&
		u.VoiceAudioPending == nil &&
		!u.ClearVoice &&
		len(u.UserPrompts) == 0 &&
		len(u.SelectedModels) == 0
}

// Merge applies an update to a session through per-field reducers and
// returns the new session. The input session is not modified.
//
// Reducer semantics:
//   - scalars: update replaces existing when present, else kept
//   - messages: union, deduplicated by (role, content, timestamp),
//     sorted ascending by timestamp; idempotent and order-insensitive
//   - nested maps: shallow merge, incoming keys overwrite
//   - UpdatedAt: always stamped, regardless of which fields changed
func Merge(s Session, u Update) Session {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.CurrentStage != nil {
		s.CurrentStage = *u.CurrentStage
	}
	if u.LastUserAction != nil {
		s.LastUserAction = *u.LastUserAction
	}
	if u.IsProcessing != nil {
		s.IsProcessing = *u.IsProcessing
	}

	switch {
	case u.ClearError:
		s.Error = ""
	case u.Error != nil:
		s.Error = *u.Error
	}

	if len(u.Messages) > 0 {
		s.Messages = mergeMessages(s.Messages, u.Messages)
	} else {
		// Copy so callers holding the old session never observe
		// aliasing with the merged one.
		s.Messages = append([]Message(nil), s.Messages...)
	}

	if u.Checklist != nil {
		s.Checklist = u.Checklist.Clone()
	}

	switch {
	case u.ClearVoice:
		s.VoiceTranscription = nil
		s.VoiceAudioPending = ""
	default:
		if u.VoiceTranscription != nil {
			t := *u.VoiceTranscription
			s.VoiceTranscription = &t
		}
		if u.VoiceAudioPending != nil {
			s.VoiceAudioPending = *u.VoiceAudioPending
		}
	}

	if len(u.UserPrompts) > 0 {
		s.UserPrompts = mergeStringMap(s.UserPrompts, u.UserPrompts)
	}
	if len(u.SelectedModels) > 0 {
		s.SelectedModels = mergeStringMap(s.SelectedModels, u.SelectedModels)
	}

	s.UpdatedAt = time.Now().UTC()
	return s
}

// mergeMessages unions two message lists, deduplicating on the
// composite (role, content, timestamp) key and sorting ascending by
// timestamp. Re-applying the same update is a no-op.
func mergeMessages(existing, incoming []Message) []Message {
	seen := make(map[messageKey]bool, len(existing)+len(incoming))
	out := make([]Message, 0, len(existing)+len(incoming))
	for _, m := range existing {
		k := m.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	for _, m := range incoming {
		k := m.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func mergeStringMap(existing, incoming map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// Restore builds an update that overwrites every merged field with the
// values from a known-good snapshot. Used by the rollback recovery
// strategy; the caller typically attaches an informational message on
// top.
func Restore(snapshot Session) Update {
	u := Update{
		Title:          Ptr(snapshot.Title),
		CurrentStage:   Ptr(snapshot.CurrentStage),
		LastUserAction: Ptr(snapshot.LastUserAction),
		IsProcessing:   Ptr(snapshot.IsProcessing),
		Messages:       append([]Message(nil), snapshot.Messages...),
		Checklist:      snapshot.Checklist.Clone(),
		UserPrompts:    snapshot.UserPrompts,
		SelectedModels: snapshot.SelectedModels,
	}
	if snapshot.Error == "" {
		u.ClearError = true
	} else {
		u.Error = Ptr(snapshot.Error)
	}
	if snapshot.VoiceAudioPending == "" && snapshot.VoiceTranscription == nil {
		u.ClearVoice = true
	} else {
		u.VoiceAudioPending = Ptr(snapshot.VoiceAudioPending)
		u.VoiceTranscription = snapshot.VoiceTranscription
	}
	return u
}
