package state

import (
	"errors"
	"fmt"
)

// Sentinel errors for session validation. Validation failures are
// synchronous and never retryable.
var (
	// ErrEmptySessionID indicates a session without an identifier.
	ErrEmptySessionID = errors.New("session id is empty")

	// ErrInvalidStage indicates a stage outside the closed enumeration.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrInvalidRole indicates a message role outside the enumeration.
	ErrInvalidRole = errors.New("invalid message role")
)

// Validate checks the structural invariants of a session before any
// node logic runs. Multiple violations are joined.
func (s Session) Validate() error {
	var errs []error

	if s.SessionID == "" {
		errs = append(errs, ErrEmptySessionID)
	}
	if !s.CurrentStage.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidStage, s.CurrentStage))
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			errs = append(errs, fmt.Errorf("%w: message %d has role %q", ErrInvalidRole, i, m.Role))
		}
		if i > 0 && m.CreatedAt.Before(s.Messages[i-1].CreatedAt) {
			errs = append(errs, fmt.Errorf("messages out of order at index %d", i))
		}
	}

	return errors.Join(errs...)
}
