package llm

import (
	"encoding/json"
	"strings"
)

// StripFences removes a single markdown code fence wrapping the
// payload, if present. Handles ```json, bare ```, and surrounding
// whitespace. Content without fencing is returned trimmed.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line (``` or ```json etc).
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}

	// Drop the closing fence.
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// ParseJSON strips any markdown fencing from content and unmarshals
// the remainder into v. A parse failure is a node-level error, not a
// transport failure, and is reported non-retryable.
func ParseJSON(content string, v any) error {
	payload := StripFences(content)
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return NewError("parse", err, false)
	}
	return nil
}
