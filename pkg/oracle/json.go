package oracle

import (
	"encoding/json"
	"strings"

	"github.com/sfioritto/inbox-triage/pkg/errors"
)

// CleanJSONResponse strips the markdown fencing and surrounding prose that
// models wrap around JSON payloads, leaving the bare object or array.
func CleanJSONResponse(response string) string {
	s := strings.TrimSpace(response)

	// Strip ``` fences, with or without a language tag.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Slice from the first JSON opener to its matching closer, dropping
	// any leading or trailing prose.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// Unmarshal decodes a raw oracle reply into out after cleaning.
func Unmarshal(response string, out interface{}) error {
	cleaned := CleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidResponse, "failed to parse oracle response as JSON"),
			errors.Fields{"response_length": len(response)})
	}
	return nil
}
