package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes leading/trailing Markdown code fence markers
// (```json ... ```) from a model response. Stripping already-clean text
// returns it unchanged.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}

	return strings.TrimSpace(s)
}

// ParseModelJSON parses a raw model response into JSON, stripping fence
// markers first. Responses that look truncated (missing closing braces) get
// one heuristic repair attempt; if that also fails, the original parse error
// surfaces.
func ParseModelJSON(raw string) (json.RawMessage, error) {
	s := StripFences(raw)
	if s == "" {
		return nil, ErrEmptyResponse
	}
	if s[0] != '{' && s[0] != '[' {
		return nil, fmt.Errorf("%w: starts with %q", ErrNotJSON, s[0])
	}

	var parsed json.RawMessage
	err := json.Unmarshal([]byte(s), &parsed)
	if err == nil {
		return parsed, nil
	}

	if last := s[len(s)-1]; last != '}' && last != ']' {
		repaired := repairTruncated(s)
		var reparsed json.RawMessage
		if repairErr := json.Unmarshal([]byte(repaired), &reparsed); repairErr == nil {
			return reparsed, nil
		}
	}

	return nil, fmt.Errorf("parse model response: %w", err)
}

// repairTruncated appends the closing braces a truncated response is missing,
// counting unbalanced braces outside string literals.
func repairTruncated(s string) string {
	depth := 0
	inString := false
	escaped := false

	for _, c := range s {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}

	if inString {
		s += `"`
	}
	return s + strings.Repeat("}", max(depth, 0))
}
