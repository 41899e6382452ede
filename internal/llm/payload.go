package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoPayload is returned when a reply contains no parseable JSON array.
var ErrNoPayload = errors.New("no JSON array found in reply")

// ExtractJSONArray locates the first top-level JSON array inside a free-text
// model reply and returns it re-marshaled as canonical JSON.
//
// Models wrap their payload in prose, markdown fences, or emit bare objects
// without the surrounding array; this scanner tolerates all of that. A reply
// with brackets that never balance (a truncated response) yields ErrNoPayload.
func ExtractJSONArray(reply string) (json.RawMessage, error) {
	reply = stripFences(reply)

	truncated := false
	for i := 0; i < len(reply); i++ {
		if reply[i] != '[' {
			continue
		}
		end, ok := matchBracket(reply, i)
		if !ok {
			// Unbalanced from this point on; later '[' can't balance either.
			truncated = true
			break
		}
		candidate := reply[i : end+1]
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
			return json.RawMessage(candidate), nil
		}
		i = end
	}

	// Some models return a bare object stream; wrap top-level objects into an
	// array and retry. A cut-off array is a truncated response, never salvage
	// partial objects out of it.
	if !truncated {
		if combined, ok := combineObjects(reply); ok {
			return combined, nil
		}
	}

	return nil, ErrNoPayload
}

// DecodeArray extracts the payload and unmarshals it into out (a pointer to a
// slice type).
func DecodeArray(reply string, out any) error {
	raw, err := ExtractJSONArray(reply)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	return nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// matchBracket returns the index of the ']' closing the '[' at start,
// skipping brackets inside JSON strings.
func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func combineObjects(s string) (json.RawMessage, bool) {
	var objects []json.RawMessage
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end, ok := matchBrace(s, i)
		if !ok {
			break
		}
		candidate := s[i : end+1]
		if json.Valid([]byte(candidate)) {
			objects = append(objects, json.RawMessage(candidate))
			i = end
		}
	}
	if len(objects) == 0 {
		return nil, false
	}
	combined, err := json.Marshal(objects)
	if err != nil {
		return nil, false
	}
	return combined, true
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
