package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding ``` or ```json fence from s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[{") {
			// language tag such as "json"
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ChatJSON sends req and decodes the reply as a JSON array.
// A reply that is not a JSON array yields ErrMalformedResponse.
func ChatJSON(ctx context.Context, c Chatter, req Request) ([]json.RawMessage, error) {
	text, err := c.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseJSONArray(text)
}

// ParseJSONArray strips code fences and decodes text as a JSON array.
func ParseJSONArray(text string) ([]json.RawMessage, error) {
	body := StripCodeFence(text)
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: expected JSON array: %v", ErrMalformedResponse, err)
	}
	return items, nil
}
