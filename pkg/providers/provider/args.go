package provider

import (
	"encoding/json"
	"strings"

	"github.com/cueso/cueso/pkg/chats/content"
)

// ParseArguments decodes a tool call's accumulated argument JSON. Empty input
// yields an empty map. Malformed input never fails: the raw text is kept
// under content.PartialArgsKey so a downstream handler still sees something.
func ParseArguments(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil || args == nil {
		return map[string]any{content.PartialArgsKey: raw}
	}

	return args
}
