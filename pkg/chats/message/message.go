// Package message defines the Message type used in LLM conversations.
package message

import (
	"strings"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/role"
)

// Message is a single entry in a conversation. It is a value type that
// copies cheaply; ordering within a conversation is significant.
type Message struct {
	Role  role.Role
	Parts []content.Part
}

// New creates a message with the given role and content parts.
func New(r role.Role, parts ...content.Part) Message {
	return Message{Role: r, Parts: parts}
}

// NewText creates a message with a single Text content part.
func NewText(r role.Role, text string) Message {
	return New(r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts in the message.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns all ToolCall parts in the message, in order.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns all ToolResult parts in the message, in order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}
