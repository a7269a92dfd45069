// Package content defines the structured content parts carried by
// conversation messages: plain text, tool calls, and tool results.
package content

// PartialArgsKey is the sentinel key under which a tool call's raw argument
// text is stored when the provider-streamed JSON could not be parsed. A
// downstream handler still sees the text instead of nothing.
const PartialArgsKey = "partial"

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall is an assistant's request to invoke a named tool. The ID is
// provider-assigned and opaque; it is unique within a turn and ties results
// back to their calls.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// Status reports how a tool call execution ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ToolResult holds the output of a tool invocation. Content is the literal
// string handed back to the LLM, possibly JSON-encoded by the handler.
type ToolResult struct {
	ToolCallID string
	Content    string
	Status     Status
	Error      string
}

func (tr ToolResult) PartKind() string { return "tool_result" }

// Failed reports whether the tool call execution failed.
func (tr ToolResult) Failed() bool { return tr.Status == StatusFailed }
