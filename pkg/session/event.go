package session

// Event is a wire-level chat event pushed to the client during a turn. Every
// event carries a "type" discriminator in its JSON form.
type Event interface {
	EventType() string
}

// SessionCreated acknowledges the session id in use for the connection.
type SessionCreated struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (SessionCreated) EventType() string { return "session_created" }

// NewSessionCreated builds a SessionCreated event.
func NewSessionCreated(sessionID string) SessionCreated {
	return SessionCreated{Type: "session_created", SessionID: sessionID}
}

// ContentDelta carries one streamed fragment of assistant text.
type ContentDelta struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Role    string `json:"role"`
}

func (ContentDelta) EventType() string { return "content_delta" }

// NewContentDelta builds a ContentDelta event.
func NewContentDelta(text string) ContentDelta {
	return ContentDelta{Type: "content_delta", Content: text, Role: "assistant"}
}

// ToolCallInfo identifies the tool call a delta belongs to. InputJSON holds a
// raw argument fragment; it is empty on the announcement delta.
type ToolCallInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	InputJSON string `json:"input_json,omitempty"`
}

// ToolCallDelta announces a tool call or carries one of its argument
// fragments.
type ToolCallDelta struct {
	Type     string       `json:"type"`
	ToolCall ToolCallInfo `json:"tool_call"`
}

func (ToolCallDelta) EventType() string { return "tool_call_delta" }

// NewToolCallDelta builds a ToolCallDelta event.
func NewToolCallDelta(id, name, inputJSON string) ToolCallDelta {
	return ToolCallDelta{Type: "tool_call_delta", ToolCall: ToolCallInfo{ID: id, Name: name, InputJSON: inputJSON}}
}

// ToolResultEvent reports the outcome of one executed tool call.
type ToolResultEvent struct {
	Type       string `json:"type"`
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	Error      bool   `json:"error,omitempty"`
}

func (ToolResultEvent) EventType() string { return "tool_result" }

// NewToolResultEvent builds a ToolResultEvent.
func NewToolResultEvent(toolName, toolCallID, result string, isError bool) ToolResultEvent {
	return ToolResultEvent{Type: "tool_result", ToolName: toolName, ToolCallID: toolCallID, Result: result, Error: isError}
}

// MessageComplete marks the end of one streamed assistant message.
type MessageComplete struct {
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	ToolCalls    []string `json:"tool_calls"`
	FinishReason string   `json:"finish_reason"`
}

func (MessageComplete) EventType() string { return "message_complete" }

// NewMessageComplete builds a MessageComplete event.
func NewMessageComplete(text string, toolCalls []string, finishReason string) MessageComplete {
	if toolCalls == nil {
		toolCalls = []string{}
	}
	if finishReason == "" {
		finishReason = "unknown"
	}
	return MessageComplete{Type: "message_complete", Content: text, ToolCalls: toolCalls, FinishReason: finishReason}
}

// Final is the terminal summary of a chat turn.
type Final struct {
	Type           string   `json:"type"`
	Content        string   `json:"content"`
	ToolCalls      []string `json:"tool_calls"`
	SessionID      string   `json:"session_id"`
	IterationCount int      `json:"iteration_count"`
	Paused         bool     `json:"paused"`
}

func (Final) EventType() string { return "final" }

// ErrorEvent reports a turn-level failure to the client.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return "error" }

// NewErrorEvent builds an ErrorEvent.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}
