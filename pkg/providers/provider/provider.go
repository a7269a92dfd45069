// Package provider defines the vendor-neutral capability surface that LLM
// providers implement: a non-streaming Generate and a streaming variant that
// yields tagged events whose terminal event carries the fully assembled
// reply. Concrete implementations live in sibling packages.
package provider

import (
	"context"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/tools/toolbox"
)

// Params carries per-call generation settings.
type Params struct {
	MaxTokens   int
	Temperature float64
	Tools       []toolbox.Tool
}

// Provider is the capability surface over an LLM vendor API. Implementations
// normalize their own request/response/event shapes into the common message
// model: system-role content goes out-of-band where the vendor requires it,
// and tool results are attached to their originating tool call by id.
type Provider interface {
	// Generate sends the conversation and returns the assistant's text
	// content and any tool calls it produced.
	Generate(ctx context.Context, msgs []message.Message, p Params) (string, []content.ToolCall, error)

	// GenerateStream sends the conversation and returns a channel of events
	// in generation order. The channel is closed after a terminal
	// EventComplete (carrying the assembled content and tool calls) or an
	// EventError. Partial tool-call argument JSON is concatenated in arrival
	// order and parsed once the call is complete; unparseable argument text
	// surfaces under content.PartialArgsKey instead of failing the stream.
	GenerateStream(ctx context.Context, msgs []message.Message, p Params) (<-chan Event, error)
}

// EventKind identifies the type of a streaming event.
type EventKind int

const (
	EventContentDelta EventKind = iota
	EventToolCallDelta
	EventComplete
	EventError
)

// ToolCallDelta identifies a tool call being streamed and/or carries an
// incremental fragment of its argument JSON.
type ToolCallDelta struct {
	ID        string
	Name      string
	InputJSON string
}

// Event is one tagged streaming event. Exactly one terminal event
// (EventComplete or EventError) ends a stream.
type Event struct {
	Kind         EventKind
	Delta        string // EventContentDelta: incremental text.
	ToolCall     ToolCallDelta
	Content      string // EventComplete: full accumulated text.
	ToolCalls    []content.ToolCall
	FinishReason string
	Err          error
}

// NewContentDelta creates a content delta event.
func NewContentDelta(text string) Event {
	return Event{Kind: EventContentDelta, Delta: text}
}

// NewToolCallDelta creates a tool call delta event.
func NewToolCallDelta(id, name, inputJSON string) Event {
	return Event{Kind: EventToolCallDelta, ToolCall: ToolCallDelta{ID: id, Name: name, InputJSON: inputJSON}}
}

// NewComplete creates the terminal event for a successful provider round.
func NewComplete(text string, calls []content.ToolCall, finishReason string) Event {
	return Event{Kind: EventComplete, Content: text, ToolCalls: calls, FinishReason: finishReason}
}

// NewError creates the terminal event for a failed stream.
func NewError(err error) Event {
	return Event{Kind: EventError, Err: err}
}
