// Package session runs LLM conversations: the tool-calling chat loop, the
// wire events it emits, and the in-memory session store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cueso/cueso/pkg/chats/chat"
	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/chats/role"
	"github.com/cueso/cueso/pkg/providers/provider"
	"github.com/cueso/cueso/pkg/tools/toolbox"
)

// Config carries the per-session conversation settings.
type Config struct {
	SystemPrompt  string
	Tools         []toolbox.Tool
	MaxTokens     int
	MaxIterations int
	Temperature   float64
	Stream        bool

	// PauseAfter lists tool names that hand control back to the client after
	// their results are recorded.
	PauseAfter map[string]bool
}

// Executor runs one tool call and returns its textual result. A non-nil error
// marks the call's result as failed without aborting the batch.
type Executor interface {
	Execute(ctx context.Context, call content.ToolCall) (string, error)
}

// Session is one LLM conversation.
type Session struct {
	id       string
	provider provider.Provider
	config   Config
	log      *slog.Logger

	mu         sync.Mutex
	chat       *chat.Chat
	iterations int
}

// New creates a Session. The system prompt from cfg seeds the conversation.
func New(id string, p provider.Provider, cfg Config) *Session {
	s := &Session{
		id:       id,
		provider: p,
		config:   cfg,
		log:      slog.Default().With("session_id", id),
		chat:     chat.New(),
	}

	if cfg.SystemPrompt != "" {
		s.chat.Append(message.NewText(role.System, cfg.SystemPrompt))
	}
	s.log.Debug("session initialized", "has_system_prompt", cfg.SystemPrompt != "", "stream", cfg.Stream)

	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Config returns the session configuration.
func (s *Session) Config() Config { return s.config }

// IterationCount returns the cumulative number of provider round-trips across
// the session's lifetime. Only Reset zeroes it.
func (s *Session) IterationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.Messages()
}

// SystemPrompt returns the session's system prompt, or "" when none is set.
func (s *Session) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.SystemPrompt()
}

// Reset clears the conversation down to its system messages and zeroes the
// iteration count.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.Reset()
	s.iterations = 0
}

// Chat runs one turn of the tool-calling loop: provider round-trip, assistant
// message, tool execution, tool results, repeat. The loop ends when the
// assistant answers without tool calls, when the cumulative iteration ceiling
// is hit, when a pause_after tool ran, or when no executor is available to run
// the requested tools. Intermediate events go to emit; the returned Final is
// also emitted as the last event.
func (s *Session) Chat(ctx context.Context, userMessage string, exec Executor, emit func(Event)) (Final, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emit == nil {
		emit = func(Event) {}
	}

	s.chat.Append(message.NewText(role.User, userMessage))
	s.log.Info("user message added", "total_messages", s.chat.Len())

	var text string
	var calls []content.ToolCall

	for s.iterations < s.config.MaxIterations {
		s.iterations++

		var err error
		text, calls, err = s.generate(ctx, emit)
		if err != nil {
			return Final{}, fmt.Errorf("session %s: %w", s.id, err)
		}

		s.chat.Append(assistantMessage(text, calls))
		s.log.Info("assistant message added", "tool_calls", len(calls))

		if len(calls) == 0 {
			break
		}

		if exec == nil {
			// The caller handles tool calls externally.
			break
		}

		s.runTools(ctx, exec, calls, emit)

		if s.pausedBy(calls) {
			s.log.Info("pausing after tool", "pause_after", pauseNames(s.config.PauseAfter))
			break
		}
	}

	final := Final{
		Type:           "final",
		Content:        text,
		ToolCalls:      callNames(calls),
		SessionID:      s.id,
		IterationCount: s.iterations,
		Paused:         s.pausedBy(calls),
	}
	emit(final)
	return final, nil
}

// generate performs one provider round-trip, streaming or not per config.
func (s *Session) generate(ctx context.Context, emit func(Event)) (string, []content.ToolCall, error) {
	params := provider.Params{
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Tools:       s.config.Tools,
	}

	if !s.config.Stream {
		return s.provider.Generate(ctx, s.chat.Messages(), params)
	}

	ch, err := s.provider.GenerateStream(ctx, s.chat.Messages(), params)
	if err != nil {
		return "", nil, err
	}

	var text string
	var calls []content.ToolCall
	completed := false

	for ev := range ch {
		switch ev.Kind {
		case provider.EventContentDelta:
			emit(NewContentDelta(ev.Delta))
		case provider.EventToolCallDelta:
			emit(NewToolCallDelta(ev.ToolCall.ID, ev.ToolCall.Name, ev.ToolCall.InputJSON))
		case provider.EventComplete:
			text, calls = ev.Content, ev.ToolCalls
			completed = true
			emit(NewMessageComplete(text, callNames(calls), ev.FinishReason))
		case provider.EventError:
			return "", nil, ev.Err
		}
	}

	if !completed {
		return "", nil, fmt.Errorf("stream closed without completion")
	}

	return text, calls, nil
}

// runTools executes the batch sequentially, in call order, and records a
// single TOOL message holding one result per call. An executor failure
// becomes a failed result for that call only; the rest of the batch still
// runs.
func (s *Session) runTools(ctx context.Context, exec Executor, calls []content.ToolCall, emit func(Event)) {
	results := make([]content.Part, 0, len(calls))

	for _, call := range calls {
		out, err := exec.Execute(ctx, call)
		if err != nil {
			s.log.Error("tool execution failed", "tool", call.Name, "err", err)
			errText := "Error: " + err.Error()
			results = append(results, content.ToolResult{
				ToolCallID: call.ID,
				Content:    errText,
				Status:     content.StatusFailed,
				Error:      err.Error(),
			})
			emit(NewToolResultEvent(call.Name, call.ID, errText, true))
			continue
		}

		s.log.Debug("tool executed", "tool", call.Name)
		results = append(results, content.ToolResult{
			ToolCallID: call.ID,
			Content:    out,
			Status:     content.StatusCompleted,
		})
		emit(NewToolResultEvent(call.Name, call.ID, out, false))
	}

	s.chat.Append(message.New(role.Tool, results...))
}

// pausedBy reports whether any of the last assistant turn's calls name a
// pause_after tool.
func (s *Session) pausedBy(calls []content.ToolCall) bool {
	if len(s.config.PauseAfter) == 0 {
		return false
	}
	for _, call := range calls {
		if s.config.PauseAfter[call.Name] {
			return true
		}
	}
	return false
}

func assistantMessage(text string, calls []content.ToolCall) message.Message {
	parts := make([]content.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, content.Text{Text: text})
	}
	for _, call := range calls {
		parts = append(parts, call)
	}
	return message.New(role.Assistant, parts...)
}

func callNames(calls []content.ToolCall) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
	}
	return names
}

func pauseNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}
