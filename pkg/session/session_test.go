package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/chats/role"
	"github.com/cueso/cueso/pkg/providers/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// turn scripts one provider round-trip.
type turn struct {
	text  string
	calls []content.ToolCall
	err   error
}

// scriptedProvider replays scripted turns. When the script runs out it keeps
// repeating the last turn.
type scriptedProvider struct {
	turns     []turn
	callCount int
}

func (p *scriptedProvider) next() turn {
	i := p.callCount
	p.callCount++
	if i >= len(p.turns) {
		return p.turns[len(p.turns)-1]
	}
	return p.turns[i]
}

func (p *scriptedProvider) Generate(_ context.Context, _ []message.Message, _ provider.Params) (string, []content.ToolCall, error) {
	t := p.next()
	return t.text, t.calls, t.err
}

func (p *scriptedProvider) GenerateStream(_ context.Context, _ []message.Message, _ provider.Params) (<-chan provider.Event, error) {
	t := p.next()

	ch := make(chan provider.Event, 8)
	go func() {
		defer close(ch)
		if t.err != nil {
			ch <- provider.NewError(t.err)
			return
		}
		if t.text != "" {
			ch <- provider.NewContentDelta(t.text)
		}
		for _, call := range t.calls {
			ch <- provider.NewToolCallDelta(call.ID, call.Name, "")
		}
		ch <- provider.NewComplete(t.text, t.calls, "end_turn")
	}()
	return ch, nil
}

// recordingExecutor runs tool calls against a result map. Names listed in
// fail return errors.
type recordingExecutor struct {
	results  map[string]string
	fail     map[string]error
	executed []string
}

func (e *recordingExecutor) Execute(_ context.Context, call content.ToolCall) (string, error) {
	e.executed = append(e.executed, call.Name)
	if err, ok := e.fail[call.Name]; ok {
		return "", err
	}
	return e.results[call.Name], nil
}

func collectEvents(emit *[]Event) func(Event) {
	return func(ev Event) { *emit = append(*emit, ev) }
}

func defaultConfig() Config {
	return Config{
		SystemPrompt:  "you control a roku",
		MaxTokens:     1024,
		MaxIterations: 10,
		Temperature:   0.7,
	}
}

func TestChat_SimpleAnswer(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{text: "Hello there."}}}
	s := New("s1", p, defaultConfig())

	final, err := s.Chat(context.Background(), "hi", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", final.Content)
	assert.Equal(t, "s1", final.SessionID)
	assert.Equal(t, 1, final.IterationCount)
	assert.False(t, final.Paused)
	assert.Empty(t, final.ToolCalls)
	assert.Equal(t, 1, p.callCount)

	// system + user + assistant
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, role.System, msgs[0].Role)
	assert.Equal(t, role.User, msgs[1].Role)
	assert.Equal(t, role.Assistant, msgs[2].Role)
	assert.Equal(t, "Hello there.", msgs[2].TextContent())
}

func TestChat_ToolLoop(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{text: "checking", calls: []content.ToolCall{{ID: "tu_1", Name: "get_roku_status", Arguments: map[string]any{}}}},
		{text: "Your Roku is online."},
	}}
	exec := &recordingExecutor{results: map[string]string{"get_roku_status": "Roku device is online. Model: Ultra"}}
	s := New("s1", p, defaultConfig())

	final, err := s.Chat(context.Background(), "is my roku on?", exec, nil)
	require.NoError(t, err)

	assert.Equal(t, "Your Roku is online.", final.Content)
	assert.Equal(t, 2, final.IterationCount)
	assert.False(t, final.Paused)
	assert.Empty(t, final.ToolCalls)
	assert.Equal(t, []string{"get_roku_status"}, exec.executed)

	// system + user + assistant + tool + assistant
	msgs := s.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, role.Tool, msgs[3].Role)

	results := msgs[3].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "tu_1", results[0].ToolCallID)
	assert.Equal(t, "Roku device is online. Model: Ultra", results[0].Content)
	assert.Equal(t, content.StatusCompleted, results[0].Status)
}

func TestChat_SequentialBatchWithFailure(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{calls: []content.ToolCall{
			{ID: "tu_1", Name: "web_search", Arguments: map[string]any{"query": "x"}},
			{ID: "tu_2", Name: "broken", Arguments: map[string]any{}},
			{ID: "tu_3", Name: "get_roku_status", Arguments: map[string]any{}},
		}},
		{text: "done"},
	}}
	exec := &recordingExecutor{
		results: map[string]string{"web_search": "1. hit", "get_roku_status": "online"},
		fail:    map[string]error{"broken": errors.New("boom")},
	}
	s := New("s1", p, defaultConfig())

	var events []Event
	final, err := s.Chat(context.Background(), "go", exec, collectEvents(&events))
	require.NoError(t, err)
	assert.False(t, final.Paused)

	// The failure does not abort the batch: all three ran, in order.
	assert.Equal(t, []string{"web_search", "broken", "get_roku_status"}, exec.executed)

	// One TOOL message with one result per call, order preserved.
	msgs := s.Messages()
	results := msgs[3].ToolResults()
	require.Len(t, results, 3)
	assert.Equal(t, content.StatusCompleted, results[0].Status)
	assert.Equal(t, content.StatusFailed, results[1].Status)
	assert.Equal(t, "Error: boom", results[1].Content)
	assert.Equal(t, "boom", results[1].Error)
	assert.True(t, results[1].Failed())
	assert.Equal(t, content.StatusCompleted, results[2].Status)

	// The failed call's event is flagged.
	var toolEvents []ToolResultEvent
	for _, ev := range events {
		if tr, ok := ev.(ToolResultEvent); ok {
			toolEvents = append(toolEvents, tr)
		}
	}
	require.Len(t, toolEvents, 3)
	assert.False(t, toolEvents[0].Error)
	assert.True(t, toolEvents[1].Error)
	assert.Equal(t, "broken", toolEvents[1].ToolName)
}

func TestChat_PauseAfter(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{text: "searching", calls: []content.ToolCall{{ID: "tu_1", Name: "find_content", Arguments: map[string]any{"title": "Alien"}}}},
		{text: "should not be reached"},
	}}
	exec := &recordingExecutor{results: map[string]string{"find_content": `{"success": true}`}}

	cfg := defaultConfig()
	cfg.PauseAfter = map[string]bool{"find_content": true}
	s := New("s1", p, cfg)

	final, err := s.Chat(context.Background(), "play alien", exec, nil)
	require.NoError(t, err)

	// The loop stops after the pause tool's results: one provider call only.
	assert.Equal(t, 1, p.callCount)
	assert.True(t, final.Paused)
	assert.Equal(t, []string{"find_content"}, final.ToolCalls)
	assert.Equal(t, 1, final.IterationCount)
	assert.Equal(t, []string{"find_content"}, exec.executed)
}

func TestChat_PausedWithoutExecutor(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{calls: []content.ToolCall{{ID: "tu_1", Name: "find_content", Arguments: map[string]any{}}}},
	}}

	cfg := defaultConfig()
	cfg.PauseAfter = map[string]bool{"find_content": true}
	s := New("s1", p, cfg)

	final, err := s.Chat(context.Background(), "play alien", nil, nil)
	require.NoError(t, err)

	// No executor ran the call, but the handshake still reports paused.
	assert.True(t, final.Paused)
	assert.Equal(t, 1, p.callCount)
}

func TestChat_MaxIterationsExhaustion(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{calls: []content.ToolCall{{ID: "tu_1", Name: "web_search", Arguments: map[string]any{}}}},
	}}
	exec := &recordingExecutor{results: map[string]string{"web_search": "more"}}

	cfg := defaultConfig()
	cfg.MaxIterations = 3
	s := New("s1", p, cfg)

	final, err := s.Chat(context.Background(), "loop forever", exec, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, p.callCount)
	assert.Equal(t, 3, final.IterationCount)
	assert.False(t, final.Paused)
	assert.Equal(t, []string{"web_search"}, final.ToolCalls)
}

func TestChat_IterationsAreCumulative(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{text: "ok"}}}

	cfg := defaultConfig()
	cfg.MaxIterations = 3
	s := New("s1", p, cfg)

	for i := 1; i <= 3; i++ {
		final, err := s.Chat(context.Background(), fmt.Sprintf("msg %d", i), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, i, final.IterationCount)
	}

	// The ceiling is spent: the next turn gets no provider round-trip and an
	// empty terminal summary.
	final, err := s.Chat(context.Background(), "one more", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, final.IterationCount)
	assert.Empty(t, final.Content)
	assert.Equal(t, 3, p.callCount)
}

func TestChat_StreamingEventOrder(t *testing.T) {
	p := &scriptedProvider{turns: []turn{
		{text: "checking", calls: []content.ToolCall{{ID: "tu_1", Name: "get_roku_status", Arguments: map[string]any{}}}},
		{text: "all good"},
	}}
	exec := &recordingExecutor{results: map[string]string{"get_roku_status": "online"}}

	cfg := defaultConfig()
	cfg.Stream = true
	s := New("s1", p, cfg)

	var events []Event
	final, err := s.Chat(context.Background(), "status?", exec, collectEvents(&events))
	require.NoError(t, err)
	assert.Equal(t, "all good", final.Content)

	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.EventType()
	}
	assert.Equal(t, []string{
		"content_delta", "tool_call_delta", "message_complete",
		"tool_result",
		"content_delta", "message_complete",
		"final",
	}, types)

	mc := events[2].(MessageComplete)
	assert.Equal(t, "checking", mc.Content)
	assert.Equal(t, []string{"get_roku_status"}, mc.ToolCalls)
}

func TestChat_StreamError(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{err: errors.New("stream ended early")}}}

	cfg := defaultConfig()
	cfg.Stream = true
	s := New("s1", p, cfg)

	_, err := s.Chat(context.Background(), "hi", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream ended early")
}

func TestChat_FinalIsEmittedLast(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{text: "ok"}}}
	s := New("s1", p, defaultConfig())

	var events []Event
	final, err := s.Chat(context.Background(), "hi", nil, collectEvents(&events))
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, final, events[len(events)-1])
}

func TestReset(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{text: "ok"}}}
	s := New("s1", p, defaultConfig())

	_, err := s.Chat(context.Background(), "hi", nil, nil)
	require.NoError(t, err)
	require.Greater(t, s.IterationCount(), 0)

	s.Reset()

	assert.Equal(t, 0, s.IterationCount())
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, role.System, msgs[0].Role)
	assert.Equal(t, "you control a roku", s.SystemPrompt())
}

func TestReset_NoSystemPrompt(t *testing.T) {
	p := &scriptedProvider{turns: []turn{{text: "ok"}}}

	cfg := defaultConfig()
	cfg.SystemPrompt = ""
	s := New("s1", p, cfg)

	_, err := s.Chat(context.Background(), "hi", nil, nil)
	require.NoError(t, err)

	s.Reset()
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.SystemPrompt())
}
