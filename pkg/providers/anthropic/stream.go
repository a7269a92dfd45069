package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/modeladapter/usage"
	"github.com/cueso/cueso/pkg/providers/provider"
)

// GenerateStream opens an SSE stream against the Messages API and converts
// the vendor events into provider events. Content and tool-call deltas are
// forwarded in generation order; the terminal EventComplete carries the
// assembled content and tool calls.
func (a *Adapter) GenerateStream(ctx context.Context, msgs []message.Message, p provider.Params) (<-chan provider.Event, error) {
	req := a.buildRequest(msgs, p, true)

	body, err := a.OpenSSE(ctx, messagesPath, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	out := make(chan provider.Event)
	go a.consume(ctx, body, out)
	return out, nil
}

// sseEvent covers every Messages API stream payload we care about.
type sseEvent struct {
	Type         string `json:"type"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// streamState accumulates the in-flight provider round.
type streamState struct {
	text         strings.Builder
	calls        []content.ToolCall
	argBuffers   []string // Parallel to calls; raw argument JSON per call.
	activeIsTool bool
	finishReason string
}

func (a *Adapter) consume(ctx context.Context, body io.ReadCloser, out chan<- provider.Event) {
	defer close(out)
	defer func() { _ = body.Close() }()

	reader := bufio.NewReader(body)
	var st streamState

	// SSE framing: "data:" lines accumulate into a buffer; a blank line
	// terminates the event.
	var buf bytes.Buffer

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF before message_stop is an error: the stream was cut short.
			send(ctx, out, provider.NewError(fmt.Errorf("anthropic: stream ended early: %w", err)))
			return
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if buf.Len() == 0 {
				continue
			}

			raw := buf.Bytes()
			buf.Reset()

			done, err := a.dispatch(ctx, &st, raw, out)
			if err != nil {
				send(ctx, out, provider.NewError(err))
				return
			}
			if done {
				break
			}
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			buf.WriteString(strings.TrimPrefix(data, " "))
		}
	}

	send(ctx, out, provider.NewComplete(st.text.String(), st.finalCalls(), st.finishReason))
}

// dispatch handles one decoded SSE payload. It returns true once the message
// is complete.
func (a *Adapter) dispatch(ctx context.Context, st *streamState, raw []byte, out chan<- provider.Event) (bool, error) {
	var ev sseEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return false, fmt.Errorf("anthropic: decode stream event: %w", err)
	}

	switch ev.Type {
	case "ping", "message_start", "content_block_stop":
		// content_block_stop needs no action here: argument JSON is parsed
		// lazily in finalCalls once the whole message is done.

	case "content_block_start":
		st.activeIsTool = ev.ContentBlock.Type == "tool_use"
		if st.activeIsTool {
			st.calls = append(st.calls, content.ToolCall{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name})
			st.argBuffers = append(st.argBuffers, "")
			if !send(ctx, out, provider.NewToolCallDelta(ev.ContentBlock.ID, ev.ContentBlock.Name, "")) {
				return true, ctx.Err()
			}
		}

	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			st.text.WriteString(ev.Delta.Text)
			if !send(ctx, out, provider.NewContentDelta(ev.Delta.Text)) {
				return true, ctx.Err()
			}
		case "input_json_delta":
			if st.activeIsTool && len(st.calls) > 0 {
				last := len(st.calls) - 1
				st.argBuffers[last] += ev.Delta.PartialJSON
				if !send(ctx, out, provider.NewToolCallDelta(st.calls[last].ID, st.calls[last].Name, ev.Delta.PartialJSON)) {
					return true, ctx.Err()
				}
			}
		}

	case "message_delta":
		if ev.Delta.StopReason != "" {
			st.finishReason = ev.Delta.StopReason
		}
		a.Usage.Add(usage.TokenCount{
			InputTokens:  ev.Usage.InputTokens,
			OutputTokens: ev.Usage.OutputTokens,
		})

	case "message_stop":
		return true, nil
	}

	return false, nil
}

// finalCalls parses each tool call's accumulated argument JSON.
func (st *streamState) finalCalls() []content.ToolCall {
	for i := range st.calls {
		st.calls[i].Arguments = provider.ParseArguments(st.argBuffers[i])
	}
	return st.calls
}

// send delivers an event unless the context is done. It reports whether the
// event was delivered.
func send(ctx context.Context, out chan<- provider.Event, ev provider.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
