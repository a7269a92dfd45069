package openai

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

// GenerateStream opens an SSE stream against the Chat Completions API and
// converts the vendor chunks into provider events. Content and tool-call
// deltas are forwarded in generation order; the terminal EventComplete
// carries the assembled content and tool calls.
func (a *Adapter) GenerateStream(ctx context.Context, msgs []message.Message, p provider.Params) (<-chan provider.Event, error) {
	req := a.buildRequest(msgs, p, true)

	body, err := a.OpenSSE(ctx, completionsPath, req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	out := make(chan provider.Event)
	go a.consume(ctx, body, out)
	return out, nil
}

// apiChunk covers every Chat Completions stream payload we care about.
type apiChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// streamState accumulates the in-flight provider round. Tool calls arrive as
// indexed fragments, so calls and argBuffers grow as new indexes appear.
type streamState struct {
	text         strings.Builder
	calls        []content.ToolCall
	argBuffers   []string
	finishReason string
}

func (a *Adapter) consume(ctx context.Context, body io.ReadCloser, out chan<- provider.Event) {
	defer close(out)
	defer func() { _ = body.Close() }()

	reader := bufio.NewReader(body)
	var st streamState
	var buf bytes.Buffer

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF before the [DONE] marker means the stream was cut short.
			send(ctx, out, provider.NewError(fmt.Errorf("openai: stream ended early: %w", err)))
			return
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if buf.Len() == 0 {
				continue
			}

			raw := buf.Bytes()
			buf.Reset()

			if bytes.Equal(bytes.TrimSpace(raw), []byte("[DONE]")) {
				break
			}

			if err := a.dispatch(ctx, &st, raw, out); err != nil {
				send(ctx, out, provider.NewError(err))
				return
			}
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			buf.WriteString(strings.TrimPrefix(data, " "))
		}
	}

	send(ctx, out, provider.NewComplete(st.text.String(), st.finalCalls(), st.finishReason))
}

// dispatch handles one decoded stream chunk.
func (a *Adapter) dispatch(ctx context.Context, st *streamState, raw []byte, out chan<- provider.Event) error {
	var chunk apiChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return fmt.Errorf("openai: decode stream chunk: %w", err)
	}

	if chunk.Usage != nil {
		a.Usage.Add(usage.TokenCount{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		})
	}

	if len(chunk.Choices) == 0 {
		return nil
	}
	choice := chunk.Choices[0]

	if choice.FinishReason != "" {
		st.finishReason = choice.FinishReason
	}

	if choice.Delta.Content != "" {
		st.text.WriteString(choice.Delta.Content)
		if !send(ctx, out, provider.NewContentDelta(choice.Delta.Content)) {
			return ctx.Err()
		}
	}

	for _, tc := range choice.Delta.ToolCalls {
		for tc.Index >= len(st.calls) {
			st.calls = append(st.calls, content.ToolCall{})
			st.argBuffers = append(st.argBuffers, "")
		}

		call := &st.calls[tc.Index]
		if tc.ID != "" {
			call.ID = tc.ID
		}
		if tc.Function.Name != "" {
			call.Name = tc.Function.Name
		}
		st.argBuffers[tc.Index] += tc.Function.Arguments

		if !send(ctx, out, provider.NewToolCallDelta(call.ID, call.Name, tc.Function.Arguments)) {
			return ctx.Err()
		}
	}

	return nil
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
