// Package openai implements provider.Provider for the OpenAI Chat
// Completions API, including SSE streaming.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/chats/role"
	"github.com/cueso/cueso/pkg/modeladapter"
	"github.com/cueso/cueso/pkg/modeladapter/usage"
	"github.com/cueso/cueso/pkg/providers/provider"
)

const completionsPath = "/v1/chat/completions"

var _ provider.Provider = (*Adapter)(nil)

// Adapter implements provider.Provider for the OpenAI Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the OpenAI API.
// The baseURL should be "https://api.openai.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model

	return a
}

// Generate sends a non-streaming request and returns the assistant's text
// content and tool calls.
func (a *Adapter) Generate(ctx context.Context, msgs []message.Message, p provider.Params) (string, []content.ToolCall, error) {
	req := a.buildRequest(msgs, p, false)

	var resp apiResponse
	if err := a.PostJSON(ctx, completionsPath, req, &resp); err != nil {
		return "", nil, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("openai: response has no choices")
	}

	msg := resp.Choices[0].Message
	var calls []content.ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: provider.ParseArguments(tc.Function.Arguments),
		})
	}

	return msg.Content, calls, nil
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Function apiFunction `json:"function"`
}

type apiFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string        `json:"type"`
	Function apiFunDefBody `json:"function"`
}

type apiFunDefBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// --- response types ---

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content   string        `json:"content"`
			ToolCalls []apiToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(msgs []message.Message, p provider.Params, stream bool) apiRequest {
	req := apiRequest{
		Model:     a.Name,
		MaxTokens: p.MaxTokens,
		Stream:    stream,
	}

	if p.Temperature != 0 {
		t := p.Temperature
		req.Temperature = &t
	}

	if len(p.Tools) > 0 {
		req.Tools = make([]apiToolDef, len(p.Tools))
		for i, t := range p.Tools {
			schema := t.InputSchema
			if schema == nil {
				schema = json.RawMessage(`{"type":"object"}`)
			}
			req.Tools[i] = apiToolDef{
				Type: "function",
				Function: apiFunDefBody{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  schema,
				},
			}
		}
		req.ToolChoice = "auto"
	}

	for _, m := range msgs {
		appendMessage(&req.Messages, m)
	}

	return req
}

func appendMessage(msgs *[]apiMessage, m message.Message) {
	switch m.Role {
	case role.System:
		*msgs = append(*msgs, apiMessage{Role: "system", Content: m.TextContent()})

	case role.User:
		*msgs = append(*msgs, apiMessage{Role: "user", Content: m.TextContent()})

	case role.Assistant:
		out := apiMessage{Role: "assistant", Content: m.TextContent()}
		for _, tc := range m.ToolCalls() {
			args, err := json.Marshal(tc.Arguments)
			if err != nil || string(args) == "null" {
				args = []byte(`{}`)
			}
			out.ToolCalls = append(out.ToolCalls, apiToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: apiFunction{Name: tc.Name, Arguments: string(args)},
			})
		}
		*msgs = append(*msgs, out)

	case role.Tool:
		// One tool message per result, keyed to its originating call.
		for _, tr := range m.ToolResults() {
			*msgs = append(*msgs, apiMessage{
				Role:       "tool",
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
			})
		}
	}
}
