// Package anthropic implements provider.Provider for the Anthropic Messages
// API, including SSE streaming.
package anthropic

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

const messagesPath = "/v1/messages"

var _ provider.Provider = (*Adapter)(nil)

// Adapter implements provider.Provider for the Anthropic Messages API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the Anthropic API.
// The baseURL should be "https://api.anthropic.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{
		Key:    apiKey,
		Header: "x-api-key",
	}
	a.Name = model
	a.Headers = map[string]string{
		"anthropic-version": "2023-06-01",
	}

	return a
}

// Generate sends a non-streaming request and returns the assistant's text
// content and tool calls.
func (a *Adapter) Generate(ctx context.Context, msgs []message.Message, p provider.Params) (string, []content.ToolCall, error) {
	req := a.buildRequest(msgs, p, false)

	var resp apiResponse
	if err := a.PostJSON(ctx, messagesPath, req, &resp); err != nil {
		return "", nil, fmt.Errorf("anthropic: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	text, calls := parseResponse(resp)
	return text, calls, nil
}

// --- request types ---

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type apiToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// --- response types ---

type apiResponse struct {
	Content    []apiContent `json:"content"`
	StopReason string       `json:"stop_reason"`
	Usage      apiUsage     `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(msgs []message.Message, p provider.Params, stream bool) apiRequest {
	req := apiRequest{
		Model:     a.Name,
		MaxTokens: p.MaxTokens,
		System:    systemPrompt(msgs),
		Stream:    stream,
	}

	if req.MaxTokens == 0 {
		req.MaxTokens = 4096
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
				Name:        t.Name,
				Description: t.Description,
				InputSchema: schema,
			}
		}
	}

	for _, m := range msgs {
		if m.Role == role.System {
			continue
		}
		appendMessage(&req.Messages, m)
	}

	return req
}

// systemPrompt returns the text of the first system message. Anthropic takes
// the system prompt out-of-band.
func systemPrompt(msgs []message.Message) string {
	for _, m := range msgs {
		if m.Role == role.System {
			return m.TextContent()
		}
	}
	return ""
}

func appendMessage(msgs *[]apiMessage, m message.Message) {
	for _, p := range m.Parts {
		block := partToBlock(p)
		if block == nil {
			continue
		}

		msgRole := mapRole(m.Role)

		// Tool results must be in a "user" role message per Anthropic API.
		if _, ok := p.(content.ToolResult); ok {
			msgRole = "user"
		}

		// Merge into the last message if it has the same role.
		if len(*msgs) > 0 && (*msgs)[len(*msgs)-1].Role == msgRole {
			(*msgs)[len(*msgs)-1].Content = append((*msgs)[len(*msgs)-1].Content, *block)
			continue
		}

		*msgs = append(*msgs, apiMessage{
			Role:    msgRole,
			Content: []apiContent{*block},
		})
	}
}

func partToBlock(p content.Part) *apiContent {
	switch v := p.(type) {
	case content.Text:
		if v.Text == "" {
			return nil
		}
		return &apiContent{Type: "text", Text: v.Text}
	case content.ToolCall:
		input, err := json.Marshal(v.Arguments)
		if err != nil || len(input) == 0 || string(input) == "null" {
			input = json.RawMessage(`{}`)
		}
		return &apiContent{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input}
	case content.ToolResult:
		return &apiContent{Type: "tool_result", ToolUseID: v.ToolCallID, Content: v.Content}
	default:
		return nil
	}
}

func mapRole(r role.Role) string {
	switch r {
	case role.Assistant:
		return "assistant"
	default:
		return "user"
	}
}

func parseResponse(resp apiResponse) (string, []content.ToolCall) {
	var text string
	var calls []content.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			calls = append(calls, content.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: provider.ParseArguments(string(block.Input)),
			})
		}
	}

	return text, calls
}
