package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/chats/message"
	"github.com/cueso/cueso/pkg/chats/role"
	"github.com/cueso/cueso/pkg/providers/provider"
	"github.com/cueso/cueso/pkg/tools/toolbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() provider.Params {
	return provider.Params{
		MaxTokens:   1024,
		Temperature: 0.7,
		Tools: []toolbox.Tool{
			{Name: "find_content", Description: "find content", InputSchema: json.RawMessage(`{"type":"object"}`)},
		},
	}
}

func TestGenerate(t *testing.T) {
	var captured apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "tu_1", "name": "find_content", "input": {"title": "Rick and Morty"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "key-123", "claude-3-5-sonnet-20241022")
	a.Client = srv.Client()

	msgs := []message.Message{
		message.NewText(role.System, "you control a roku"),
		message.NewText(role.User, "play rick and morty"),
	}

	text, calls, err := a.Generate(context.Background(), msgs, testParams())
	require.NoError(t, err)

	assert.Equal(t, "let me check", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "tu_1", calls[0].ID)
	assert.Equal(t, "find_content", calls[0].Name)
	assert.Equal(t, map[string]any{"title": "Rick and Morty"}, calls[0].Arguments)

	// System prompt goes out-of-band, not into the message list.
	assert.Equal(t, "you control a roku", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)

	total := a.Usage.Total()
	assert.Equal(t, 10, total.InputTokens)
	assert.Equal(t, 5, total.OutputTokens)
}

func TestBuildRequest_ToolRoundTrip(t *testing.T) {
	a := New("http://example.com", "k", "m")

	msgs := []message.Message{
		message.NewText(role.User, "play it"),
		message.New(role.Assistant,
			content.Text{Text: "searching"},
			content.ToolCall{ID: "tu_1", Name: "find_content", Arguments: map[string]any{"title": "Alien"}},
		),
		message.New(role.Tool,
			content.ToolResult{ToolCallID: "tu_1", Content: `{"success":true}`, Status: content.StatusCompleted},
		),
	}

	req := a.buildRequest(msgs, testParams(), false)

	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	require.Len(t, req.Messages[1].Content, 2)
	assert.Equal(t, "tool_use", req.Messages[1].Content[1].Type)
	assert.JSONEq(t, `{"title":"Alien"}`, string(req.Messages[1].Content[1].Input))

	// Tool results ride in a user-role message with the originating call id.
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "tool_result", req.Messages[2].Content[0].Type)
	assert.Equal(t, "tu_1", req.Messages[2].Content[0].ToolUseID)
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(srv.URL, "k", "m")
	a.Client = srv.Client()

	_, _, err := a.Generate(context.Background(), []message.Message{message.NewText(role.User, "hi")}, testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic:")
}
