package rokutools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/roku"
	"github.com/cueso/cueso/pkg/searchplay"
	"github.com/cueso/cueso/pkg/websearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []websearch.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ websearch.Options) ([]websearch.Result, error) {
	return f.results, f.err
}

func execute(t *testing.T, device *roku.Client, searcher *fakeSearcher, call content.ToolCall) string {
	t.Helper()

	var s searchplay.Searcher
	if searcher != nil {
		s = searcher
	}

	tb := New(device, s, nil)
	result, err := tb.Execute(context.Background(), call)
	require.NoError(t, err)
	return result
}

func TestCatalogOrder(t *testing.T) {
	tb := New(roku.NewWithBaseURL("http://example.com"), nil, nil)

	tools := tb.Tools()
	require.Len(t, tools, 5)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.Equal(t, []string{"search_roku", "get_roku_status", "web_search", "find_content", "launch_on_roku"}, names)

	for _, tool := range tools {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema), tool.Name)
		assert.Equal(t, "object", schema["type"], tool.Name)
	}
}

func TestSearchRoku_NotImplemented(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), nil, content.ToolCall{Name: "search_roku", Arguments: map[string]any{"query": "alien"}})

	assert.Contains(t, result, "Error executing tool search_roku")
	assert.Contains(t, result, "not yet implemented")
}

func TestGetRokuStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query/device-info", r.URL.Path)
		_, _ = w.Write([]byte(`{"model": "Roku Express"}`))
	}))
	defer srv.Close()

	device := roku.NewWithBaseURL(srv.URL, roku.WithHTTPClient(srv.Client()))
	result := execute(t, device, nil, content.ToolCall{Name: "get_roku_status", Arguments: map[string]any{}})

	assert.Equal(t, "Roku device is online. Model: Roku Express", result)
}

func TestGetRokuStatus_DeviceDown(t *testing.T) {
	device := roku.NewWithBaseURL("http://127.0.0.1:1")
	result := execute(t, device, nil, content.ToolCall{Name: "get_roku_status", Arguments: map[string]any{}})

	assert.Contains(t, result, "Error executing tool get_roku_status")
}

func TestWebSearch(t *testing.T) {
	searcher := &fakeSearcher{
		results: []websearch.Result{
			{Title: "Severance - IMDB", URL: "https://imdb.com/title/tt11280740", Description: "A thriller"},
			{Title: "Severance - Wikipedia", URL: "https://en.wikipedia.org/wiki/Severance", Description: "TV series"},
		},
	}

	result := execute(t, roku.NewWithBaseURL("http://example.com"), searcher, content.ToolCall{
		Name:      "web_search",
		Arguments: map[string]any{"query": "severance", "count": float64(2)},
	})

	assert.Contains(t, result, "1. Severance - IMDB\n   URL: https://imdb.com/title/tt11280740\n   A thriller")
	assert.Contains(t, result, "2. Severance - Wikipedia")
}

func TestWebSearch_NoResults(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), &fakeSearcher{}, content.ToolCall{
		Name:      "web_search",
		Arguments: map[string]any{"query": "xyzzy"},
	})

	assert.Equal(t, "No results found for: xyzzy", result)
}

func TestWebSearch_SearchError(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), &fakeSearcher{err: errors.New("quota exceeded")}, content.ToolCall{
		Name:      "web_search",
		Arguments: map[string]any{"query": "q"},
	})

	assert.Contains(t, result, "Search error: quota exceeded")
}

func TestWebSearch_NotConfigured(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), nil, content.ToolCall{
		Name:      "web_search",
		Arguments: map[string]any{"query": "q"},
	})

	assert.Equal(t, "Error: Brave Search is not configured. Set BRAVE_API_KEY.", result)
}

func TestFindContent(t *testing.T) {
	searcher := &fakeSearcher{
		results: []websearch.Result{
			{Title: "Watch on Netflix", URL: "https://www.netflix.com/title/80014749"},
		},
	}

	result := execute(t, roku.NewWithBaseURL("http://example.com"), searcher, content.ToolCall{
		Name:      "find_content",
		Arguments: map[string]any{"title": "Rick and Morty", "media_type": "series"},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, true, decoded["success"])

	matches := decoded["matches"].([]any)
	require.Len(t, matches, 1)
	match := matches[0].(map[string]any)
	assert.Equal(t, "netflix", match["service_name"])
	assert.Equal(t, float64(12), match["channel_id"])
	assert.Equal(t, "80014749", match["content_id"])
	assert.Equal(t, "series", match["media_type"])
}

func TestFindContent_NotConfigured(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), nil, content.ToolCall{
		Name:      "find_content",
		Arguments: map[string]any{"title": "Alien"},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Contains(t, decoded["message"], "not configured")
	assert.Equal(t, []any{}, decoded["matches"])
}

func TestLaunchOnRoku(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/launch/12", r.URL.Path)
		assert.Equal(t, "80014749", r.URL.Query().Get("contentId"))
		assert.Equal(t, "series", r.URL.Query().Get("mediaType"))
	}))
	defer srv.Close()

	device := roku.NewWithBaseURL(srv.URL, roku.WithHTTPClient(srv.Client()))
	result := execute(t, device, nil, content.ToolCall{
		Name:      "launch_on_roku",
		Arguments: map[string]any{"channel_id": float64(12), "content_id": "80014749", "media_type": "series"},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.Contains(t, decoded["message"], "Launched channel 12")
}

func TestLaunchOnRoku_MissingArgs(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), nil, content.ToolCall{
		Name:      "launch_on_roku",
		Arguments: map[string]any{"content_id": "80014749"},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "channel_id and content_id are required.", decoded["message"])
}

func TestLaunchOnRoku_StringChannelID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/launch/2285", r.URL.Path)
	}))
	defer srv.Close()

	device := roku.NewWithBaseURL(srv.URL, roku.WithHTTPClient(srv.Client()))
	result := execute(t, device, nil, content.ToolCall{
		Name:      "launch_on_roku",
		Arguments: map[string]any{"channel_id": "2285", "content_id": "abc"},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Equal(t, true, decoded["success"])
}

func TestUnknownTool(t *testing.T) {
	result := execute(t, roku.NewWithBaseURL("http://example.com"), nil, content.ToolCall{Name: "reboot_tv"})
	assert.Equal(t, "Unknown tool: reboot_tv", result)
}
