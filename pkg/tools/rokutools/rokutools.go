// Package rokutools builds the tool catalog for driving a Roku device
// directly over ECP, with web search and content discovery handlers.
package rokutools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cueso/cueso/pkg/roku"
	"github.com/cueso/cueso/pkg/searchplay"
	"github.com/cueso/cueso/pkg/streaming"
	"github.com/cueso/cueso/pkg/tools/toolbox"
	"github.com/cueso/cueso/pkg/websearch"
)

// New builds the toolbox backed by the given device. searcher may be nil when
// web search is not configured; the search-backed tools then report that
// instead of failing. services orders the streaming services used by
// find_content.
func New(device *roku.Client, searcher searchplay.Searcher, services []streaming.Service) *toolbox.ToolBox {
	h := &handlers{device: device, searcher: searcher, services: services}

	tb := toolbox.New()
	tb.Register(
		toolbox.Tool{
			Name:        "search_roku",
			Description: "Search for content on Roku channels",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query"},
					"channel": {"type": "string", "description": "Channel to search"}
				},
				"required": ["query"]
			}`),
			Handler: h.searchRoku,
		},
		toolbox.Tool{
			Name:        "get_roku_status",
			Description: "Get current status of Roku device",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"required": []
			}`),
			Handler: h.getRokuStatus,
		},
		toolbox.Tool{
			Name: "web_search",
			Description: "Search the web using Brave Search. Use this to find information about shows, " +
				"movies, episodes, or any general knowledge. You can search IMDB, TVDB, Wikipedia, " +
				"or any other site to identify content, confirm titles, and look up season/episode " +
				"numbers. Returns titles, URLs, and descriptions.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "The search query"},
					"count": {"type": "integer", "description": "Number of results to return (1-10, default 5)"}
				},
				"required": ["query"]
			}`),
			Handler: h.webSearch,
		},
		toolbox.Tool{
			Name: "find_content",
			Description: "Search streaming services (Netflix, Hulu, Disney+, Max, Apple TV+, Amazon Prime) " +
				"for content and return all available matches with channel IDs and content IDs. " +
				"Use this when you know the exact content to find. The results include every " +
				"streaming service where the content is available. After calling this, use " +
				"launch_on_roku to play the best match (or ask the user which service they prefer).",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"title": {"type": "string", "description": "The show or movie title (e.g. 'Rick and Morty')"},
					"season": {"type": "integer", "description": "Season number (for TV episodes)"},
					"episode": {"type": "integer", "description": "Episode number (for TV episodes)"},
					"episode_title": {"type": "string", "description": "Episode title for better search accuracy"},
					"media_type": {"type": "string", "description": "The type of media", "enum": ["movie", "series", "episode", "season"]}
				},
				"required": ["title"]
			}`),
			Handler: h.findContent,
		},
		toolbox.Tool{
			Name: "launch_on_roku",
			Description: "Launch content on the Roku device. Call this after find_content with one of the " +
				"returned matches. Provide the channel_id, content_id, and media_type from the " +
				"find_content results.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"channel_id": {"type": "integer", "description": "Roku channel ID from find_content results"},
					"content_id": {"type": "string", "description": "Content ID from find_content results"},
					"media_type": {"type": "string", "description": "Media type from find_content results", "enum": ["movie", "series", "episode", "season"]}
				},
				"required": ["channel_id", "content_id"]
			}`),
			Handler: h.launchOnRoku,
		},
	)

	return tb
}

type handlers struct {
	device   *roku.Client
	searcher searchplay.Searcher
	services []streaming.Service
}

func (h *handlers) searchRoku(_ context.Context, _ map[string]any) (string, error) {
	return "", errors.New("search_roku is not yet implemented against the Roku ECP API")
}

func (h *handlers) getRokuStatus(ctx context.Context, _ map[string]any) (string, error) {
	info, err := h.device.DeviceInfo(ctx)
	if err != nil {
		return "", err
	}

	model := info.Model
	if model == "" {
		model = "Unknown"
	}
	return "Roku device is online. Model: " + model, nil
}

func (h *handlers) webSearch(ctx context.Context, args map[string]any) (string, error) {
	if h.searcher == nil {
		return "Error: Brave Search is not configured. Set BRAVE_API_KEY.", nil
	}

	query := stringArg(args, "query")
	count := intArg(args, "count", 5)

	results, err := h.searcher.Search(ctx, query, websearch.Options{Count: count})
	if err != nil {
		return fmt.Sprintf("Search error: %v", err), nil
	}
	if len(results) == 0 {
		return "No results found for: " + query, nil
	}

	formatted := make([]string, len(results))
	for i, r := range results {
		formatted[i] = fmt.Sprintf("%d. %s\n   URL: %s\n   %s", i+1, r.Title, r.URL, r.Description)
	}
	return strings.Join(formatted, "\n\n"), nil
}

func (h *handlers) findContent(ctx context.Context, args map[string]any) (string, error) {
	if h.searcher == nil {
		return searchplay.Result{
			Success: false,
			Message: "Brave Search is not configured.",
		}.ToToolResult(), nil
	}

	result := searchplay.SearchContent(ctx, h.searcher, searchplay.Query{
		Title:        stringArg(args, "title"),
		Season:       intArg(args, "season", 0),
		Episode:      intArg(args, "episode", 0),
		EpisodeTitle: stringArg(args, "episode_title"),
		MediaType:    stringArg(args, "media_type"),
		Services:     h.services,
	})
	return result.ToToolResult(), nil
}

type launchReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *handlers) launchOnRoku(ctx context.Context, args map[string]any) (string, error) {
	channelID := intArg(args, "channel_id", 0)
	contentID := stringArg(args, "content_id")
	mediaType := stringArg(args, "media_type")
	if mediaType == "" {
		mediaType = "movie"
	}

	if channelID == 0 || contentID == "" {
		return marshalReply(launchReply{Success: false, Message: "channel_id and content_id are required."}), nil
	}

	result := h.device.Launch(ctx, channelID, contentID, mediaType)
	return marshalReply(launchReply{Success: result.Success, Message: result.Message}), nil
}

func marshalReply(r launchReply) string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success": false, "message": "encode result failed"}`
	}
	return string(data)
}

// stringArg reads a string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an integer argument. JSON-decoded numbers arrive as float64;
// models occasionally send numeric strings, so those parse too.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
