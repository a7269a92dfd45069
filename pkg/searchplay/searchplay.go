// Package searchplay implements the content search pipeline: web search with
// site filters, URL-to-service matching, and the launch handoff.
package searchplay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cueso/cueso/pkg/streaming"
	"github.com/cueso/cueso/pkg/websearch"
)

// Searcher is the subset of the web search client the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts websearch.Options) ([]websearch.Result, error)
}

// Query describes the content to find.
type Query struct {
	Title        string
	Season       int
	Episode      int
	EpisodeTitle string

	// MediaType overrides each match's default media type when set.
	MediaType string

	// Services restricts and orders the searched services. Nil means the
	// default priority list.
	Services []streaming.Service
}

// Match is a single streaming service match with Roku launch details.
type Match struct {
	ServiceName string `json:"service_name"`
	ChannelID   int    `json:"channel_id"`
	ContentID   string `json:"content_id"`
	SourceURL   string `json:"source_url"`
	Title       string `json:"title"`
	MediaType   string `json:"media_type"`
}

// Result is the outcome of searching for content across streaming services.
type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// ToToolResult serializes the result to a JSON string suitable for returning
// as an LLM tool result.
func (r Result) ToToolResult() string {
	if r.Matches == nil {
		r.Matches = []Match{}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success": false, "message": "encode result: %v"}`, err)
	}
	return string(data)
}

// BuildQuery builds the search query text from structured content fields.
func BuildQuery(q Query) string {
	parts := []string{q.Title}
	if q.Season > 0 {
		parts = append(parts, fmt.Sprintf("Season %d", q.Season))
	}
	if q.Episode > 0 {
		parts = append(parts, fmt.Sprintf("Episode %d", q.Episode))
	}
	if q.EpisodeTitle != "" {
		parts = append(parts, q.EpisodeTitle)
	}
	return strings.Join(parts, " ")
}

// SearchContent searches streaming services for content and returns every
// match, one per service, in priority order. A service's first matching URL
// wins; later URLs for the same service are skipped.
func SearchContent(ctx context.Context, searcher Searcher, q Query) Result {
	services := q.Services
	if services == nil {
		services = streaming.ActiveServices(nil)
	}

	baseQuery := BuildQuery(q)
	fullQuery := baseQuery + " " + streaming.SiteFilters(services)

	slog.Info("searching for content", "query", fullQuery)
	results, err := searcher.Search(ctx, fullQuery, websearch.Options{Count: 10})
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Search failed: %v", err), Query: baseQuery}
	}

	if len(results) == 0 {
		return Result{
			Success: false,
			Message: "No search results found for: " + baseQuery,
			Query:   baseQuery,
		}
	}

	var matches []Match
	seen := make(map[string]bool)

	for _, r := range results {
		svc, contentID, ok := streaming.MatchURL(r.URL, services)
		if !ok || seen[svc.Name] {
			continue
		}
		seen[svc.Name] = true

		mediaType := q.MediaType
		if mediaType == "" {
			mediaType = svc.DefaultMediaType
		}

		matches = append(matches, Match{
			ServiceName: svc.Name,
			ChannelID:   svc.RokuChannelID,
			ContentID:   contentID,
			SourceURL:   r.URL,
			Title:       r.Title,
			MediaType:   mediaType,
		})
		slog.Info("matched streaming url", "service", svc.Name, "content_id", contentID, "url", r.URL)
	}

	if len(matches) == 0 {
		urls := make([]string, 0, 5)
		for _, r := range results[:min(5, len(results))] {
			urls = append(urls, r.URL)
		}
		return Result{
			Success: false,
			Message: fmt.Sprintf("Found %d results but no streaming service URLs matched. Top URLs: %s", len(results), strings.Join(urls, ", ")),
			Query:   baseQuery,
		}
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.ServiceName
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Found content on %d service(s): %s", len(matches), strings.Join(names, ", ")),
		Query:   baseQuery,
		Matches: matches,
	}
}
