package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/cueso/cueso/pkg/searchplay"
)

// ANSI escape sequences for terminal formatting.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiRed    = "\033[31m"
)

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output using
// glamour. Falls back to plain text if the renderer is unavailable.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// renderer prints the events of one chat turn. Assistant text is buffered and
// rendered as markdown when a message completes; tool activity is shown as it
// happens. find_content results are both rendered and retained so the caller
// can offer the service picker after a paused turn.
type renderer struct {
	announced   map[string]bool
	lastMatches []searchplay.Match
}

func newRenderer() *renderer {
	return &renderer{announced: make(map[string]bool)}
}

func (r *renderer) printEvent(ev wsEvent) {
	switch ev.Type {
	case "session_created":
		fmt.Printf("%s[session %s]%s\n", ansiDim, ev.SessionID, ansiReset)

	case "tool_call_delta":
		name := ev.ToolCall.Name
		if name != "" && !r.announced[name] {
			r.announced[name] = true
			fmt.Printf("  %s[calling %s]%s\n", ansiYellow, name, ansiReset)
		}

	case "tool_result":
		r.printToolResult(ev)

	case "message_complete":
		r.announced = make(map[string]bool)
		if ev.Content != "" {
			fmt.Printf("\n%scueso>%s %s\n", ansiCyan+ansiBold, ansiReset, renderMarkdown(ev.Content))
		}

	case "error":
		fmt.Printf("%serror: %s%s\n", ansiRed, ev.Message, ansiReset)
	}
}

func (r *renderer) printToolResult(ev wsEvent) {
	if ev.IsError {
		fmt.Printf("  %s[%s failed] %s%s\n", ansiRed, ev.ToolName, truncate(ev.Result, 200), ansiReset)
		return
	}

	if ev.ToolName == "find_content" {
		r.lastMatches = r.renderFindContent(ev.Result)
		return
	}

	fmt.Printf("  %s[%s done]%s\n", ansiGreen, ev.ToolName, ansiReset)
}

// renderFindContent prints a find_content result as a numbered service list
// and returns the decoded matches.
func (r *renderer) renderFindContent(resultText string) []searchplay.Match {
	var result searchplay.Result
	if err := json.Unmarshal([]byte(resultText), &result); err != nil {
		fmt.Printf("  %s[find_content done]%s\n", ansiGreen, ansiReset)
		return nil
	}

	if len(result.Matches) == 0 {
		fmt.Printf("  %s%s%s\n", ansiYellow, result.Message, ansiReset)
		return nil
	}

	fmt.Printf("  %sFound on %d service(s):%s\n", ansiGreen, len(result.Matches), ansiReset)
	for i, m := range result.Matches {
		fmt.Printf("    %d. %s%s%s %s(channel=%d content=%s type=%s)%s\n",
			i+1, ansiBold, m.ServiceName, ansiReset,
			ansiDim, m.ChannelID, m.ContentID, m.MediaType, ansiReset)
	}

	return result.Matches
}

// truncate returns s shortened to at most n runes, with "..." appended if
// truncated. Newlines are replaced with spaces for single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
