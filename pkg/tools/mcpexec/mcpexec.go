// Package mcpexec executes tool calls by delegating them to a remote MCP
// server using the official MCP Go SDK.
package mcpexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cueso/cueso/pkg/chats/content"
	"github.com/cueso/cueso/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Executor communicates with an MCP server and executes tool calls against it.
type Executor struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// New spawns an MCP server process and returns a connected executor.
// The SDK handles initialization automatically during Connect.
func New(ctx context.Context, command string, args ...string) (*Executor, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command is caller-provided by design
	}

	return newFromTransport(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*Executor, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return newFromTransport(ctx, transport)
}

// newFromTransport creates an Executor using the given transport. Used by New
// and useful for testing with InMemoryTransport.
func newFromTransport(ctx context.Context, transport mcp.Transport) (*Executor, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "cueso",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpexec: connect: %w", err)
	}

	return &Executor{client: client, session: session}, nil
}

// Execute calls the named tool on the server. A tool-level error from the
// server is returned as a non-nil error so the session records a failed
// result for the call.
func (e *Executor) Execute(ctx context.Context, call content.ToolCall) (string, error) {
	result, err := e.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: call.Arguments,
	})
	if err != nil {
		return "", fmt.Errorf("mcpexec: call tool %s: %w", call.Name, err)
	}

	text := extractText(result)

	if result.IsError {
		return text, fmt.Errorf("mcpexec: tool %s failed: %s", call.Name, text)
	}

	return text, nil
}

// ListTools fetches the tools advertised by the server so they can be exposed
// to the model.
func (e *Executor) ListTools(ctx context.Context) ([]toolbox.Tool, error) {
	result, err := e.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpexec: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(result.Tools))
	for _, sdkTool := range result.Tools {
		t, err := fromSDKTool(sdkTool)
		if err != nil {
			return nil, fmt.Errorf("mcpexec: convert tool %q: %w", sdkTool.Name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// Close terminates the session and releases resources. The SDK handles
// subprocess lifecycle on close, escalating through SIGTERM/SIGKILL.
func (e *Executor) Close() error {
	return e.session.Close()
}

func fromSDKTool(sdkTool *mcp.Tool) (toolbox.Tool, error) {
	schemaBytes, err := json.Marshal(sdkTool.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	return toolbox.Tool{
		Name:        sdkTool.Name,
		Description: sdkTool.Description,
		InputSchema: schemaBytes,
	}, nil
}

// extractText joins all TextContent items from a CallToolResult with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
