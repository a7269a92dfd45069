// Package toolbox holds the tool catalog and the direct dispatcher that maps
// a tool call by name to a local handler.
package toolbox

import (
	"context"
	"fmt"

	"github.com/cueso/cueso/pkg/chats/content"
)

// ToolBox is an ordered collection of tools. Registration order is preserved
// so the catalog advertised to the provider is deterministic.
type ToolBox struct {
	order []string
	tools map[string]Tool
}

// New creates a ToolBox ready for use.
func New() *ToolBox {
	return &ToolBox{tools: make(map[string]Tool)}
}

// Register adds one or more tools. A tool with an already-registered name
// replaces the previous one, keeping its original catalog position.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		if _, exists := tb.tools[t.Name]; !exists {
			tb.order = append(tb.order, t.Name)
		}
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name and whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Tools returns all registered tools in registration order.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.order))
	for _, name := range tb.order {
		result = append(result, tb.tools[name])
	}
	return result
}

// Execute dispatches a tool call to its handler and returns the textual
// result handed back to the LLM. An unknown tool name and a handler error or
// panic all degrade to descriptive text; Execute itself never fails, so a
// misbehaving tool cannot crash the conversation.
func (tb *ToolBox) Execute(ctx context.Context, call content.ToolCall) (result string, err error) {
	t, ok := tb.tools[call.Name]
	if !ok || t.Handler == nil {
		return fmt.Sprintf("Unknown tool: %s", call.Name), nil
	}

	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("Error executing tool %s: %v", call.Name, r)
			err = nil
		}
	}()

	out, herr := t.Handler(ctx, call.Arguments)
	if herr != nil {
		return fmt.Sprintf("Error executing tool %s: %v", call.Name, herr), nil
	}

	return out, nil
}
