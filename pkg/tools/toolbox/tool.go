package toolbox

import (
	"context"
	"encoding/json"
)

// Handler executes a tool with the already-parsed arguments and returns a
// text result. Returned errors are absorbed at the dispatch boundary and
// converted into textual error results; they never reach the session loop.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named capability advertised to the LLM: a name, a human
// description, and a JSON Schema for its input. Handler may be nil for
// declaration-only catalogs.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}
