package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsEvent is the superset of all event payloads the backend emits. The Type
// discriminator says which fields are meaningful.
type wsEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Role      string `json:"role"`

	ToolCall struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		InputJSON string `json:"input_json"`
	} `json:"tool_call"`

	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	IsError    bool   `json:"error"`

	ToolCalls      []string `json:"tool_calls"`
	FinishReason   string   `json:"finish_reason"`
	IterationCount int      `json:"iteration_count"`
	Paused         bool     `json:"paused"`

	Message string `json:"message"`
}

// client talks to a cuesod backend: the chat websocket plus the session admin
// HTTP API.
type client struct {
	baseURL string
	wsURL   string
	httpc   *http.Client
	conn    *websocket.Conn
}

func newClient(baseURL string) *client {
	baseURL = strings.TrimRight(baseURL, "/")

	wsURL := baseURL + "/ws/chat"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss" + wsURL[len("https"):]
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws" + wsURL[len("http"):]
	}

	return &client{
		baseURL: baseURL,
		wsURL:   wsURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Connect opens the chat websocket.
func (c *client) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)

	c.conn = conn
	return nil
}

// Close shuts the websocket down cleanly.
func (c *client) Close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
}

// Send writes one chat message and consumes the event stream until the turn's
// terminal event. Every event is handed to onEvent before Send inspects it.
func (c *client) Send(ctx context.Context, sessionID, text string, onEvent func(wsEvent)) (wsEvent, error) {
	if c.conn == nil {
		return wsEvent{}, errors.New("not connected")
	}

	payload := map[string]string{"message": text, "session_id": sessionID}
	if err := wsjson.Write(ctx, c.conn, payload); err != nil {
		return wsEvent{}, fmt.Errorf("send: %w", err)
	}

	for {
		var ev wsEvent
		if err := wsjson.Read(ctx, c.conn, &ev); err != nil {
			return wsEvent{}, fmt.Errorf("read event: %w", err)
		}

		onEvent(ev)

		switch ev.Type {
		case "final":
			return ev, nil
		case "error":
			return ev, errors.New(ev.Message)
		}
	}
}

// ListSessions fetches the active session ids from the admin API.
func (c *client) ListSessions(ctx context.Context) ([]string, error) {
	var body struct {
		Sessions []string `json:"sessions"`
		Count    int      `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/chat/sessions", &body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

// ResetSession resets a session's conversation and returns the backend's
// status message.
func (c *client) ResetSession(ctx context.Context, id string) (string, error) {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/sessions/"+id+"/reset", &body); err != nil {
		return "", err
	}
	if body.Error != "" {
		return "", errors.New(body.Error)
	}
	return body.Message, nil
}

// DeleteSession removes a session and returns the backend's status message.
func (c *client) DeleteSession(ctx context.Context, id string) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/chat/sessions/"+id, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

func (c *client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
