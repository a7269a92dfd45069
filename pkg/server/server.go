// Package server exposes the HTTP surface: the websocket chat endpoint,
// session administration routes, and a direct Roku launch proxy.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/cueso/cueso/pkg/providers/provider"
	"github.com/cueso/cueso/pkg/roku"
	"github.com/cueso/cueso/pkg/session"
	"github.com/cueso/cueso/pkg/tools/toolbox"
)

// SystemPrompt steers the assistant toward the tool-driven playback flow.
const SystemPrompt = "You are a helpful assistant that controls Roku devices. " +
	"Use the available tools to help users find and play content.\n\n" +
	"When a user asks to play content:\n" +
	"1. If you're unsure about the exact title, season, or episode, use web_search " +
	"to research it first.\n" +
	"2. Once you know the exact content, call find_content to search streaming services.\n" +
	"3. After find_content returns, present the available streaming services to the user " +
	"and let them choose where to play. Do NOT automatically call launch_on_roku.\n" +
	"4. When the user tells you which service to use, call launch_on_roku with that " +
	"service's channel_id, content_id, and media_type.\n\n" +
	"For general questions or when you need information, use web_search.\n" +
	"For direct Roku operations, use search_roku or get_roku_status."

// DefaultSessionConfig returns the conversation settings applied to sessions
// created by the websocket endpoint. find_content pauses the loop so the user
// picks the streaming service before anything launches.
func DefaultSessionConfig(tools []toolbox.Tool) session.Config {
	return session.Config{
		SystemPrompt:  SystemPrompt,
		Tools:         tools,
		MaxTokens:     2048,
		MaxIterations: 10,
		Temperature:   0.7,
		Stream:        true,
		PauseAfter:    map[string]bool{"find_content": true},
	}
}

// Server handles chat websocket connections and the admin API.
type Server struct {
	provider      provider.Provider
	exec          session.Executor
	store         *session.Store
	device        *roku.Client
	sessionConfig session.Config
	log           *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore replaces the default session store.
func WithStore(store *session.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithRokuClient sets the device used by the /roku/launch proxy.
func WithRokuClient(device *roku.Client) Option {
	return func(s *Server) { s.device = device }
}

// WithSessionConfig replaces the default per-session conversation settings.
func WithSessionConfig(cfg session.Config) Option {
	return func(s *Server) { s.sessionConfig = cfg }
}

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a Server. exec runs the tool calls requested by the model;
// tools is the catalog advertised to it.
func New(p provider.Provider, exec session.Executor, tools []toolbox.Tool, opts ...Option) *Server {
	s := &Server{
		provider:      p,
		exec:          exec,
		store:         session.NewStore(),
		sessionConfig: DefaultSessionConfig(tools),
		log:           slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Store returns the server's session store.
func (s *Server) Store() *session.Store { return s.store }

// Handler returns the routed HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/ws/chat", s.handleChat)
	mux.HandleFunc("GET /chat/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /chat/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /chat/sessions/{id}/reset", s.handleResetSession)
	mux.HandleFunc("POST /roku/launch", s.handleRokuLaunch)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// chatMessage is the inbound websocket payload.
type chatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// handleChat serves one websocket connection: read a message, find or create
// its session, run the chat turn, and push every event back to the client.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg chatMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			s.log.Info("websocket disconnected", "err", err)
			return
		}

		sessionID := msg.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		sess, ok := s.store.Get(sessionID)
		if !ok {
			sess = s.store.Create(sessionID, s.provider, s.sessionConfig)
			s.log.Info("created session", "session_id", sessionID)
		}

		if err := wsjson.Write(ctx, conn, session.NewSessionCreated(sessionID)); err != nil {
			s.log.Warn("session_created write failed", "err", err)
			return
		}

		emit := func(ev session.Event) {
			if werr := wsjson.Write(ctx, conn, ev); werr != nil {
				s.log.Debug("event write failed", "type", ev.EventType(), "err", werr)
			}
		}

		// The turn itself runs detached from the connection context: a client
		// drop mid-turn must not leave the session with a half-recorded tool
		// batch.
		if _, err := sess.Chat(context.WithoutCancel(ctx), msg.Message, s.exec, emit); err != nil {
			s.log.Error("chat turn failed", "session_id", sessionID, "err", err)
			if werr := wsjson.Write(ctx, conn, session.NewErrorEvent(err.Error())); werr != nil {
				return
			}
		}
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	ids := s.store.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": ids,
		"count":    len(ids),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.store.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", id),
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, ok := s.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"error": fmt.Sprintf("Session %s not found", id),
		})
		return
	}

	sess.Reset()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s reset", id),
	})
}

// handleRokuLaunch proxies a launch request straight to the device, bypassing
// the LLM loop. Used by frontends that already hold find_content results.
func (s *Server) handleRokuLaunch(w http.ResponseWriter, r *http.Request) {
	if s.device == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no Roku device configured",
		})
		return
	}

	q := r.URL.Query()

	channelID, err := strconv.Atoi(q.Get("channel_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "channel_id must be an integer",
		})
		return
	}

	contentID := q.Get("content_id")
	if contentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "content_id is required",
		})
		return
	}

	mediaType := q.Get("media_type")
	if mediaType == "" {
		mediaType = "movie"
	}

	result := s.device.Launch(r.Context(), channelID, contentID, mediaType)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Success,
		"message": result.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}
