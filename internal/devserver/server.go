// Package devserver is a stand-in for the agent sidecar: it serves the
// session stream endpoint and answers user messages with a canned workflow,
// so the client stack can be exercised end to end without a backend.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/user/sclipsync/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is a lightweight HTTP handler exposing /health and the websocket
// stream at /api/stream/{session_id}. Each session keeps a bounded replay
// queue so a reconnecting client can pick up what it missed.
type Server struct {
	mux    *http.ServeMux
	script []types.Message

	mu     sync.Mutex
	queues map[types.SessionID][]types.Message
}

// queueSize bounds the per-session replay queue.
const queueSize = 200

// New creates a Server. script, if non-empty, is emitted to every client in
// response to each user_message; otherwise DefaultScript is used.
func New(script []types.Message) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		script: script,
		queues: make(map[types.SessionID][]types.Message),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stream/", s.handleStream)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(strings.TrimPrefix(r.URL.Path, "/api/stream/"))
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	slog.Info("client connected", "session_id", string(sessionID))

	send := func(msg types.Message) error {
		if msg.SessionID == "" {
			msg.SessionID = sessionID
		}
		s.enqueue(sessionID, msg)
		return conn.WriteJSON(msg)
	}

	// Snapshot the replay set before the greeting lands in the queue.
	var replay []types.Message
	if last := r.URL.Query().Get("last_message_id"); last != "" {
		replay = s.since(sessionID, types.MessageID(last))
	}

	if err := send(types.Message{
		Type:      types.TypeConnectionEstablished,
		MessageID: types.NewMessageID(),
	}); err != nil {
		return
	}

	// Replay anything the client missed while disconnected.
	for _, msg := range replay {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("client disconnected", "session_id", string(sessionID), "error", err)
			return
		}
		var inbound types.UserMessage
		if err := json.Unmarshal(data, &inbound); err != nil || inbound.Type != types.TypeUserMessage {
			continue
		}
		script := s.script
		if len(script) == 0 {
			script = DefaultScript(inbound.Content)
		}
		for _, msg := range script {
			if err := send(msg); err != nil {
				return
			}
		}
	}
}

// enqueue appends a sent message to the session's replay queue, dropping
// the oldest entries past the bound.
func (s *Server) enqueue(sessionID types.SessionID, msg types.Message) {
	if msg.MessageID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := append(s.queues[sessionID], msg)
	if len(q) > queueSize {
		q = q[len(q)-queueSize:]
	}
	s.queues[sessionID] = q
}

// since returns the queued messages after the given message id, or the
// whole queue when the id is unknown.
func (s *Server) since(sessionID types.SessionID, last types.MessageID) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[sessionID]
	for i := len(q) - 1; i >= 0; i-- {
		if q[i].MessageID == last {
			return append([]types.Message(nil), q[i+1:]...)
		}
	}
	return append([]types.Message(nil), q...)
}
