// Package server exposes HTTP handlers, including WebSocket upgrades, history
// reads, health checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// UserHeader carries the caller's user id. Browsers cannot set headers on a
// WebSocket handshake, so the "user" query parameter is accepted as well.
const UserHeader = "X-User"

// WebSocketHandler upgrades the request and runs the session state machine.
// Connecting: the claimed user id is resolved against the store; a missing or
// malformed id closes with CloseMissingUser and an unknown one with
// CloseUnknownUser. Active: the client is registered and its pumps started.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	claimed := r.Header.Get(UserHeader)
	if claimed == "" {
		claimed = r.URL.Query().Get("user")
	}
	userID, err := strconv.ParseInt(claimed, 10, 64)
	if err != nil {
		s.log.Warn("missing or invalid user identity", "value", claimed, "addr", r.RemoteAddr)
		s.rejectSession(conn, CloseMissingUser, "missing user identity")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.log.Error("resolve session user", "user", userID, "err", err)
		s.rejectSession(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}
	if user == nil {
		s.log.Warn("user not found", "user", userID)
		s.rejectSession(conn, CloseUnknownUser, "unknown user")
		return
	}

	client := NewClient(conn, s.hub, s.pipeline, user.ID, r.RemoteAddr, s.cfg)
	if !s.hub.serve(client) {
		s.log.Info("refusing session during shutdown", "user", user.ID)
		s.rejectSession(conn, websocket.CloseGoingAway, "server shutting down")
	}
}

// rejectSession closes a connection that never became active.
func (s *Server) rejectSession(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !isExpectedCloseError(err) {
		s.log.Warn("error writing rejection", "code", code, "err", err)
	}
	if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
		s.log.Warn("error closing rejected connection", "err", err)
	}
}

// HistoryHandler returns a page of a conversation's messages as JSON, oldest
// first. Query parameters limit and offset default to the configured page
// size and 0.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	limit, ok := queryInt(r, "limit", s.cfg.HistoryPageSize)
	if !ok {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	conv, err := s.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		s.log.Error("load conversation", "conversation", conversationID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	messages, err := s.store.ListMessages(r.Context(), conversationID, limit, offset)
	if err != nil {
		s.log.Error("list messages", "conversation", conversationID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(messages); err != nil {
		s.log.Warn("error writing history response", "err", err)
	}
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// HealthHandler provides a simple health check endpoint that returns server status.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running! %d live sessions.", s.hub.ClientCount())
}

// TestPageHandler serves an HTML page for exercising the WebSocket endpoint
// by hand.
func (s *Server) TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		s.log.Warn("error writing HTML response", "err", err)
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Chat WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        #notices { color: #721c24; }
        input { padding: 5px; margin-right: 10px; }
    </style>
</head>
<body>
    <h1>Chat WebSocket Test</h1>
    <div>
        User <input type="number" id="user" value="1" style="width: 60px">
        Conversation <input type="number" id="conversation" value="1" style="width: 60px">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." style="width: 300px">
        <button onclick="sendMessage()">Send</button>
    </div>
    <div id="messages"></div>
    <div id="notices"></div>
    <script>
        let ws = null;
        const append = (id, html) => {
            const el = document.getElementById(id);
            const tmp = document.createElement('div');
            tmp.innerHTML = html;
            const frag = tmp.firstElementChild;
            if (frag && frag.id === id) {
                el.insertAdjacentHTML('beforeend', frag.innerHTML);
            } else {
                el.insertAdjacentText('beforeend', html);
            }
            el.scrollTop = el.scrollHeight;
        };
        function toggleConnection() {
            if (ws) { ws.close(); return; }
            const user = document.getElementById('user').value;
            ws = new WebSocket('ws://' + location.host + '/ws?user=' + encodeURIComponent(user));
            ws.onopen = () => document.getElementById('connectButton').textContent = 'Disconnect';
            ws.onmessage = (event) => {
                const target = event.data.includes('id="notices"') ? 'notices' : 'messages';
                append(target, event.data);
            };
            ws.onclose = (event) => {
                append('notices', '<div id="notices"><p>Connection closed (' + event.code + ')</p></div>');
                document.getElementById('connectButton').textContent = 'Connect';
                ws = null;
            };
        }
        function sendMessage() {
            const input = document.getElementById('messageInput');
            if (!ws || ws.readyState !== WebSocket.OPEN) { return; }
            ws.send(JSON.stringify({
                conversation_id: Number(document.getElementById('conversation').value),
                message: input.value
            }));
            input.value = '';
        }
        document.getElementById('messageInput').addEventListener('keypress', (e) => {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
