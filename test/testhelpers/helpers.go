// Package testhelpers provides common utilities for exercising the chat
// server end to end.
//
// It starts a server backed by an in-memory store, dials WebSocket sessions
// with a user identity, and reads or asserts on the frames those sessions
// receive, so the package and integration tests share one fixture.
package testhelpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/threadchat/internal/server"
	"github.com/Tyrowin/threadchat/internal/store"
)

// TestOrigin is the Origin header every helper dials with; NewEnv allows it.
const TestOrigin = "http://localhost:8080"

// DefaultWait bounds every read and registration wait in the helpers.
const DefaultWait = 2 * time.Second

// Env is a running server plus the store behind it.
type Env struct {
	Server *server.Server
	Store  *store.Store
	HTTP   *httptest.Server
	WSURL  string
	// Conversation is "Chat" in topic "General".
	Conversation store.Conversation
	// Users holds the ids of the users created by NewEnv, in order.
	Users []int64
}

// NewEnv starts a server on an in-memory store holding one user per name
// (ids 1..n in order) and a single conversation. Everything is torn down
// with t.Cleanup. The optional configure hook adjusts the server Config.
func NewEnv(t *testing.T, names []string, configure func(*server.Config)) *Env {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Path: store.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	users := make([]int64, 0, len(names))
	for _, name := range names {
		u, err := st.CreateUser(ctx, name)
		require.NoError(t, err)
		users = append(users, u.ID)
	}
	topic, err := st.CreateTopic(ctx, "General", "")
	require.NoError(t, err)
	conv, err := st.CreateConversation(ctx, topic.ID, "Chat")
	require.NoError(t, err)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.RateLimit.Burst = 100
	if configure != nil {
		configure(cfg)
	}
	srv := server.New(*cfg, st, nil)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(DefaultWait)
	})

	return &Env{
		Server:       srv,
		Store:        st,
		HTTP:         ts,
		WSURL:        "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		Conversation: conv,
		Users:        users,
	}
}

// Dial connects as userID via the X-User header and waits until the hub has
// registered the session.
func (e *Env) Dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	conn := e.DialRaw(t, http.Header{server.UserHeader: {strconv.FormatInt(userID, 10)}}, "")
	e.WaitRegistered(t, userID)
	return conn
}

// DialRaw connects with the given headers and query string without waiting
// for registration. The handshake itself must succeed.
func (e *Env) DialRaw(t *testing.T, header http.Header, query string) *websocket.Conn {
	t.Helper()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Origin", TestOrigin)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(e.WSURL+query, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// WaitRegistered blocks until userID has a live session.
func (e *Env) WaitRegistered(t *testing.T, userID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := e.Server.Hub().Lookup(userID)
		return ok
	}, DefaultWait, 5*time.Millisecond)
}

// WaitUnregistered blocks until userID has no live session.
func (e *Env) WaitUnregistered(t *testing.T, userID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := e.Server.Hub().Lookup(userID)
		return !ok
	}, DefaultWait, 5*time.Millisecond)
}

// Get issues a GET against the test server.
func (e *Env) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	return MakeRequest(t, http.MethodGet, e.HTTP.URL+path)
}

// Send writes one inbound chat message.
func Send(t *testing.T, conn *websocket.Conn, conversationID int64, message string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(server.InboundMessage{ConversationID: conversationID, Message: message}))
}

// Read returns the next frame, failing the test after DefaultWait.
func Read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultWait)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

// ReadFirst asserts that the next frame on conn contains want. Called after
// the action that produces want, it also proves that nothing was delivered to
// conn before that action.
func ReadFirst(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	got := Read(t, conn)
	assert.Contains(t, got, want, "first frame after silence")
}

// ExpectSilence fails if a frame arrives within wait. The read deadline it
// waits on leaves conn unusable, so it must be the last read on conn.
func ExpectSilence(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("unexpected message %q", data)
	}
}

// ExpectClose reads until the peer's close frame and checks its code.
func ExpectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultWait)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, websocket.IsCloseError(err, code), "expected close code %d, got %v", code, err)
		return
	}
}

// CloseWebSocket sends a normal close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request with a 5-second timeout.
// The response body is closed with t.Cleanup.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "status code")
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	assert.Equal(t, expected, resp.Header.Get("Content-Type"), "content type")
}
