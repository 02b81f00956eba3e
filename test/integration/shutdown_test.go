package integration

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/threadchat/internal/server"
	"github.com/Tyrowin/threadchat/internal/store"
	"github.com/Tyrowin/threadchat/test/testhelpers"
)

// TestGracefulShutdown verifies an idle hub shuts down at once.
func TestGracefulShutdown(t *testing.T) {
	hub := server.NewHub(nil)
	require.NoError(t, hub.Shutdown(5*time.Second))
	assert.Zero(t, hub.ClientCount())
}

// TestGracefulShutdownWithClients verifies that live sessions receive a close
// frame and the hub empties when the server shuts down.
func TestGracefulShutdownWithClients(t *testing.T) {
	env := testhelpers.NewEnv(t, userNames(5), nil)
	conns := dialAll(t, env)

	require.NoError(t, env.Server.Shutdown(5*time.Second))
	assert.Zero(t, env.Server.Hub().ClientCount())

	for _, conn := range conns {
		testhelpers.ExpectClose(t, conn, websocket.CloseNormalClosure)
	}
}

// TestShutdownRejectsNewSessions verifies that a handshake after shutdown is
// closed instead of registered.
func TestShutdownRejectsNewSessions(t *testing.T) {
	env := testhelpers.NewEnv(t, userNames(1), nil)
	require.NoError(t, env.Server.Shutdown(time.Second))

	conn := env.DialRaw(t, http.Header{server.UserHeader: {"1"}}, "")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testhelpers.DefaultWait)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Zero(t, env.Server.Hub().ClientCount())
}

// TestShutdownRacingHandshakes dials sessions while the hub shuts down. Every
// session either registered before shutdown and was closed by it, or was
// refused; none is left registered afterwards.
func TestShutdownRacingHandshakes(t *testing.T) {
	const sessions = 20
	env := testhelpers.NewEnv(t, userNames(sessions), nil)

	var wg sync.WaitGroup
	conns := make(chan *websocket.Conn, sessions)
	for _, id := range env.Users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			header := http.Header{"Origin": {testhelpers.TestOrigin}, server.UserHeader: {strconv.FormatInt(id, 10)}}
			conn, resp, err := websocket.DefaultDialer.Dial(env.WSURL, header)
			if resp != nil {
				_ = resp.Body.Close()
			}
			if err == nil {
				conns <- conn
			}
		}()
	}

	require.NoError(t, env.Server.Shutdown(5*time.Second))
	wg.Wait()
	close(conns)

	assert.Zero(t, env.Server.Hub().ClientCount())
	for conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(testhelpers.DefaultWait)))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		_ = conn.Close()
	}
	assert.Zero(t, env.Server.Hub().ClientCount(), "no session registers after shutdown")
}

// TestShutdownWithActiveMessages verifies that messages sent before shutdown
// are persisted and delivered, and that shutdown completes while a session is
// still writing.
func TestShutdownWithActiveMessages(t *testing.T) {
	env := testhelpers.NewEnv(t, userNames(2), nil)
	sender := env.Dial(t, 1)
	receiver := env.Dial(t, 2)

	const sent = 10
	for range sent {
		testhelpers.Send(t, sender, env.Conversation.ID, "Test message")
	}
	for range sent {
		assert.Contains(t, testhelpers.Read(t, receiver), "Test message")
	}

	go func() {
		for {
			if sender.WriteJSON(server.InboundMessage{ConversationID: env.Conversation.ID, Message: "late"}) != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	require.NoError(t, env.Server.Shutdown(5*time.Second))

	msgs, err := env.Store.ListMessages(context.Background(), env.Conversation.ID, -1, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(msgs), sent)
}

// TestServeAndShutdownHTTP runs the production HTTP server helpers against a
// real listener and stops them the way the serve command does.
func TestServeAndShutdownHTTP(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Path: store.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.CreateUser(ctx, "alice")
	require.NoError(t, err)

	addr := freeAddr(t)
	cfg := server.NewConfig()
	cfg.Port = addr
	cfg.AllowedOrigins = []string{testhelpers.TestOrigin}
	srv := server.New(*cfg, st, nil)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	log := testLogger()
	errCh := make(chan error, 1)
	go func() { errCh <- server.StartServer(httpServer, log) }()

	wsURL := "ws://" + addr + "/ws"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		header := http.Header{"Origin": {testhelpers.TestOrigin}, server.UserHeader: {"1"}}
		c, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return false
		}
		conn = c
		return true
	}, testhelpers.DefaultWait, 20*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, server.ShutdownServer(httpServer, 5*time.Second, log))
	require.NoError(t, srv.Shutdown(5*time.Second))
	require.NoError(t, <-errCh)

	testhelpers.ExpectClose(t, conn, websocket.CloseNormalClosure)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
