package server

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID int64) *Client {
	return NewClient(nil, hub, nil, userID, fmt.Sprintf("127.0.0.1:%d", 10000+userID), Config{SendBufferSize: 4})
}

// receive reads one payload from the client's queue or fails the test.
func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected payload %q", msg)
		}
	default:
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	require.NotNil(t, hub)
	assert.Zero(t, hub.ClientCount())
	assert.Zero(t, hub.Broadcast([]byte("nobody listening")))
}

func TestNewClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, 1)

	require.NotNil(t, client)
	assert.NotEmpty(t, client.ID())
	assert.Equal(t, int64(1), client.UserID())
	assert.NotEqual(t, client.ID(), newTestClient(hub, 1).ID())
	expectNothing(t, client)
}

func TestHub_BroadcastReachesEveryClientIncludingAuthor(t *testing.T) {
	hub := NewHub(nil)
	alice := newTestClient(hub, 1)
	bob := newTestClient(hub, 2)
	hub.Register(alice)
	hub.Register(bob)

	delivered := hub.Broadcast([]byte("hello"))

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []byte("hello"), receive(t, alice))
	assert.Equal(t, []byte("hello"), receive(t, bob))
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	alice := newTestClient(hub, 1)
	bob := newTestClient(hub, 2)
	hub.Register(alice)
	hub.Register(bob)

	hub.Unregister(alice)
	hub.Broadcast([]byte("after"))

	_, ok := hub.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, []byte("after"), receive(t, bob))

	_, open := <-alice.send
	assert.False(t, open, "unregistered client's channel is closed")
	select {
	case <-alice.Done():
	default:
		t.Fatal("unregistered client's context not cancelled")
	}
}

func TestHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub(nil)
	alice := newTestClient(hub, 1)
	hub.Register(alice)

	hub.Unregister(newTestClient(hub, 3))

	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_ReRegisterReplacesAndClosesPrevious(t *testing.T) {
	hub := NewHub(nil)
	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1)
	hub.Register(first)
	hub.Register(second)

	assert.Equal(t, 1, hub.ClientCount())
	current, ok := hub.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, current)

	_, open := <-first.send
	assert.False(t, open, "superseded client is closed")

	hub.Broadcast([]byte("to newest"))
	assert.Equal(t, []byte("to newest"), receive(t, second))
}

func TestHub_StaleUnregisterKeepsNewerSession(t *testing.T) {
	hub := NewHub(nil)
	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1)
	hub.Register(first)
	hub.Register(second)

	// The superseded session's cleanup runs after the reconnect.
	hub.Unregister(first)

	current, ok := hub.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, current)
	hub.Broadcast([]byte("still here"))
	assert.Equal(t, []byte("still here"), receive(t, second))
}

func TestHub_FailedDeliveryIsIsolated(t *testing.T) {
	hub := NewHub(nil)
	slow := newTestClient(hub, 1)
	fast := newTestClient(hub, 2)
	hub.Register(slow)
	hub.Register(fast)

	// Fill the slow client's buffer without draining it.
	for i := 0; i < cap(slow.send); i++ {
		require.NoError(t, slow.trySend([]byte("filler")))
	}

	delivered := hub.Broadcast([]byte("news"))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []byte("news"), receive(t, fast))
	_, ok := hub.Lookup(1)
	assert.False(t, ok, "dead session is dropped from the hub")
	assert.ErrorIs(t, slow.trySend([]byte("x")), ErrConnectionLost)
}

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := NewHub(nil)
	const users = 20

	var wg sync.WaitGroup
	for i := int64(1); i <= users; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := NewClient(nil, hub, nil, id, "127.0.0.1:0", Config{SendBufferSize: 4 * users})
			hub.Register(c)
			hub.Broadcast([]byte("ping"))
			hub.Register(NewClient(nil, hub, nil, id, "127.0.0.1:0", Config{SendBufferSize: 4 * users}))
			hub.Unregister(c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, users, hub.ClientCount())
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(nil)
	alice := newTestClient(hub, 1)
	hub.Register(alice)

	require.NoError(t, hub.Shutdown(time.Second))

	assert.Zero(t, hub.ClientCount())
	_, open := <-alice.send
	assert.False(t, open)

	late := newTestClient(hub, 2)
	assert.False(t, hub.Register(late))
	assert.Zero(t, hub.ClientCount(), "registration after shutdown is refused")
	_, open = <-late.send
	assert.False(t, open)
}

func TestHub_ServeAfterShutdownStartsNothing(t *testing.T) {
	hub := NewHub(nil)
	require.NoError(t, hub.Shutdown(time.Second))

	// A nil conn would make any started pump panic.
	late := newTestClient(hub, 1)
	assert.False(t, hub.serve(late))
	assert.Zero(t, hub.ClientCount())
	select {
	case <-late.Done():
	default:
		t.Fatal("refused client not closed")
	}
	require.NoError(t, hub.Shutdown(time.Second), "no pumps were reserved")
}

func TestHub_RegisterReportsAcceptance(t *testing.T) {
	hub := NewHub(nil)
	assert.True(t, hub.Register(newTestClient(hub, 1)))
	assert.True(t, hub.Register(newTestClient(hub, 1)), "a superseding session is accepted")
	assert.Equal(t, 1, hub.ClientCount())
}

// blockingSubmitter holds Submit until release is closed and records the
// context error seen at that point.
type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingSubmitter) Submit(ctx context.Context, _, _ int64, _ string) error {
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	return ctx.Err()
}

func TestClient_SupersedingSessionDoesNotCancelInFlightSubmit(t *testing.T) {
	hub := NewHub(nil)
	sub := &blockingSubmitter{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	old := NewClient(nil, hub, sub, 1, "127.0.0.1:1", Config{SendBufferSize: 4})
	hub.Register(old)

	done := make(chan struct{})
	go func() {
		defer close(done)
		old.processMessage([]byte(`{"conversation_id":1,"message":"sent before reconnect"}`))
	}()
	<-sub.started

	hub.Register(newTestClient(hub, 1))
	<-old.Done()
	close(sub.release)

	select {
	case err := <-sub.ctxErr:
		assert.NoError(t, err, "submit context survives the session closing")
	case <-time.After(time.Second):
		t.Fatal("submit never finished")
	}
	<-done
}
