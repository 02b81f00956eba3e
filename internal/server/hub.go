// Package server tracks live sessions by user identity and fans rendered
// messages out to all of them via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Hub is the connection registry: at most one live Client per user id.
// Registering a second client for the same user closes the first one.
// All map mutation happens under mu; Broadcast iterates over a snapshot.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*Client
	closed  bool
	wg      sync.WaitGroup
	log     *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		clients: make(map[int64]*Client),
		log:     log,
	}
}

// Register makes client the live session for its user and reports whether
// it was accepted. A previously registered client for the same user is closed
// so its pumps exit; its own later Unregister is then a no-op. Registering on
// a shut down hub closes the client and returns false.
func (h *Hub) Register(client *Client) bool {
	return h.register(client, false)
}

// register adds client under mu. With pumps set it also reserves the pump
// goroutines in wg before releasing mu, so Shutdown either sees the client
// and waits for its pumps or the client is refused.
func (h *Hub) register(client *Client, pumps bool) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return false
	}
	previous := h.clients[client.userID]
	h.clients[client.userID] = client
	if pumps {
		h.wg.Add(2)
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	if previous != nil && previous != client {
		previous.close()
		h.log.Info("session superseded", "user", client.userID, "old", previous.id, "new", client.id)
	}
	h.log.Info("client registered", "user", client.userID, "session", client.id, "addr", client.addr, "clients", clientCount)
	return true
}

// Unregister removes client's user from the hub only if the entry still refers
// to client, so a stale session cannot evict a newer one after a fast
// reconnect. The client's outbound channel is closed either way.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	removed := false
	if current, ok := h.clients[client.userID]; ok && current == client {
		delete(h.clients, client.userID)
		removed = true
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	client.close()
	if removed {
		h.log.Info("client unregistered", "user", client.userID, "session", client.id, "clients", clientCount)
	}
}

// Broadcast queues payload for every registered client, the author's own
// session included, and returns how many accepted it. A client that cannot
// accept the payload is treated as dead: the failure is logged and the
// client is unregistered, without affecting delivery to the others.
func (h *Hub) Broadcast(payload []byte) int {
	clients := h.getClientSnapshot()

	delivered := 0
	var failed []*Client
	for _, client := range clients {
		if err := client.trySend(payload); err != nil {
			h.log.Warn("broadcast delivery failed", "user", client.userID, "session", client.id, "err", err)
			failed = append(failed, client)
			continue
		}
		delivered++
	}

	for _, client := range failed {
		h.Unregister(client)
	}

	h.log.Debug("broadcast", "recipients", len(clients), "delivered", delivered)
	return delivered
}

// Lookup returns the live client for userID, if any.
func (h *Hub) Lookup(userID int64) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[userID]
	return client, ok
}

// ClientCount returns the number of registered users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Values(h.clients)
}

// serve registers client and starts its read and write pumps, tracked for
// Shutdown. It returns false without starting anything when the hub has shut
// down.
func (h *Hub) serve(client *Client) bool {
	if !h.register(client, true) {
		return false
	}
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
	return true
}

// Shutdown closes every registered client and waits for all pump goroutines
// to finish, or returns context.DeadlineExceeded after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("shutting down hub")

	h.mu.Lock()
	h.closed = true
	clients := lo.Values(h.clients)
	clear(h.clients)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
	h.log.Info("closed client sessions", "count", len(clients))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}

var errSendBufferFull = errors.New("send buffer full")
