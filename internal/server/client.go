// Package server manages individual WebSocket sessions, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// submitTimeout bounds one persist-then-broadcast run.
	submitTimeout = 10 * time.Second
)

// Submitter accepts a message posted by a session.
type Submitter interface {
	Submit(ctx context.Context, conversationID, authorID int64, content string) error
}

// Client is one user's live session: a WebSocket connection, its outbound
// queue, and the context that is cancelled when the session closes.
type Client struct {
	id        string
	userID    int64
	addr      string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	submitter Submitter
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a session for userID on conn. conn may be nil for a
// client that is only used as a registry entry.
func NewClient(conn *websocket.Conn, hub *Hub, submitter Submitter, userID int64, addr string, cfg Config) *Client {
	cfg = cfg.Sanitize()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Client{
		id:             id,
		userID:         userID,
		addr:           addr,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		submitter:      submitter,
		log:            hub.log.With("session", id, "user", userID),
		ctx:            ctx,
		cancel:         cancel,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the session's unique id.
func (c *Client) ID() string { return c.id }

// UserID returns the id of the user owning the session.
func (c *Client) UserID() int64 { return c.userID }

// Done is closed once the session has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// trySend queues message without blocking. It fails with ErrConnectionLost
// when the session is closed or its buffer is full.
func (c *Client) trySend(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: session closed", ErrConnectionLost)
	}
	select {
	case c.send <- message:
		return nil
	default:
		return fmt.Errorf("%w: %w", ErrConnectionLost, errSendBufferFull)
	}
}

// close ends the session: the outbound channel is closed, which makes the
// write pump send a close frame, and the session context is cancelled.
// close is idempotent.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	c.cancel()
}

// notify sends a notice to this client only.
func (c *Client) notify(text string) {
	if err := c.trySend(RenderNotice(text)); err != nil {
		c.log.Warn("could not deliver notice", "err", err)
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError logs the read failure at a level that matches its cause.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("client disconnected", "addr", c.addr)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info("client connection closed", "addr", c.addr, "err", err)
	default:
		c.log.Warn("websocket read error", "addr", c.addr, "err", err)
	}
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("rate limit exceeded, discarding message", "burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage decodes one inbound payload and hands it to the intake
// pipeline. Failures are reported to this client only and never end the
// session.
func (c *Client) processMessage(raw []byte) {
	req, err := decodeInbound(raw)
	if err != nil {
		c.log.Info("invalid inbound payload", "err", err)
		c.notify(noticeFor(err))
		return
	}

	// The message was already read off the socket, so a superseding reconnect
	// must not cancel its delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), submitTimeout)
	defer cancel()
	if err := c.submitter.Submit(ctx, req.ConversationID, c.userID, req.Message); err != nil {
		c.log.Info("message rejected", "conversation", req.ConversationID, "err", err)
		c.notify(noticeFor(err))
	}
}

// readPump is the Active state: it reads until the connection fails or the
// session is closed, and always unregisters on the way out.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.checkRateLimit() {
			c.notify("Slow down: too many messages.")
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing connection", "err", err)
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", "err", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing message", "err", err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error writing close message", "err", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping message", "err", err)
		return false
	}
	return true
}
