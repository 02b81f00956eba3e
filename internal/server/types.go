// Package server defines the realtime payload types and utility helpers that
// are shared by the client pumps, the hub and the intake pipeline.
package server

import (
	"errors"
	"fmt"
	"strings"
)

// InboundMessage is the JSON payload a client sends to post a message.
type InboundMessage struct {
	ConversationID int64  `json:"conversation_id" validate:"required,gt=0"`
	Message        string `json:"message"`
}

// Session rejection close codes sent before a session becomes active.
const (
	CloseMissingUser = 4001
	CloseUnknownUser = 4004
)

// Errors reported back to clients or logged by the hub.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConnectionLost = errors.New("connection lost")

	// ErrUnknownConversation and ErrUnknownAuthor narrow ErrNotFound.
	ErrUnknownConversation = fmt.Errorf("conversation %w", ErrNotFound)
	ErrUnknownAuthor       = fmt.Errorf("author %w", ErrNotFound)
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
