package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeInbound parses and validates a client payload. Content emptiness is
// left to the pipeline.
func decodeInbound(raw []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: decode payload: %v", ErrValidation, err)
	}
	if err := validate.Struct(msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return msg, nil
}

// noticeFor maps a submit or decode error to the text shown to the client.
func noticeFor(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid message format."
	case errors.Is(err, ErrUnknownConversation):
		return "Conversation not found."
	case errors.Is(err, ErrUnknownAuthor):
		return "Your user account no longer exists."
	case errors.Is(err, ErrNotFound):
		return "Conversation or user not found."
	default:
		return "Message could not be delivered."
	}
}
