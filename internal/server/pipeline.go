package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tyrowin/threadchat/internal/store"
)

//go:generate go run go.uber.org/mock/mockgen -source=pipeline.go -destination=mocks/mock_store.go -package=mocks

// Store is the persistence surface used by the pipeline and the HTTP handlers.
type Store interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	GetConversation(ctx context.Context, id int64) (*store.Conversation, error)
	AddMessage(ctx context.Context, conversationID, authorID int64, content string) (store.Message, error)
	ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]store.MessageWithAuthor, error)
}

// Broadcaster fans a rendered payload out to live sessions.
type Broadcaster interface {
	Broadcast(payload []byte) int
}

// Pipeline is the single path from a posted message to every live session:
// validate, persist, render, broadcast. Persisting and broadcasting are not
// atomic together; a crash in between leaves the message stored but only
// visible through history reads.
type Pipeline struct {
	store    Store
	hub      Broadcaster
	renderer Renderer
	log      *slog.Logger
}

// NewPipeline wires a pipeline. A nil renderer selects HTMLRenderer.
func NewPipeline(st Store, hub Broadcaster, renderer Renderer, log *slog.Logger) *Pipeline {
	if renderer == nil {
		renderer = HTMLRenderer{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{store: st, hub: hub, renderer: renderer, log: log}
}

// Submit persists content as a message by authorID in conversationID and
// broadcasts it. Empty content fails with ErrValidation and unknown ids with
// ErrNotFound; in both cases nothing is stored or broadcast. Nothing is
// broadcast unless the message was stored.
func (p *Pipeline) Submit(ctx context.Context, conversationID, authorID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: message content is empty", ErrValidation)
	}

	author, err := p.store.GetUser(ctx, authorID)
	if err != nil {
		return fmt.Errorf("load author %d: %w", authorID, err)
	}
	if author == nil {
		return fmt.Errorf("%w: user %d", ErrUnknownAuthor, authorID)
	}

	conv, err := p.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load conversation %d: %w", conversationID, err)
	}
	if conv == nil {
		return fmt.Errorf("%w: %d", ErrUnknownConversation, conversationID)
	}

	msg, err := p.store.AddMessage(ctx, conversationID, authorID, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("persist message: %w", err)
	}

	payload, err := p.renderer.RenderMessage(MessageView{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		AuthorName:     author.Username,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		// The message is stored; clients will see it in history.
		p.log.Error("render message", "message", msg.ID, "err", err)
		return fmt.Errorf("render message %d: %w", msg.ID, err)
	}

	delivered := p.hub.Broadcast(payload)
	p.log.Debug("message broadcast", "message", msg.ID, "conversation", conversationID, "author", author.Username, "delivered", delivered)
	return nil
}
