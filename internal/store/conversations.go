package store

import (
	"context"
	"fmt"
)

// CreateConversation inserts a conversation under topicID. An unknown topic
// yields ErrNotFound.
func (s *Store) CreateConversation(ctx context.Context, topicID int64, name string) (Conversation, error) {
	db, err := s.conn()
	if err != nil {
		return Conversation{}, err
	}
	return s.createConversation(ctx, db, topicID, name)
}

func (s *Store) createConversation(ctx context.Context, q querier, topicID int64, name string) (Conversation, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO conversations (topic_id, name, created_at) VALUES (?, ?, "+clampedNow("conversations")+") RETURNING "+conversationColumns,
		topicID, name, s.timestamp(),
	)
	c, err := scanConversation(row)
	if err != nil {
		return Conversation{}, mapError(fmt.Sprintf("create conversation %q in topic %d", name, topicID), err)
	}
	return c, nil
}

// GetConversation returns the conversation with the given id, or nil if there
// is none.
func (s *Store) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id)
	c, err := getOne(row, scanConversation)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get conversation %d", id), err)
	}
	return c, nil
}

// ListConversationsByTopic returns the topic's conversations, oldest first.
func (s *Store) ListConversationsByTopic(ctx context.Context, topicID int64) ([]Conversation, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE topic_id = ? ORDER BY created_at ASC, id ASC",
		topicID,
	)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list conversations of topic %d", topicID), err)
	}
	convs, err := collect(rows, scanConversation)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list conversations of topic %d", topicID), err)
	}
	return convs, nil
}
