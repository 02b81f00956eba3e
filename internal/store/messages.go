package store

import (
	"context"
	"fmt"
)

// AddMessage appends a message and returns the stored row with its assigned
// id and created_at. An unknown conversation or author yields ErrNotFound.
func (s *Store) AddMessage(ctx context.Context, conversationID, authorID int64, content string) (Message, error) {
	db, err := s.conn()
	if err != nil {
		return Message{}, err
	}
	return s.addMessage(ctx, db, conversationID, authorID, content)
}

func (s *Store) addMessage(ctx context.Context, q querier, conversationID, authorID int64, content string) (Message, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO messages (conversation_id, author_id, content, created_at) VALUES (?, ?, ?, "+clampedNow("messages")+") RETURNING "+messageColumns,
		conversationID, authorID, content, s.timestamp(),
	)
	m, err := scanMessage(row)
	if err != nil {
		return Message{}, mapError(fmt.Sprintf("add message to conversation %d", conversationID), err)
	}
	return m, nil
}

// ListMessages returns a page of the conversation's messages, oldest first,
// each joined with its author's username. Offsets are positional, so a page
// shifts when messages are appended concurrently.
func (s *Store) ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]MessageWithAuthor, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.QueryContext(ctx, `
SELECT m.id, m.conversation_id, m.author_id, m.content, m.created_at, u.username
FROM messages m
INNER JOIN users u ON u.id = m.author_id
WHERE m.conversation_id = ?
ORDER BY m.created_at ASC, m.id ASC
LIMIT ? OFFSET ?`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list messages of conversation %d", conversationID), err)
	}
	msgs, err := collect(rows, scanMessageWithAuthor)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list messages of conversation %d", conversationID), err)
	}
	return msgs, nil
}
