package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateTopic inserts a topic. An empty description is stored as NULL.
func (s *Store) CreateTopic(ctx context.Context, name, description string) (Topic, error) {
	db, err := s.conn()
	if err != nil {
		return Topic{}, err
	}
	return s.createTopic(ctx, db, name, description)
}

func (s *Store) createTopic(ctx context.Context, q querier, name, description string) (Topic, error) {
	desc := sql.NullString{String: description, Valid: description != ""}
	row := q.QueryRowContext(ctx,
		"INSERT INTO topics (name, description, created_at) VALUES (?, ?, "+clampedNow("topics")+") RETURNING "+topicColumns,
		name, desc, s.timestamp(),
	)
	t, err := scanTopic(row)
	if err != nil {
		return Topic{}, mapError(fmt.Sprintf("create topic %q", name), err)
	}
	return t, nil
}

// GetTopic returns the topic with the given id, or nil if there is none.
func (s *Store) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+topicColumns+" FROM topics WHERE id = ?", id)
	t, err := getOne(row, scanTopic)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get topic %d", id), err)
	}
	return t, nil
}

// ListTopics returns every topic.
func (s *Store) ListTopics(ctx context.Context) ([]Topic, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+topicColumns+" FROM topics ORDER BY id")
	if err != nil {
		return nil, mapError("list topics", err)
	}
	topics, err := collect(rows, scanTopic)
	if err != nil {
		return nil, mapError("list topics", err)
	}
	return topics, nil
}
