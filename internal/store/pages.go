package store

import (
	"context"
	"fmt"
)

// CreatePage inserts a page under topicID. An unknown topic yields
// ErrNotFound.
func (s *Store) CreatePage(ctx context.Context, topicID int64, title, content string) (Page, error) {
	db, err := s.conn()
	if err != nil {
		return Page{}, err
	}
	return s.createPage(ctx, db, topicID, title, content)
}

func (s *Store) createPage(ctx context.Context, q querier, topicID int64, title, content string) (Page, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO pages (topic_id, title, content, created_at) VALUES (?, ?, ?, "+clampedNow("pages")+") RETURNING "+pageColumns,
		topicID, title, content, s.timestamp(),
	)
	p, err := scanPage(row)
	if err != nil {
		return Page{}, mapError(fmt.Sprintf("create page %q in topic %d", title, topicID), err)
	}
	return p, nil
}

// GetPage returns the page with the given id, or nil if there is none.
func (s *Store) GetPage(ctx context.Context, id int64) (*Page, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	p, err := getOne(row, scanPage)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get page %d", id), err)
	}
	return p, nil
}

// ListPagesByTopic returns the topic's pages, oldest first.
func (s *Store) ListPagesByTopic(ctx context.Context, topicID int64) ([]Page, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE topic_id = ? ORDER BY created_at ASC, id ASC",
		topicID,
	)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list pages of topic %d", topicID), err)
	}
	pages, err := collect(rows, scanPage)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list pages of topic %d", topicID), err)
	}
	return pages, nil
}
