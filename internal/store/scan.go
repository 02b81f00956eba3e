package store

import (
	"database/sql"
	"errors"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns         = "id, username, created_at"
	topicColumns        = "id, name, description, created_at"
	conversationColumns = "id, topic_id, name, created_at"
	messageColumns      = "id, conversation_id, author_id, content, created_at"
	pageColumns         = "id, topic_id, title, content, created_at"
)

func scanUser(sc rowScanner) (User, error) {
	var (
		u       User
		created string
		err     error
	)
	if err = sc.Scan(&u.ID, &u.Username, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt, err = parseTime(created)
	return u, err
}

func scanTopic(sc rowScanner) (Topic, error) {
	var (
		t       Topic
		desc    sql.NullString
		created string
		err     error
	)
	if err = sc.Scan(&t.ID, &t.Name, &desc, &created); err != nil {
		return Topic{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.CreatedAt, err = parseTime(created)
	return t, err
}

func scanConversation(sc rowScanner) (Conversation, error) {
	var (
		c       Conversation
		created string
		err     error
	)
	if err = sc.Scan(&c.ID, &c.TopicID, &c.Name, &created); err != nil {
		return Conversation{}, err
	}
	c.CreatedAt, err = parseTime(created)
	return c, err
}

func scanMessage(sc rowScanner) (Message, error) {
	var (
		m       Message
		created string
		err     error
	)
	if err = sc.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &created); err != nil {
		return Message{}, err
	}
	m.CreatedAt, err = parseTime(created)
	return m, err
}

func scanMessageWithAuthor(sc rowScanner) (MessageWithAuthor, error) {
	var (
		m       MessageWithAuthor
		created string
		err     error
	)
	if err = sc.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &created, &m.AuthorName); err != nil {
		return MessageWithAuthor{}, err
	}
	m.CreatedAt, err = parseTime(created)
	return m, err
}

func scanPage(sc rowScanner) (Page, error) {
	var (
		p       Page
		created string
		err     error
	)
	if err = sc.Scan(&p.ID, &p.TopicID, &p.Title, &p.Content, &created); err != nil {
		return Page{}, err
	}
	p.CreatedAt, err = parseTime(created)
	return p, err
}

func scanParticipant(sc rowScanner) (Participant, error) {
	var p Participant
	err := sc.Scan(&p.ConversationID, &p.UserID)
	return p, err
}

func scanSubscription(sc rowScanner) (Subscription, error) {
	var s Subscription
	err := sc.Scan(&s.TopicID, &s.UserID)
	return s, err
}

// getOne runs a single-row query. A missing row yields (nil, nil).
func getOne[T any](row *sql.Row, scan func(rowScanner) (T, error)) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// collect scans every row and closes rows. The result is never nil.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
