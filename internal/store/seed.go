package store

import (
	"context"
	"fmt"
)

// Seed fills an empty database with demo users, topics, conversations,
// messages, pages and memberships. It reports false without writing anything
// when users already exist. The dataset is written in one transaction, so a
// failed seed leaves the database empty and can be retried.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, mapError("seed", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := s.countUsers(ctx, tx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.log.Info("database already populated, skipping seed", "users", n)
		return false, nil
	}

	users, err := s.seedData(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, mapError("seed", err)
	}

	s.log.Info("database seeded", "users", users)
	return true, nil
}

// seedData writes the demo dataset through q and returns the number of users
// created.
func (s *Store) seedData(ctx context.Context, q querier) (int, error) {

	users := make(map[string]User)
	for _, name := range []string{"alice", "bob", "charlie"} {
		u, err := s.createUser(ctx, q, name)
		if err != nil {
			return 0, err
		}
		users[name] = u
	}

	type seedTopic struct {
		name, description, conversation, pageTitle, pageContent string
	}
	seeds := []seedTopic{
		{"General Discussion", "A place for general chat", "General Chat", "Welcome", "Welcome to the General Discussion topic!"},
		{"Tech Talk", "Discuss the latest in technology", "Tech Updates", "Tech Trends", "A summary of the latest trends in technology."},
		{"Random Thoughts", "Anything goes here", "Random Musings", "Random Ideas", "A collection of random ideas and thoughts."},
	}
	topics := make([]Topic, 0, len(seeds))
	convs := make([]Conversation, 0, len(seeds))
	for _, st := range seeds {
		t, err := s.createTopic(ctx, q, st.name, st.description)
		if err != nil {
			return 0, err
		}
		c, err := s.createConversation(ctx, q, t.ID, st.conversation)
		if err != nil {
			return 0, err
		}
		if _, err := s.createPage(ctx, q, t.ID, st.pageTitle, st.pageContent); err != nil {
			return 0, err
		}
		topics = append(topics, t)
		convs = append(convs, c)
	}

	messages := []struct {
		conv    int
		author  string
		content string
	}{
		{0, "alice", "Hello, everyone!"},
		{0, "bob", "Hi Alice!"},
		{1, "alice", "What's the latest in tech?"},
		{1, "charlie", "AI is taking over!"},
		{2, "bob", "Random thoughts are the best."},
		{2, "charlie", "I agree!"},
	}
	for _, m := range messages {
		if _, err := s.addMessage(ctx, q, convs[m.conv].ID, users[m.author].ID, m.content); err != nil {
			return 0, err
		}
	}

	memberships := []struct {
		idx  int
		user string
	}{
		{0, "alice"}, {0, "bob"},
		{1, "alice"}, {1, "charlie"},
		{2, "bob"},
	}
	for _, m := range memberships {
		if _, err := s.addParticipant(ctx, q, convs[m.idx].ID, users[m.user].ID); err != nil {
			return 0, err
		}
		if _, err := s.subscribe(ctx, q, topics[m.idx].ID, users[m.user].ID); err != nil {
			return 0, err
		}
	}

	return len(users), nil
}
