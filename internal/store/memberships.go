package store

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// AddParticipant records userID as a member of conversationID. Adding an
// existing member leaves the set unchanged.
func (s *Store) AddParticipant(ctx context.Context, conversationID, userID int64) (Participant, error) {
	db, err := s.conn()
	if err != nil {
		return Participant{}, err
	}
	return s.addParticipant(ctx, db, conversationID, userID)
}

func (s *Store) addParticipant(ctx context.Context, q querier, conversationID, userID int64) (Participant, error) {
	_, err := q.ExecContext(ctx,
		"INSERT OR IGNORE INTO participants (conversation_id, user_id) VALUES (?, ?)",
		conversationID, userID,
	)
	if err != nil {
		return Participant{}, mapError(fmt.Sprintf("add participant %d to conversation %d", userID, conversationID), err)
	}
	return Participant{ConversationID: conversationID, UserID: userID}, nil
}

// RemoveParticipant deletes the membership. Removing a non-member is a no-op.
func (s *Store) RemoveParticipant(ctx context.Context, conversationID, userID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"DELETE FROM participants WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	)
	return mapError(fmt.Sprintf("remove participant %d from conversation %d", userID, conversationID), err)
}

// ListParticipants returns the members of conversationID.
func (s *Store) ListParticipants(ctx context.Context, conversationID int64) ([]Participant, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT conversation_id, user_id FROM participants WHERE conversation_id = ? ORDER BY user_id",
		conversationID,
	)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list participants of conversation %d", conversationID), err)
	}
	out, err := collect(rows, scanParticipant)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list participants of conversation %d", conversationID), err)
	}
	return out, nil
}

// Subscribe records userID's interest in topicID. Subscribing twice leaves
// the set unchanged.
func (s *Store) Subscribe(ctx context.Context, topicID, userID int64) (Subscription, error) {
	db, err := s.conn()
	if err != nil {
		return Subscription{}, err
	}
	return s.subscribe(ctx, db, topicID, userID)
}

func (s *Store) subscribe(ctx context.Context, q querier, topicID, userID int64) (Subscription, error) {
	_, err := q.ExecContext(ctx,
		"INSERT OR IGNORE INTO subscriptions (topic_id, user_id) VALUES (?, ?)",
		topicID, userID,
	)
	if err != nil {
		return Subscription{}, mapError(fmt.Sprintf("subscribe user %d to topic %d", userID, topicID), err)
	}
	return Subscription{TopicID: topicID, UserID: userID}, nil
}

// Unsubscribe deletes the subscription. Unsubscribing a non-subscriber is a
// no-op.
func (s *Store) Unsubscribe(ctx context.Context, topicID, userID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE topic_id = ? AND user_id = ?",
		topicID, userID,
	)
	return mapError(fmt.Sprintf("unsubscribe user %d from topic %d", userID, topicID), err)
}

// ListSubscriptions returns userID's subscriptions.
func (s *Store) ListSubscriptions(ctx context.Context, userID int64) ([]Subscription, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT topic_id, user_id FROM subscriptions WHERE user_id = ? ORDER BY topic_id",
		userID,
	)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list subscriptions of user %d", userID), err)
	}
	out, err := collect(rows, scanSubscription)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list subscriptions of user %d", userID), err)
	}
	return out, nil
}

const subscribedTopicsQuery = `
SELECT t.id, t.name, t.description, t.created_at
FROM topics t
INNER JOIN subscriptions s ON s.topic_id = t.id
WHERE s.user_id = ?
ORDER BY t.id`

const subscribedConversationsQuery = `
SELECT c.id, c.topic_id, c.name, c.created_at
FROM conversations c
INNER JOIN subscriptions s ON s.topic_id = c.topic_id
WHERE s.user_id = ?
ORDER BY c.created_at ASC, c.id ASC`

// ListSubscribedTopics returns the topics userID subscribes to.
func (s *Store) ListSubscribedTopics(ctx context.Context, userID int64) ([]Topic, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, subscribedTopicsQuery, userID)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list subscribed topics of user %d", userID), err)
	}
	topics, err := collect(rows, scanTopic)
	if err != nil {
		return nil, mapError(fmt.Sprintf("list subscribed topics of user %d", userID), err)
	}
	return topics, nil
}

// ListSubscribedTopicsWithConversations returns each topic userID subscribes
// to with its conversations attached. Both reads run in one transaction and
// conversations are fetched with a single join rather than per topic.
func (s *Store) ListSubscribedTopicsWithConversations(ctx context.Context, userID int64) ([]TopicWithConversations, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	op := fmt.Sprintf("list subscribed topics with conversations of user %d", userID)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, subscribedTopicsQuery, userID)
	if err != nil {
		return nil, mapError(op, err)
	}
	topics, err := collect(rows, scanTopic)
	if err != nil {
		return nil, mapError(op, err)
	}

	rows, err = tx.QueryContext(ctx, subscribedConversationsQuery, userID)
	if err != nil {
		return nil, mapError(op, err)
	}
	convs, err := collect(rows, scanConversation)
	if err != nil {
		return nil, mapError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, mapError(op, err)
	}

	byTopic := lo.GroupBy(convs, func(c Conversation) int64 { return c.TopicID })
	return lo.Map(topics, func(t Topic, _ int) TopicWithConversations {
		return TopicWithConversations{
			Topic:         t,
			Conversations: append(make([]Conversation, 0, len(byTopic[t.ID])), byTopic[t.ID]...),
		}
	}), nil
}
