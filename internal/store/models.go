package store

import "time"

// User is a registered chat identity. Usernames are unique.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Topic groups conversations and pages. Description is nil when unset.
type Topic struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a named thread of messages owned by one topic.
type Conversation struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is an append-only entry in a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	AuthorID       int64     `json:"author_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageWithAuthor is a Message joined with its author's username.
type MessageWithAuthor struct {
	Message
	AuthorName string `json:"author_name"`
}

// Page is static content attached to a topic.
type Page struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a conversation membership edge.
type Participant struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
}

// Subscription is a topic interest edge.
type Subscription struct {
	TopicID int64 `json:"topic_id"`
	UserID  int64 `json:"user_id"`
}

// TopicWithConversations is a subscribed topic with its conversations
// attached in created_at order.
type TopicWithConversations struct {
	Topic
	Conversations []Conversation `json:"conversations"`
}
