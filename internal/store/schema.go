package store

// Table DDL. Rows are never deleted by cascade; membership edges are the only
// rows removed, and only by explicit calls.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);`

	createTopics = `CREATE TABLE IF NOT EXISTS topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    created_at TEXT NOT NULL
);`

	createConversations = `CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (topic_id) REFERENCES topics(id)
);`

	createMessages = `CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL,
    author_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id),
    FOREIGN KEY (author_id) REFERENCES users(id)
);`

	createPages = `CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (topic_id) REFERENCES topics(id)
);`

	createParticipants = `CREATE TABLE IF NOT EXISTS participants (
    conversation_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    PRIMARY KEY (conversation_id, user_id),
    FOREIGN KEY (conversation_id) REFERENCES conversations(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);`

	createSubscriptions = `CREATE TABLE IF NOT EXISTS subscriptions (
    topic_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    PRIMARY KEY (topic_id, user_id),
    FOREIGN KEY (topic_id) REFERENCES topics(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);`
)

// Index DDL for the ordered listings.
const (
	idxConversationsTopic   = `CREATE INDEX IF NOT EXISTS idx_conversations_topic ON conversations(topic_id, created_at, id);`
	idxMessagesConversation = `CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, id);`
	idxPagesTopic           = `CREATE INDEX IF NOT EXISTS idx_pages_topic ON pages(topic_id, created_at, id);`
	idxSubscriptionsUser    = `CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createUsers,
	createTopics,
	createConversations,
	createMessages,
	createPages,
	createParticipants,
	createSubscriptions,
	idxConversationsTopic,
	idxMessagesConversation,
	idxPagesTopic,
	idxSubscriptionsUser,
}
