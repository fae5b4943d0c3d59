package repository

import (
	"context"
	"time"

	messaging "marketchat/internal/pkg/messaging/application/domain"
)

// MessagingRepository defines persistence operations for conversations,
// messages and the notification inbox. Adapters must return the domain
// not-found sentinels so use cases can map them without inspecting driver
// errors.
type MessagingRepository interface {
	CreateConversation(ctx context.Context, c messaging.Conversation) error
	GetConversation(ctx context.Context, id string) (*messaging.Conversation, error)
	// FindConversationByKey looks up a conversation by its canonical
	// participant key. Returns ErrConversationNotFound on miss.
	FindConversationByKey(ctx context.Context, key string) (*messaging.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]messaging.Conversation, error)
	// UpdateLastMessage overwrites the denormalized preview. Last write wins;
	// concurrent senders race and that is accepted.
	UpdateLastMessage(ctx context.Context, conversationID string, lm messaging.LastMessage) error
	IncrementUnread(ctx context.Context, conversationID, userID string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	// SetFlags updates per-participant pinned/archived state. Nil leaves the
	// flag untouched.
	SetFlags(ctx context.Context, conversationID, userID string, pinned, archived *bool) error

	SaveMessage(ctx context.Context, m messaging.Message) error
	GetMessage(ctx context.Context, id string) (*messaging.Message, error)
	FindMessageByDedupeKey(ctx context.Context, conversationID, key string) (*messaging.Message, error)
	// ListMessagesByConversation returns messages in ascending creation
	// order, stable for equal timestamps by insertion order.
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]messaging.Message, error)
	UpdateMessageStatus(ctx context.Context, id string, status messaging.MessageStatus) error

	SaveNotification(ctx context.Context, n messaging.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string) ([]messaging.Notification, error)
}

// UserDirectory is the read-mostly view of the user store consumed by the
// messaging core. Presence transitions are the only writes.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*messaging.User, error)
	GetUsers(ctx context.Context, ids []string) ([]messaging.User, error)
	SetStatus(ctx context.Context, id string, status messaging.PresenceStatus, lastActive time.Time) error
}
