package messaging

import "time"

// NotificationKindNewMessage marks inbox entries produced for recipients that
// had no live connection when a message arrived.
const NotificationKindNewMessage = "new_message"

// Notification is a persisted inbox entry. Written by the offline-delivery
// worker; read back by the recipient on next load.
type Notification struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"userId"`
	Kind           string     `db:"kind" json:"kind"`
	MessageID      string     `db:"message_id" json:"messageId"`
	ConversationID string     `db:"conversation_id" json:"conversationId"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	ReadAt         *time.Time `db:"read_at" json:"readAt,omitempty"`
}
