package messaging

import (
	"strings"
	"time"
)

// MessageType represents the kind of content carried by a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeFile  MessageType = "file"
	MessageTypeImage MessageType = "image"
)

// MessageStatus tracks delivery progress. Transitions are forward-only.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	MessageStatusSent:      0,
	MessageStatusDelivered: 1,
	MessageStatusRead:      2,
}

// ValidStatus tells whether s is a known delivery status.
func ValidStatus(s MessageStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a message may move from one status to another.
// Any forward jump is allowed (sent -> read skips delivered legally); moving
// backward is not.
func CanTransition(from, to MessageStatus) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// Attachment carries inline-encoded file data. Attachments live inside the
// message record; there is no separate blob store.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64
}

// Message is an immutable log entry in a conversation. Only Status is ever
// mutated after creation.
type Message struct {
	ID             string        `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversationId"`
	Sender         string        `db:"sender_id" json:"sender"`
	Recipient      string        `db:"recipient_id" json:"recipient"`
	Content        string        `db:"content" json:"content"`
	MsgType        MessageType   `db:"msg_type" json:"type"`
	Attachment     *Attachment   `db:"attachment" json:"attachment,omitempty"`
	Status         MessageStatus `db:"status" json:"status"`
	DedupeKey      *string       `db:"dedupe_key" json:"dedupeKey,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
}

// NewMessage validates and normalizes a message before persistence.
//
// Rules:
//   - conversation, sender and recipient identifiers are required
//   - content may be empty only when an attachment is present
//   - the declared type must agree with attachment presence: text messages
//     carry no attachment, file/image messages must carry one
//
// If CreatedAt is zero it is set to now; Status is forced to sent.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.Sender == "" || m.Recipient == "" {
		return nil, ErrValidation
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" && m.Attachment == nil {
		return nil, ErrEmptyMessage
	}

	if m.MsgType == "" {
		m.MsgType = MessageTypeText
	}
	switch m.MsgType {
	case MessageTypeText:
		if m.Attachment != nil {
			return nil, ErrTypeMismatch
		}
	case MessageTypeFile, MessageTypeImage:
		if m.Attachment == nil {
			return nil, ErrTypeMismatch
		}
	default:
		return nil, ErrValidation
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Status = MessageStatusSent

	return &m, nil
}
