package messaging

import "errors"

// Domain-level errors for messaging behaviors
var (
	ErrValidation           = errors.New("messaging: missing or malformed field")
	ErrSelfConversation     = errors.New("messaging: a conversation needs two distinct participants")
	ErrNotParticipant       = errors.New("messaging: user is not a participant in the conversation")
	ErrEmptyMessage         = errors.New("messaging: empty message (no content or attachment)")
	ErrTypeMismatch         = errors.New("messaging: message type does not agree with attachment presence")
	ErrStatusRegression     = errors.New("messaging: message status cannot move backward")
	ErrConversationNotFound = errors.New("messaging: conversation not found")
	ErrMessageNotFound      = errors.New("messaging: message not found")
	ErrUserNotFound         = errors.New("messaging: user not found")
)
