package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageInput carries the data needed to persist a new message.
// DedupeKey is optional; when a client retries with the same key after a
// timeout the already-persisted message is returned instead of a duplicate.
type SendMessageInput struct {
	ConversationID string
	Sender         string
	Recipient      string
	Content        string
	MsgType        messaging.MessageType
	Attachment     *messaging.Attachment
	DedupeKey      *string
}

// SendMessageUseCase validates and persists a message, then updates the
// conversation's denormalized preview and the recipient's unread counter.
// It never broadcasts: fan-out is the gateway's responsibility so this type
// stays testable without a live socket layer.
type SendMessageUseCase struct {
	Repo repository.MessagingRepository
}

func NewSendMessageUseCase(repo repository.MessagingRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*messaging.Message, error) {
	if in.ConversationID == "" || in.Sender == "" || in.Recipient == "" {
		return nil, messaging.ErrValidation
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, messaging.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.Sender) || !conv.HasParticipant(in.Recipient) {
		return nil, messaging.ErrNotParticipant
	}

	if in.DedupeKey != nil && *in.DedupeKey != "" {
		prior, err := uc.Repo.FindMessageByDedupeKey(ctx, in.ConversationID, *in.DedupeKey)
		if err == nil {
			return prior, nil
		}
		if !errors.Is(err, messaging.ErrMessageNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	msg, err := messaging.NewMessage(messaging.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		Sender:         in.Sender,
		Recipient:      in.Recipient,
		Content:        in.Content,
		MsgType:        in.MsgType,
		Attachment:     in.Attachment,
		DedupeKey:      in.DedupeKey,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.Repo.SaveMessage(ctx, *msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Preview and unread counter are advisory; a failure here does not undo
	// the persisted message.
	lm := messaging.LastMessage{
		Content:   msg.Content,
		Sender:    msg.Sender,
		MsgType:   msg.MsgType,
		Timestamp: msg.CreatedAt,
	}
	if err := uc.Repo.UpdateLastMessage(ctx, in.ConversationID, lm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := uc.Repo.IncrementUnread(ctx, in.ConversationID, in.Recipient); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return msg, nil
}
