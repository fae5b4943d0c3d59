package usecase

import (
	"context"
	"errors"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// ListMessagesInput wraps the conversation whose log is requested.
type ListMessagesInput struct {
	ConversationID string
}

// ListMessagesUseCase returns the full message log of a conversation in
// ascending creation order. A nonexistent conversation is an error, not an
// empty list.
type ListMessagesUseCase struct {
	Repo repository.MessagingRepository
}

func NewListMessagesUseCase(repo repository.MessagingRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]messaging.Message, error) {
	if in.ConversationID == "" {
		return nil, messaging.ErrValidation
	}

	if _, err := uc.Repo.GetConversation(ctx, in.ConversationID); err != nil {
		if errors.Is(err, messaging.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msgs, err := uc.Repo.ListMessagesByConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
