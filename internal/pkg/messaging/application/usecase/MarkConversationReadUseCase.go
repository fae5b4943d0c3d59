package usecase

import (
	"context"
	"errors"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// MarkConversationReadInput identifies the participant whose unread counter
// should be cleared.
type MarkConversationReadInput struct {
	ConversationID string
	UserID         string
}

// MarkConversationReadUseCase zeroes a participant's unread counter.
type MarkConversationReadUseCase struct {
	Repo repository.MessagingRepository
}

func NewMarkConversationReadUseCase(repo repository.MessagingRepository) *MarkConversationReadUseCase {
	return &MarkConversationReadUseCase{Repo: repo}
}

func (uc *MarkConversationReadUseCase) Execute(ctx context.Context, in MarkConversationReadInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return messaging.ErrValidation
	}
	if err := uc.Repo.ResetUnread(ctx, in.ConversationID, in.UserID); err != nil {
		if errors.Is(err, messaging.ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
