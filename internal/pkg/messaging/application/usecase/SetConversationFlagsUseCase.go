package usecase

import (
	"context"
	"errors"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// SetConversationFlagsInput toggles per-participant pinned/archived state.
// Nil fields are left untouched.
type SetConversationFlagsInput struct {
	ConversationID string
	UserID         string
	Pinned         *bool
	Archived       *bool
}

// SetConversationFlagsUseCase updates a participant's pinned/archived flags.
type SetConversationFlagsUseCase struct {
	Repo repository.MessagingRepository
}

func NewSetConversationFlagsUseCase(repo repository.MessagingRepository) *SetConversationFlagsUseCase {
	return &SetConversationFlagsUseCase{Repo: repo}
}

func (uc *SetConversationFlagsUseCase) Execute(ctx context.Context, in SetConversationFlagsInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return messaging.ErrValidation
	}
	if in.Pinned == nil && in.Archived == nil {
		return nil
	}
	if err := uc.Repo.SetFlags(ctx, in.ConversationID, in.UserID, in.Pinned, in.Archived); err != nil {
		if errors.Is(err, messaging.ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
