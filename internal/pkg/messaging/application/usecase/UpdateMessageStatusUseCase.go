package usecase

import (
	"context"
	"errors"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// UpdateMessageStatusInput identifies a message and the status it should move to.
type UpdateMessageStatusInput struct {
	MessageID string
	Status    messaging.MessageStatus
}

// UpdateMessageStatusUseCase applies forward-only delivery transitions.
// Any forward jump is legal (sent -> read without delivered); a backward
// transition fails with ErrStatusRegression; setting the current status again
// is a no-op that returns the message unchanged.
type UpdateMessageStatusUseCase struct {
	Repo repository.MessagingRepository
}

func NewUpdateMessageStatusUseCase(repo repository.MessagingRepository) *UpdateMessageStatusUseCase {
	return &UpdateMessageStatusUseCase{Repo: repo}
}

// Execute returns the updated message so the caller can notify the original sender.
func (uc *UpdateMessageStatusUseCase) Execute(ctx context.Context, in UpdateMessageStatusInput) (*messaging.Message, error) {
	if in.MessageID == "" || !messaging.ValidStatus(in.Status) {
		return nil, messaging.ErrValidation
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, messaging.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if msg.Status == in.Status {
		return msg, nil
	}
	if !messaging.CanTransition(msg.Status, in.Status) {
		return nil, messaging.ErrStatusRegression
	}

	if err := uc.Repo.UpdateMessageStatus(ctx, in.MessageID, in.Status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.Status = in.Status
	return msg, nil
}
