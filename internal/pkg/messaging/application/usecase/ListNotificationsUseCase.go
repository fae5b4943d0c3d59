package usecase

import (
	"context"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// ListNotificationsInput wraps the user whose inbox is requested.
type ListNotificationsInput struct {
	UserID string
}

// ListNotificationsUseCase returns the persisted notification inbox written by
// the offline-delivery worker, newest first.
type ListNotificationsUseCase struct {
	Repo repository.MessagingRepository
}

func NewListNotificationsUseCase(repo repository.MessagingRepository) *ListNotificationsUseCase {
	return &ListNotificationsUseCase{Repo: repo}
}

func (uc *ListNotificationsUseCase) Execute(ctx context.Context, in ListNotificationsInput) ([]messaging.Notification, error) {
	if in.UserID == "" {
		return nil, messaging.ErrValidation
	}
	ns, err := uc.Repo.ListNotificationsByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ns, nil
}
