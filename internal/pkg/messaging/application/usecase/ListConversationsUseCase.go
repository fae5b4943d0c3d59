package usecase

import (
	"context"
	"fmt"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// ListConversationsInput wraps the user whose inbox is requested.
type ListConversationsInput struct {
	UserID string
}

// ConversationView pairs a conversation with resolved participant display data.
type ConversationView struct {
	Conversation messaging.Conversation `json:"conversation"`
	Participants []messaging.User       `json:"participantDetails"`
}

// ListConversationsUseCase returns every conversation the user belongs to,
// most recent activity first, with participant display data attached from the
// user directory.
type ListConversationsUseCase struct {
	Repo      repository.MessagingRepository
	Directory repository.UserDirectory
}

func NewListConversationsUseCase(repo repository.MessagingRepository, dir repository.UserDirectory) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Directory: dir}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationView, error) {
	if in.UserID == "" {
		return nil, messaging.ErrValidation
	}

	convs, err := uc.Repo.ListConversationsByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		users, err := uc.Directory.GetUsers(ctx, c.Participants)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		views = append(views, ConversationView{Conversation: c, Participants: users})
	}
	return views, nil
}
