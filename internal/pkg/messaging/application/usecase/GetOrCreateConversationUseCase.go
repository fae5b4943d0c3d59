package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// GetOrCreateConversationInput carries the participant pair and an optional
// project label applied only when the conversation does not exist yet.
type GetOrCreateConversationInput struct {
	UserA   string
	UserB   string
	Project string
}

// GetOrCreateConversationUseCase resolves the single conversation for a
// participant pair, creating it lazily on first contact. Lookup is
// order-independent: (A,B) and (B,A) land on the same thread.
type GetOrCreateConversationUseCase struct {
	Repo repository.MessagingRepository
}

func NewGetOrCreateConversationUseCase(repo repository.MessagingRepository) *GetOrCreateConversationUseCase {
	return &GetOrCreateConversationUseCase{Repo: repo}
}

// Execute returns the existing conversation unchanged when one exists; the
// stored project label is never overwritten by a repeat call.
func (uc *GetOrCreateConversationUseCase) Execute(ctx context.Context, in GetOrCreateConversationInput) (*messaging.Conversation, error) {
	if in.UserA == "" || in.UserB == "" {
		return nil, messaging.ErrValidation
	}
	if in.UserA == in.UserB {
		return nil, messaging.ErrSelfConversation
	}

	key := messaging.ParticipantKey(in.UserA, in.UserB)
	existing, err := uc.Repo.FindConversationByKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, messaging.ErrConversationNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	conv := messaging.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{in.UserA, in.UserB},
		Project:      in.Project,
		UnreadCounts: map[string]int{in.UserA: 0, in.UserB: 0},
		Pinned:       map[string]bool{},
		Archived:     map[string]bool{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.Repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &conv, nil
}
