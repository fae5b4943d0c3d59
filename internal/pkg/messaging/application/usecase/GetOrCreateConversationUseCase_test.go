package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

func TestGetOrCreateConversationIsIdempotent(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	uc := NewGetOrCreateConversationUseCase(repo)
	ctx := context.Background()

	first, err := uc.Execute(ctx, GetOrCreateConversationInput{UserA: "freelancer-1", UserB: "client-1", Project: "Landing page"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "Landing page", first.Project)
	require.Equal(t, 0, first.UnreadCounts["freelancer-1"])
	require.Equal(t, 0, first.UnreadCounts["client-1"])

	// Reversed order, different project label: same conversation, label untouched.
	second, err := uc.Execute(ctx, GetOrCreateConversationInput{UserA: "client-1", UserB: "freelancer-1", Project: "Another project"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Landing page", second.Project)
}

func TestGetOrCreateConversationValidation(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	uc := NewGetOrCreateConversationUseCase(repo)
	ctx := context.Background()

	_, err := uc.Execute(ctx, GetOrCreateConversationInput{UserA: "", UserB: "client-1"})
	require.ErrorIs(t, err, messaging.ErrValidation)

	_, err = uc.Execute(ctx, GetOrCreateConversationInput{UserA: "client-1", UserB: "client-1"})
	require.ErrorIs(t, err, messaging.ErrSelfConversation)
}
