package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

func TestListMessagesAscendingOrder(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	conv := newConversation(t, repo, "freelancer-1", "client-1")
	send := NewSendMessageUseCase(repo)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		_, err := send.Execute(ctx, SendMessageInput{
			ConversationID: conv.ID,
			Sender:         "freelancer-1",
			Recipient:      "client-1",
			Content:        content,
		})
		require.NoError(t, err)
	}

	msgs, err := NewListMessagesUseCase(repo).Execute(ctx, ListMessagesInput{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "one", msgs[0].Content)
	require.Equal(t, "two", msgs[1].Content)
	require.Equal(t, "three", msgs[2].Content)
}

func TestListMessagesUnknownConversation(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	uc := NewListMessagesUseCase(repo)

	_, err := uc.Execute(context.Background(), ListMessagesInput{ConversationID: "missing"})
	require.ErrorIs(t, err, messaging.ErrConversationNotFound)
}
