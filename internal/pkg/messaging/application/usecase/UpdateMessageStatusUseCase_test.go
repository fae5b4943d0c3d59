package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

func sendOne(t *testing.T, repo *adapter.MemoryRepository, conversationID string) *messaging.Message {
	t.Helper()
	msg, err := NewSendMessageUseCase(repo).Execute(context.Background(), SendMessageInput{
		ConversationID: conversationID,
		Sender:         "freelancer-1",
		Recipient:      "client-1",
		Content:        "ping",
	})
	require.NoError(t, err)
	return msg
}

func TestUpdateMessageStatusForwardOnly(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	conv := newConversation(t, repo, "freelancer-1", "client-1")
	msg := sendOne(t, repo, conv.ID)
	uc := NewUpdateMessageStatusUseCase(repo)
	ctx := context.Background()

	// sent -> read skips delivered and is still legal.
	updated, err := uc.Execute(ctx, UpdateMessageStatusInput{MessageID: msg.ID, Status: messaging.MessageStatusRead})
	require.NoError(t, err)
	require.Equal(t, messaging.MessageStatusRead, updated.Status)

	// Backward is rejected and the stored status is untouched.
	_, err = uc.Execute(ctx, UpdateMessageStatusInput{MessageID: msg.ID, Status: messaging.MessageStatusDelivered})
	require.ErrorIs(t, err, messaging.ErrStatusRegression)

	stored, err := repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, messaging.MessageStatusRead, stored.Status)
}

func TestUpdateMessageStatusSameStatusIsNoOp(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	conv := newConversation(t, repo, "freelancer-1", "client-1")
	msg := sendOne(t, repo, conv.ID)
	uc := NewUpdateMessageStatusUseCase(repo)

	updated, err := uc.Execute(context.Background(), UpdateMessageStatusInput{MessageID: msg.ID, Status: messaging.MessageStatusSent})
	require.NoError(t, err)
	require.Equal(t, messaging.MessageStatusSent, updated.Status)
}

func TestUpdateMessageStatusValidation(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	uc := NewUpdateMessageStatusUseCase(repo)
	ctx := context.Background()

	_, err := uc.Execute(ctx, UpdateMessageStatusInput{MessageID: "m1", Status: messaging.MessageStatus("bogus")})
	require.ErrorIs(t, err, messaging.ErrValidation)

	_, err = uc.Execute(ctx, UpdateMessageStatusInput{MessageID: "missing", Status: messaging.MessageStatusRead})
	require.ErrorIs(t, err, messaging.ErrMessageNotFound)
}
