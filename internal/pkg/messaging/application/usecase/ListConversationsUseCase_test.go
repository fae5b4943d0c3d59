package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

func TestListConversationsMostRecentFirst(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	repo.PutUser(messaging.User{ID: "freelancer-1", Username: "nina"})
	repo.PutUser(messaging.User{ID: "client-1", Username: "acme"})
	repo.PutUser(messaging.User{ID: "client-2", Username: "globex"})

	convA := newConversation(t, repo, "freelancer-1", "client-1")
	convB := newConversation(t, repo, "freelancer-1", "client-2")
	ctx := context.Background()

	require.NoError(t, repo.UpdateLastMessage(ctx, convA.ID, messaging.LastMessage{
		Content: "older", Sender: "client-1", MsgType: messaging.MessageTypeText,
		Timestamp: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, repo.UpdateLastMessage(ctx, convB.ID, messaging.LastMessage{
		Content: "newer", Sender: "client-2", MsgType: messaging.MessageTypeText,
		Timestamp: time.Now(),
	}))

	views, err := NewListConversationsUseCase(repo, repo).Execute(ctx, ListConversationsInput{UserID: "freelancer-1"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, convB.ID, views[0].Conversation.ID)
	require.Equal(t, convA.ID, views[1].Conversation.ID)
	require.Len(t, views[0].Participants, 2)
}

func TestListConversationsEmptyForStranger(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	newConversation(t, repo, "freelancer-1", "client-1")

	views, err := NewListConversationsUseCase(repo, repo).Execute(context.Background(), ListConversationsInput{UserID: "stranger"})
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestMarkConversationRead(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	conv := newConversation(t, repo, "freelancer-1", "client-1")
	ctx := context.Background()

	_, err := NewSendMessageUseCase(repo).Execute(ctx, SendMessageInput{
		ConversationID: conv.ID, Sender: "freelancer-1", Recipient: "client-1", Content: "hi",
	})
	require.NoError(t, err)

	require.NoError(t, NewMarkConversationReadUseCase(repo).Execute(ctx, MarkConversationReadInput{
		ConversationID: conv.ID, UserID: "client-1",
	}))

	got, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.UnreadCounts["client-1"])
}

func TestSetConversationFlags(t *testing.T) {
	repo := adapter.NewMemoryRepository()
	conv := newConversation(t, repo, "freelancer-1", "client-1")
	ctx := context.Background()
	uc := NewSetConversationFlagsUseCase(repo)

	pinned := true
	require.NoError(t, uc.Execute(ctx, SetConversationFlagsInput{
		ConversationID: conv.ID, UserID: "freelancer-1", Pinned: &pinned,
	}))

	got, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.True(t, got.Pinned["freelancer-1"])
	require.False(t, got.Archived["freelancer-1"])

	// Both nil: nothing to do, no error even for an unknown conversation.
	require.NoError(t, uc.Execute(ctx, SetConversationFlagsInput{ConversationID: "missing", UserID: "u"}))
}
