package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/application/task"
	"marketchat/internal/pkg/messaging/application/usecase"
	"marketchat/internal/pkg/messaging/persistence/repository/adapter"
)

// recordingQueue captures enqueued tasks instead of talking to redis.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, t qport.Task, _ ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	return "task-1", nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) snapshot() []qport.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]qport.Task(nil), q.tasks...)
}

type gatewayFixture struct {
	repo  *adapter.MemoryRepository
	queue *recordingQueue
	url   string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := adapter.NewMemoryRepository()
	repo.PutUser(messaging.User{ID: "freelancer-1", Username: "nina"})
	repo.PutUser(messaging.User{ID: "client-1", Username: "acme"})

	hub := realtime.NewHub(realtime.NewLocalPresence())
	t.Cleanup(hub.Close)

	queue := &recordingQueue{}
	ctl := NewMessageSocketController(repo, repo, hub, queue)

	r := gin.New()
	r.GET("/ws", ctl.Handle())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &gatewayFixture{
		repo:  repo,
		queue: queue,
		url:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (f *gatewayFixture) conversation(t *testing.T) *messaging.Conversation {
	t.Helper()
	conv, err := usecase.NewGetOrCreateConversationUseCase(f.repo).Execute(context.Background(), usecase.GetOrCreateConversationInput{
		UserA: "freelancer-1", UserB: "client-1",
	})
	require.NoError(t, err)
	return conv
}

// dial connects and consumes the greeting frame.
func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	frame := awaitFrame(t, ws, "connected")
	require.Equal(t, "connected", frame["type"])
	return ws
}

// awaitFrame reads frames until one of the wanted type arrives. Presence
// frames interleave with everything else, so tests filter by type.
func awaitFrame(t *testing.T, ws *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, ws.SetReadDeadline(deadline))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame["type"] == wantType {
			return frame
		}
	}
	t.Fatalf("no %q frame within deadline", wantType)
	return nil
}

// expectNoFrame asserts that no frame of the given type arrives within the window.
func expectNoFrame(t *testing.T, ws *websocket.Conn, badType string, window time.Duration) {
	t.Helper()
	deadline := time.Now().Add(window)
	for {
		if err := ws.SetReadDeadline(deadline); err != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			return // timeout: nothing arrived
		}
		var frame map[string]any
		if json.Unmarshal(data, &frame) == nil && frame["type"] == badType {
			t.Fatalf("unexpected %q frame: %v", badType, frame)
		}
	}
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

// barrier forces the gateway to finish every frame sent so far on this
// connection: frames are handled sequentially, so once the error reply for the
// unknown type arrives, the preceding joins have taken effect.
func barrier(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	send(t, ws, gin.H{"type": "__sync"})
	awaitFrame(t, ws, "error")
}

func TestGatewaySendFansOutToRoomAndRecipient(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	recipient := f.dial(t)

	send(t, sender, gin.H{"type": "join", "userId": "freelancer-1", "conversationId": conv.ID})
	send(t, recipient, gin.H{"type": "join", "userId": "client-1", "conversationId": conv.ID})
	barrier(t, recipient)

	send(t, sender, gin.H{
		"type": "sendMessage", "ackId": "a1",
		"conversationId": conv.ID,
		"sender":         "freelancer-1",
		"recipient":      "client-1",
		"content":        "contract signed",
	})

	// On the sender's connection the room broadcast precedes the ack.
	own := awaitFrame(t, sender, "newMessage")
	require.Equal(t, "contract signed", own["message"].(map[string]any)["content"])

	ack := awaitFrame(t, sender, "ack")
	require.Equal(t, "a1", ack["ackId"])
	require.Equal(t, "ok", ack["status"])

	broadcast := awaitFrame(t, recipient, "newMessage")
	msg := broadcast["message"].(map[string]any)
	require.Equal(t, "contract signed", msg["content"])
	require.Equal(t, "freelancer-1", msg["sender"])

	notif := awaitFrame(t, recipient, "notification")
	require.Equal(t, "newMessage", notif["kind"])

	// Message landed in the store before any of this reached the sockets.
	msgs, err := f.repo.ListMessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestGatewayRejectedSendBroadcastsNothing(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	watcher := f.dial(t)

	send(t, watcher, gin.H{"type": "join", "conversationId": conv.ID})
	barrier(t, watcher)
	send(t, sender, gin.H{"type": "join", "userId": "freelancer-1"})

	send(t, sender, gin.H{
		"type": "sendMessage", "ackId": "a1",
		"conversationId": conv.ID,
		"sender":         "freelancer-1",
		"recipient":      "client-1",
		"content":        "   ",
	})

	ack := awaitFrame(t, sender, "ack")
	require.Equal(t, "error", ack["status"])
	require.NotEmpty(t, ack["error"])

	expectNoFrame(t, watcher, "newMessage", 300*time.Millisecond)

	msgs, err := f.repo.ListMessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestGatewaySendWithoutAckUsesErrorFrame(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	send(t, sender, gin.H{
		"type":           "sendMessage",
		"conversationId": conv.ID,
		"sender":         "intruder",
		"recipient":      "client-1",
		"content":        "hello",
	})

	frame := awaitFrame(t, sender, "error")
	require.Equal(t, "forbidden", frame["code"])
}

func TestGatewayOfflineRecipientGetsQueuedNotification(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	send(t, sender, gin.H{"type": "join", "userId": "freelancer-1"})

	send(t, sender, gin.H{
		"type": "sendMessage", "ackId": "a1",
		"conversationId": conv.ID,
		"sender":         "freelancer-1",
		"recipient":      "client-1",
		"content":        "are you there?",
	})
	awaitFrame(t, sender, "ack")

	tasks := f.queue.snapshot()
	require.Len(t, tasks, 1)
	require.Equal(t, task.OfflineNotificationTaskType, tasks[0].Type)

	var payload task.OfflineNotificationPayload
	require.NoError(t, json.Unmarshal(tasks[0].Payload, &payload))
	require.Equal(t, "client-1", payload.UserID)
	require.Equal(t, conv.ID, payload.ConversationID)
}

func TestGatewayStatusUpdateReachesSender(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	recipient := f.dial(t)

	send(t, sender, gin.H{"type": "join", "userId": "freelancer-1"})
	send(t, recipient, gin.H{"type": "join", "userId": "client-1"})

	send(t, sender, gin.H{
		"type": "sendMessage", "ackId": "a1",
		"conversationId": conv.ID,
		"sender":         "freelancer-1",
		"recipient":      "client-1",
		"content":        "ping",
	})
	ack := awaitFrame(t, sender, "ack")
	msgID := ack["message"].(map[string]any)["id"].(string)

	send(t, recipient, gin.H{"type": "messageStatus", "messageId": msgID, "status": "read"})

	update := awaitFrame(t, sender, "messageStatusUpdate")
	require.Equal(t, msgID, update["messageId"])
	require.Equal(t, "read", update["status"])

	stored, err := f.repo.GetMessage(context.Background(), msgID)
	require.NoError(t, err)
	require.Equal(t, messaging.MessageStatusRead, stored.Status)
}

func TestGatewayStatusRegressionIsRejected(t *testing.T) {
	f := newGatewayFixture(t)
	conv := f.conversation(t)

	sender := f.dial(t)
	send(t, sender, gin.H{
		"type": "sendMessage", "ackId": "a1",
		"conversationId": conv.ID,
		"sender":         "freelancer-1",
		"recipient":      "client-1",
		"content":        "ping",
	})
	ack := awaitFrame(t, sender, "ack")
	msgID := ack["message"].(map[string]any)["id"].(string)

	send(t, sender, gin.H{"type": "messageStatus", "messageId": msgID, "status": "read"})
	send(t, sender, gin.H{"type": "messageStatus", "messageId": msgID, "status": "delivered"})

	frame := awaitFrame(t, sender, "error")
	require.Equal(t, "conflict", frame["code"])
}

func TestGatewayDisconnectBroadcastsOffline(t *testing.T) {
	f := newGatewayFixture(t)

	watcher := f.dial(t)
	leaver := f.dial(t)

	send(t, leaver, gin.H{"type": "join", "userId": "client-1"})
	online := awaitFrame(t, watcher, "userStatus")
	require.Equal(t, "client-1", online["userId"])
	require.Equal(t, "online", online["status"])

	require.NoError(t, leaver.Close())

	offline := awaitFrame(t, watcher, "userStatus")
	require.Equal(t, "client-1", offline["userId"])
	require.Equal(t, "offline", offline["status"])

	// Directory record follows the presence transition.
	u, err := f.repo.GetUser(context.Background(), "client-1")
	require.NoError(t, err)
	require.Equal(t, messaging.StatusOffline, u.Status)
}

func TestGatewayUnknownFrameType(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dial(t)

	send(t, ws, gin.H{"type": "teleport"})
	frame := awaitFrame(t, ws, "error")
	require.Equal(t, "unsupported_type", frame["code"])
}
