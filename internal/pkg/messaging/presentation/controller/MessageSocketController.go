package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	qport "marketchat/internal/infrastructure/queue/port"
	"marketchat/internal/infrastructure/realtime"
	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/application/task"
	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// MessageSocketController is the realtime gateway: it binds inbound socket
// events to the messaging use cases and emits outbound events to rooms.
// Persistence always completes before any broadcast, so no client ever
// observes a message that failed to persist.
type MessageSocketController struct {
	hub             *realtime.Hub
	directory       repository.UserDirectory
	queue           qport.Client // nil disables offline notifications
	sendMessageUC   *usecase.SendMessageUseCase
	statusUC        *usecase.UpdateMessageStatusUseCase
	inflightTimeout time.Duration
}

func NewMessageSocketController(repo repository.MessagingRepository, dir repository.UserDirectory, hub *realtime.Hub, queue qport.Client) *MessageSocketController {
	return &MessageSocketController{
		hub:             hub,
		directory:       dir,
		queue:           queue,
		sendMessageUC:   usecase.NewSendMessageUseCase(repo),
		statusUC:        usecase.NewUpdateMessageStatusUseCase(repo),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type inboundFrame struct {
	Type           string                `json:"type"`
	AckID          string                `json:"ackId,omitempty"`
	UserID         string                `json:"userId,omitempty"`
	ConversationID string                `json:"conversationId,omitempty"`
	Sender         string                `json:"sender,omitempty"`
	Recipient      string                `json:"recipient,omitempty"`
	Content        string                `json:"content,omitempty"`
	MsgType        string                `json:"msgType,omitempty"`
	Attachment     *messaging.Attachment `json:"attachment,omitempty"`
	DedupeKey      *string               `json:"dedupeKey,omitempty"`
	MessageID      string                `json:"messageId,omitempty"`
	Status         string                `json:"status,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type    string             `json:"type"`
	AckID   string             `json:"ackId"`
	Status  string             `json:"status"` // "ok" or "error"
	Message *messaging.Message `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type messageFrame struct {
	Type    string            `json:"type"`
	Message messaging.Message `json:"message"`
}

type notificationFrame struct {
	Type    string            `json:"type"`
	Kind    string            `json:"kind"`
	Message messaging.Message `json:"message"`
}

type userStatusFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type statusUpdateFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the
// client disconnects.
func (ctl *MessageSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just return.
			return
		}

		conn := realtime.NewConnection(ws)
		ctl.hub.Attach(conn)
		defer func() {
			ctl.handleDisconnect(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, gin.H{"type": "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			// Each frame handler is isolated: a failing send must not take
			// down the read loop or other in-flight events.
			switch frame.Type {
			case "join":
				ctl.handleJoin(c, conn, frame)
			case "leave":
				ctl.handleLeave(c, conn, frame)
			case "sendMessage":
				ctl.handleSendMessage(c, conn, frame)
			case "messageStatus":
				ctl.handleMessageStatus(c, conn, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

// handleJoin registers the connection under its user room and/or a
// conversation room. Both are independent and idempotent.
func (ctl *MessageSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if frame.UserID == "" && frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "userId or conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	if frame.UserID != "" {
		if err := ctl.hub.JoinUser(ctx, conn, frame.UserID); err != nil {
			ctl.replyError(conn, "internal_error", "failed to register presence")
			return
		}
		ctl.setStatus(ctx, frame.UserID, messaging.StatusOnline)
		ctl.broadcastStatus(frame.UserID, messaging.StatusOnline)
	}
	if frame.ConversationID != "" {
		ctl.hub.JoinRoom(realtime.ConversationRoom(frame.ConversationID), conn)
	}
}

// handleLeave mirrors handleJoin: membership is removed and, for a user room,
// the offline transition is broadcast.
func (ctl *MessageSocketController) handleLeave(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	if frame.UserID != "" {
		if err := ctl.hub.LeaveUser(ctx, conn, frame.UserID); err != nil {
			ctl.replyError(conn, "internal_error", "failed to unregister presence")
			return
		}
		ctl.setStatus(ctx, frame.UserID, messaging.StatusOffline)
		ctl.broadcastStatus(frame.UserID, messaging.StatusOffline)
	}
	if frame.ConversationID != "" {
		ctl.hub.LeaveRoom(realtime.ConversationRoom(frame.ConversationID), conn)
	}
}

// handleSendMessage persists the message, then fans out: newMessage to the
// conversation room, notification to the recipient's user room (or the
// offline queue on a presence miss), and finally the acknowledgement.
func (ctl *MessageSocketController) handleSendMessage(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		Sender:         frame.Sender,
		Recipient:      frame.Recipient,
		Content:        frame.Content,
		MsgType:        messaging.MessageType(frame.MsgType),
		Attachment:     frame.Attachment,
		DedupeKey:      frame.DedupeKey,
	})
	if err != nil {
		ctl.replyFailure(conn, frame.AckID, err)
		return
	}

	broadcast, err := json.Marshal(messageFrame{Type: "newMessage", Message: *msg})
	if err != nil {
		ctl.replyFailure(conn, frame.AckID, err)
		return
	}
	ctl.hub.Broadcast(realtime.ConversationRoom(msg.ConversationID), broadcast)

	notify, err := json.Marshal(notificationFrame{Type: "notification", Kind: "newMessage", Message: *msg})
	if err == nil {
		if !ctl.hub.NotifyUser(ctx, msg.Recipient, notify) {
			ctl.enqueueOfflineNotification(ctx, msg)
		}
	}

	if frame.AckID != "" {
		ctl.reply(conn, ackFrame{Type: "ack", AckID: frame.AckID, Status: "ok", Message: msg})
	}
}

// handleMessageStatus applies a delivery transition and notifies the original
// sender's user room. Best-effort: failures surface as an error frame.
func (ctl *MessageSocketController) handleMessageStatus(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.statusUC.Execute(ctx, usecase.UpdateMessageStatusInput{
		MessageID: frame.MessageID,
		Status:    messaging.MessageStatus(frame.Status),
	})
	if err != nil {
		ctl.replyUseCaseError(conn, err)
		return
	}

	update, err := json.Marshal(statusUpdateFrame{
		Type:      "messageStatusUpdate",
		MessageID: msg.ID,
		Status:    string(msg.Status),
	})
	if err == nil {
		// Silent drop on presence miss: the sender will see the status on
		// next load.
		ctl.hub.NotifyUser(ctx, msg.Sender, update)
	}
}

// handleDisconnect runs the presence sweep for abrupt connection loss and
// emits the same offline transition as an explicit leave.
func (ctl *MessageSocketController) handleDisconnect(conn *realtime.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()

	for _, userID := range ctl.hub.Detach(ctx, conn) {
		ctl.setStatus(ctx, userID, messaging.StatusOffline)
		ctl.broadcastStatus(userID, messaging.StatusOffline)
	}
}

func (ctl *MessageSocketController) enqueueOfflineNotification(ctx context.Context, msg *messaging.Message) {
	if ctl.queue == nil {
		return
	}
	t, err := task.NewOfflineNotificationTask(task.OfflineNotificationPayload{
		UserID:         msg.Recipient,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
	})
	if err != nil {
		return
	}
	if _, err := ctl.queue.Enqueue(ctx, t, qport.EnqueueOption{Queue: "notifications", MaxRetry: 10}); err != nil {
		log.Printf("enqueue offline notification: %v", err)
	}
}

func (ctl *MessageSocketController) setStatus(ctx context.Context, userID string, status messaging.PresenceStatus) {
	if err := ctl.directory.SetStatus(ctx, userID, status, time.Now().UTC()); err != nil {
		log.Printf("set user status: %v", err)
	}
}

func (ctl *MessageSocketController) broadcastStatus(userID string, status messaging.PresenceStatus) {
	payload, err := json.Marshal(userStatusFrame{Type: "userStatus", UserID: userID, Status: string(status)})
	if err != nil {
		return
	}
	ctl.hub.BroadcastAll(payload)
}

// replyFailure routes a send failure to the acknowledgement path when the
// caller supplied an ackId, and to an error frame otherwise.
func (ctl *MessageSocketController) replyFailure(conn *realtime.Connection, ackID string, err error) {
	if ackID != "" {
		ctl.reply(conn, ackFrame{Type: "ack", AckID: ackID, Status: "error", Error: publicError(err)})
		return
	}
	ctl.replyUseCaseError(conn, err)
}

func (ctl *MessageSocketController) replyUseCaseError(conn *realtime.Connection, err error) {
	ctl.replyError(conn, errorCode(err), publicError(err))
}

func (ctl *MessageSocketController) replyError(conn *realtime.Connection, code string, message string) {
	ctl.reply(conn, errorFrame{Type: "error", Code: code, Error: message})
}

func (ctl *MessageSocketController) reply(conn *realtime.Connection, v any) {
	if payload, err := json.Marshal(v); err == nil {
		_ = conn.Send(payload)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, messaging.ErrConversationNotFound),
		errors.Is(err, messaging.ErrMessageNotFound),
		errors.Is(err, messaging.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, messaging.ErrNotParticipant):
		return "forbidden"
	case errors.Is(err, messaging.ErrStatusRegression):
		return "conflict"
	case errors.Is(err, usecase.ErrPersistence):
		return "internal_error"
	default:
		return "bad_request"
	}
}

// publicError keeps internal failure detail out of client-visible frames.
func publicError(err error) string {
	if errors.Is(err, usecase.ErrPersistence) {
		return "unexpected persistence error"
	}
	return err.Error()
}
