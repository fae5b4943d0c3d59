package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	qport "marketchat/internal/infrastructure/queue/port"
	messaging "marketchat/internal/pkg/messaging/application/domain"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// OfflineNotificationTaskType is the queue task name for recording an inbox
// entry when a message recipient had no live connection.
const OfflineNotificationTaskType = "messaging:offline_notification"

// OfflineNotificationPayload is the JSON payload transported via the queue.
type OfflineNotificationPayload struct {
	UserID         string `json:"userId"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// NewOfflineNotificationTask builds the queue task for the payload.
func NewOfflineNotificationTask(p OfflineNotificationPayload) (qport.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: OfflineNotificationTaskType, Payload: b}, nil
}

// HandleOfflineNotification returns the handler persisting the notification
// record. Exposed separately from registration so it can be exercised without
// a running queue server.
func HandleOfflineNotification(repo repository.MessagingRepository) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p OfflineNotificationPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return repo.SaveNotification(ctx, messaging.Notification{
			ID:             uuid.NewString(),
			UserID:         p.UserID,
			Kind:           messaging.NotificationKindNewMessage,
			MessageID:      p.MessageID,
			ConversationID: p.ConversationID,
			CreatedAt:      time.Now().UTC(),
		})
	}
}

// RegisterOfflineNotificationTask binds the task handler to the provided server.
func RegisterOfflineNotificationTask(srv qport.Server, repo repository.MessagingRepository) {
	srv.Register(OfflineNotificationTaskType, HandleOfflineNotification(repo))
}
