package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// SendMessageController handles the synchronous send endpoint for clients
// without an active socket. It mirrors the socket path: the conversation's
// last-message preview is updated as a side effect of the use case.
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(repo repository.MessagingRepository) *SendMessageController {
	return &SendMessageController{UC: usecase.NewSendMessageUseCase(repo)}
}

type sendMessageRequest struct {
	ConversationID string                `json:"conversationId" binding:"required"`
	Sender         string                `json:"sender" binding:"required"`
	Recipient      string                `json:"recipient" binding:"required"`
	Content        string                `json:"content"`
	MsgType        string                `json:"type"`
	Attachment     *messaging.Attachment `json:"attachment"`
	DedupeKey      *string               `json:"dedupeKey"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: req.ConversationID,
			Sender:         req.Sender,
			Recipient:      req.Recipient,
			Content:        req.Content,
			MsgType:        messaging.MessageType(req.MsgType),
			Attachment:     req.Attachment,
			DedupeKey:      req.DedupeKey,
		})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": msg})
	}
}
