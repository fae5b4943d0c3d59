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

// UpdateMessageStatusController handles delivery-status transitions over HTTP
// (one controller per endpoint)
type UpdateMessageStatusController struct {
	UC *usecase.UpdateMessageStatusUseCase
}

func NewUpdateMessageStatusController(repo repository.MessagingRepository) *UpdateMessageStatusController {
	return &UpdateMessageStatusController{UC: usecase.NewUpdateMessageStatusUseCase(repo)}
}

type updateMessageStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *UpdateMessageStatusController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		var req updateMessageStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.UpdateMessageStatusInput{
			MessageID: messageID,
			Status:    messaging.MessageStatus(req.Status),
		})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}
