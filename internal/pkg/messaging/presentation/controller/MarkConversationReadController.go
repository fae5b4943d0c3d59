package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// MarkConversationReadController clears a participant's unread counter (one
// controller per endpoint)
type MarkConversationReadController struct {
	UC *usecase.MarkConversationReadUseCase
}

func NewMarkConversationReadController(repo repository.MessagingRepository) *MarkConversationReadController {
	return &MarkConversationReadController{UC: usecase.NewMarkConversationReadUseCase(repo)}
}

func (h *MarkConversationReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		userID := c.Param("userId")
		if conversationID == "" || userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId and userId are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.MarkConversationReadInput{
			ConversationID: conversationID,
			UserID:         userID,
		})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
