package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// GetMessagesController handles fetching a conversation's message log (one
// controller per endpoint)
type GetMessagesController struct {
	UC *usecase.ListMessagesUseCase
}

func NewGetMessagesController(repo repository.MessagingRepository) *GetMessagesController {
	return &GetMessagesController{UC: usecase.NewListMessagesUseCase(repo)}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.ListMessagesInput{ConversationID: conversationID})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
	}
}
