package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// SetConversationFlagsController toggles a participant's pinned/archived
// flags (one controller per endpoint)
type SetConversationFlagsController struct {
	UC *usecase.SetConversationFlagsUseCase
}

func NewSetConversationFlagsController(repo repository.MessagingRepository) *SetConversationFlagsController {
	return &SetConversationFlagsController{UC: usecase.NewSetConversationFlagsUseCase(repo)}
}

type setConversationFlagsRequest struct {
	Pinned   *bool `json:"pinned"`
	Archived *bool `json:"archived"`
}

func (h *SetConversationFlagsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		userID := c.Param("userId")
		if conversationID == "" || userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId and userId are required"})
			return
		}

		var req setConversationFlagsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.SetConversationFlagsInput{
			ConversationID: conversationID,
			UserID:         userID,
			Pinned:         req.Pinned,
			Archived:       req.Archived,
		})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
