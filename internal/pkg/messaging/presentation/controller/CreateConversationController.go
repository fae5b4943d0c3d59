package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// CreateConversationController handles the get-or-create conversation endpoint
// (one controller per endpoint)
type CreateConversationController struct {
	UC *usecase.GetOrCreateConversationUseCase
}

func NewCreateConversationController(repo repository.MessagingRepository) *CreateConversationController {
	return &CreateConversationController{UC: usecase.NewGetOrCreateConversationUseCase(repo)}
}

type createConversationRequest struct {
	UserID1 string `json:"userId1" binding:"required"`
	UserID2 string `json:"userId2" binding:"required"`
	Project string `json:"project"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.GetOrCreateConversationInput{
			UserA:   req.UserID1,
			UserB:   req.UserID2,
			Project: req.Project,
		})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversation": conv})
	}
}
