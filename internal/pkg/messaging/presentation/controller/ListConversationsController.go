package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// ListConversationsController handles fetching a user's inbox (one controller
// per endpoint)
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(repo repository.MessagingRepository, dir repository.UserDirectory) *ListConversationsController {
	return &ListConversationsController{UC: usecase.NewListConversationsUseCase(repo, dir)}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		views, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: userID})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversations": views, "count": len(views)})
	}
}
