package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketchat/internal/pkg/messaging/application/usecase"
	repository "marketchat/internal/pkg/messaging/persistence/repository/port"
)

// ListNotificationsController returns a user's persisted notification inbox,
// written by the offline-notification pipeline (one controller per endpoint)
type ListNotificationsController struct {
	UC *usecase.ListNotificationsUseCase
}

func NewListNotificationsController(repo repository.MessagingRepository) *ListNotificationsController {
	return &ListNotificationsController{UC: usecase.NewListNotificationsUseCase(repo)}
}

func (h *ListNotificationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		notifs, err := h.UC.Execute(ctx, usecase.ListNotificationsInput{UserID: userID})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"notifications": notifs, "count": len(notifs)})
	}
}
