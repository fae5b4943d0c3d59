package controller

import (
	"errors"
	"net/http"

	messaging "marketchat/internal/pkg/messaging/application/domain"
	"marketchat/internal/pkg/messaging/application/usecase"
)

// httpStatus maps use case failures onto response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, messaging.ErrConversationNotFound),
		errors.Is(err, messaging.ErrMessageNotFound),
		errors.Is(err, messaging.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, messaging.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, messaging.ErrStatusRegression):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
