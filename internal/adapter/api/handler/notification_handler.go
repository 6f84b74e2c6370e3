package handler

import (
	"github.com/labstack/echo/v4"

	"accountmarket/pkg/response"
	"accountmarket/pkg/utils"
)

type NotificationHandler struct {
	notificationService NotificationService
}

func NewNotificationHandler(notificationService NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.ListForUser(c.Request().Context(), currentUserID(c), pagination.Page, pagination.PageSize)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, notifications, total, pagination.Page, pagination.PageSize)
}
