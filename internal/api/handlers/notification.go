package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	orderService        service.OrderService
}

func NewNotificationHandler(notificationService service.NotificationService, orderService service.OrderService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, orderService: orderService}
}

// ListOrderNotifications godoc
//
//	@Summary	List emails sent for an order
//	@Tags		Notifications
//	@Produce	json
//	@Param		orderNumber	path		string	true	"Order number"
//	@Success	200			{array}		models.Notification
//	@Failure	401			{object}	response.ErrorResponse	"Authentication required"
//	@Failure	403			{object}	response.ErrorResponse	"Order belongs to another customer"
//	@Failure	404			{object}	response.ErrorResponse	"Order not found"
//	@Security	BearerAuth
//	@Router		/orders/{orderNumber}/notifications [get]
func (h *NotificationHandler) ListOrderNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		orderNumber, err := pathValue(r, "orderNumber")
		if err != nil {
			response.Error(w, err)

			return
		}

		order, err := h.orderService.GetOrderByNumber(r.Context(), orderNumber)
		if err != nil {
			response.Error(w, err)

			return
		}

		if order == nil {
			response.Error(w, errors.NotFoundError("Order not found"))

			return
		}

		if order.UserID == nil || *order.UserID != claims.UserID {
			logger.Warn("Attempted to list another user's notifications", slog.String("orderNumber", orderNumber))
			response.Error(w, errors.ForbiddenError("You do not have permission to view this order"))

			return
		}

		notifications, err := h.notificationService.ListOrderNotifications(r.Context(), orderNumber)
		if err != nil {
			logger.Error("Failed to list notifications", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, notifications)
	}
}
