package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// CreateOrder godoc
//
//	@Summary		Place an order from a cart
//	@Description	Converts the cart into an order, decrements stock and empties the cart in one transaction. Authentication is optional; when present the order is attributed to the caller.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		models.CreateOrderRequest	true	"Cart token and addresses"
//	@Success		201		{object}	models.Order				"Order placed"
//	@Failure		400		{object}	response.ErrorResponse		"Validation error or empty cart"
//	@Failure		404		{object}	response.ErrorResponse		"Cart or product not found"
//	@Failure		409		{object}	response.ErrorResponse		"Insufficient stock"
//	@Failure		500		{object}	response.ErrorResponse		"Internal server error"
//	@Router			/orders [post]
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create order input")

			return
		}

		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			req.UserID = &claims.UserID
		}

		order, err := h.orderService.CreateOrder(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create order", slog.String("cartToken", req.CartToken), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Order created successfully", slog.String("orderNumber", order.OrderNumber))
		response.Success(w, http.StatusCreated, order)
	}
}

// CreateExternalOrder godoc
//
//	@Summary		Record an order from an external channel
//	@Description	Places an order for an existing customer from an explicit item list, optionally with per-line price overrides and a caller-supplied order number.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		models.CreateExternalOrderRequest	true	"Customer, items and addresses"
//	@Success		201		{object}	models.Order						"Order placed"
//	@Failure		400		{object}	response.ErrorResponse				"Validation error"
//	@Failure		401		{object}	response.ErrorResponse				"Service key missing or invalid"
//	@Failure		403		{object}	response.ErrorResponse				"Caller is not a service"
//	@Failure		404		{object}	response.ErrorResponse				"Customer or product not found"
//	@Failure		409		{object}	response.ErrorResponse				"Insufficient stock or duplicate order number"
//	@Security		ServiceKey
//	@Router			/orders/external [post]
func (h *OrderHandler) CreateExternalOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		if !middleware.IsServiceCaller(r.Context()) {
			logger.Warn("External order attempted without a service credential")
			response.Error(w, errors.ForbiddenError("External orders require a service credential"))

			return
		}

		var req models.CreateExternalOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid external order input")

			return
		}

		order, err := h.orderService.CreateExternalOrder(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create external order", slog.String("customerId", req.CustomerID.String()), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("External order created", slog.String("orderNumber", order.OrderNumber))
		response.Success(w, http.StatusCreated, order)
	}
}

// GetOrder godoc
//
//	@Summary		Get an order by number
//	@Description	Guest orders are visible to anyone holding the number; customer orders only to their owner.
//	@Tags			Orders
//	@Produce		json
//	@Param			orderNumber	path		string					true	"Order number"
//	@Success		200			{object}	models.Order
//	@Failure		403			{object}	response.ErrorResponse	"Order belongs to another customer"
//	@Failure		404			{object}	response.ErrorResponse	"Order not found"
//	@Router			/orders/{orderNumber} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		orderNumber, err := pathValue(r, "orderNumber")
		if err != nil {
			response.Error(w, err)

			return
		}

		order, err := h.orderService.GetOrderByNumber(r.Context(), orderNumber)
		if err != nil {
			logger.Error("Failed to get order", slog.String("orderNumber", orderNumber), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		if order == nil {
			response.Error(w, errors.NotFoundError("Order not found"))

			return
		}

		if !canView(r, order) {
			logger.Warn("Attempted to access another user's order", slog.String("orderNumber", orderNumber))
			response.Error(w, errors.ForbiddenError("You do not have permission to view this order"))

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func canView(r *http.Request, order *models.Order) bool {
	if order.UserID == nil {
		return true
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())

	return ok && claims.UserID == *order.UserID
}

// ListOrders godoc
//
//	@Summary	List the caller's orders
//	@Tags		Orders
//	@Produce	json
//	@Success	200	{array}		models.Order			"Newest first"
//	@Failure	401	{object}	response.ErrorResponse	"Authentication required"
//	@Security	BearerAuth
//	@Router		/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		orders, err := h.orderService.GetUserOrders(r.Context(), claims.UserID)
		if err != nil {
			logger.Error("Failed to list orders", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, orders)
	}
}

// UpdateOrderStatus godoc
//
//	@Summary		Update an order's status
//	@Description	Any status may follow any other.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Order id"
//	@Param			status	body		models.UpdateOrderStatusRequest	true	"New status"
//	@Success		200		{object}	models.Order
//	@Failure		400		{object}	response.ErrorResponse	"Invalid id or status"
//	@Failure		401		{object}	response.ErrorResponse	"Authentication required"
//	@Failure		404		{object}	response.ErrorResponse	"Order not found"
//	@Security		BearerAuth
//	@Router			/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		id, err := pathID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		var req models.UpdateOrderStatusRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.orderService.UpdateOrderStatus(r.Context(), id, &req)
		if err != nil {
			logger.Error("Failed to update order status", slog.Int64("orderId", id), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}
