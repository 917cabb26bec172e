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

// SessionHeader identifies an anonymous shopper.
const SessionHeader = "X-Session-ID"

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

// CreateCart godoc
//
//	@Summary		Create a cart
//	@Description	Returns the signed-in customer's cart, creating it when missing. Anonymous callers must send X-Session-ID and always get a new cart.
//	@Tags			Carts
//	@Produce		json
//	@Param			X-Session-ID	header		string					false	"Anonymous session id"
//	@Success		201				{object}	models.Cart				"Cart ready"
//	@Failure		400				{object}	response.ErrorResponse	"Neither a token nor a session id was supplied"
//	@Failure		500				{object}	response.ErrorResponse	"Internal server error"
//	@Router			/carts [post]
func (h *CartHandler) CreateCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var (
			cart *models.Cart
			err  error
		)

		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			cart, err = h.cartService.GetOrCreateUserCart(r.Context(), claims.UserID)
		} else {
			session := r.Header.Get(SessionHeader)
			if session == "" {
				logger.Warn("Anonymous cart request without session id")
				response.Error(w, errors.BadRequestError("X-Session-ID header is required for anonymous carts"))

				return
			}

			cart, err = h.cartService.CreateCart(r.Context(), &models.CreateCartRequest{SessionID: &session})
		}

		if err != nil {
			logger.Error("Failed to create cart", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Cart ready", slog.String("cartToken", cart.Token))
		response.Success(w, http.StatusCreated, cart)
	}
}

// GetCart godoc
//
//	@Summary		Get a cart
//	@Tags			Carts
//	@Produce		json
//	@Param			token	path		string					true	"Cart token"
//	@Success		200		{object}	models.Cart
//	@Failure		404		{object}	response.ErrorResponse	"Cart not found"
//	@Router			/carts/{token} [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		cart, err := h.cartService.GetCart(r.Context(), token)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to get cart", slog.String("cartToken", token), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// AddItem godoc
//
//	@Summary		Add an item
//	@Description	Adds a product by slug or id. Adding a product already in the cart increases its quantity.
//	@Tags			Carts
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string					true	"Cart token"
//	@Param			item	body		models.AddItemRequest	true	"Product and quantity"
//	@Success		200		{object}	models.Cart
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		404		{object}	response.ErrorResponse	"Cart or product not found"
//	@Failure		409		{object}	response.ErrorResponse	"Insufficient stock"
//	@Router			/carts/{token}/items [post]
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		token, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add item input")

			return
		}

		cart, err := h.cartService.AddItem(r.Context(), token, &req)
		if err != nil {
			logger.Warn("Failed to add item", slog.String("cartToken", token), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// UpdateItem godoc
//
//	@Summary		Set an item's quantity
//	@Tags			Carts
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string						true	"Cart token"
//	@Param			itemId	path		int							true	"Cart item id"
//	@Param			item	body		models.UpdateItemRequest	true	"New quantity"
//	@Success		200		{object}	models.Cart
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		404		{object}	response.ErrorResponse	"Cart or item not found"
//	@Failure		409		{object}	response.ErrorResponse	"Insufficient stock"
//	@Router			/carts/{token}/items/{itemId} [put]
func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		token, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		itemID, err := pathID(r, "itemId")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.UpdateItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.UpdateItem(r.Context(), token, itemID, &req)
		if err != nil {
			logger.Warn("Failed to update item", slog.Int64("itemId", itemID), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// RemoveItem godoc
//
//	@Summary	Remove an item
//	@Tags		Carts
//	@Produce	json
//	@Param		token	path		string	true	"Cart token"
//	@Param		itemId	path		int		true	"Cart item id"
//	@Success	200		{object}	models.Cart
//	@Failure	404		{object}	response.ErrorResponse	"Cart or item not found"
//	@Router		/carts/{token}/items/{itemId} [delete]
func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		itemID, err := pathID(r, "itemId")
		if err != nil {
			response.Error(w, err)

			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), token, itemID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Failed to remove item", slog.Int64("itemId", itemID), slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// ClearCart godoc
//
//	@Summary	Remove every item
//	@Tags		Carts
//	@Produce	json
//	@Param		token	path		string	true	"Cart token"
//	@Success	200		{object}	models.Cart
//	@Failure	404		{object}	response.ErrorResponse	"Cart not found"
//	@Router		/carts/{token}/items [delete]
func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		cart, err := h.cartService.ClearCart(r.Context(), token)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// MergeCarts godoc
//
//	@Summary		Merge a cart into the caller's cart
//	@Description	Moves every item of the path cart into the destination cart, summing quantities, then deletes the path cart.
//	@Tags			Carts
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string						true	"Source cart token"
//	@Param			merge	body		models.MergeCartsRequest	true	"Destination cart"
//	@Success		200		{object}	models.Cart					"Destination cart after the merge"
//	@Failure		400		{object}	response.ErrorResponse		"Same cart or invalid input"
//	@Failure		401		{object}	response.ErrorResponse		"Authentication required"
//	@Failure		403		{object}	response.ErrorResponse		"Destination cart belongs to someone else"
//	@Failure		404		{object}	response.ErrorResponse		"Cart not found"
//	@Security		BearerAuth
//	@Router			/carts/{token}/merge [post]
func (h *CartHandler) MergeCarts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Unauthorized cart merge attempt")
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		source, err := pathValue(r, "token")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.MergeCartsRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		destination, err := h.cartService.GetCart(r.Context(), req.DestinationToken)
		if err != nil {
			response.Error(w, err)

			return
		}

		if destination.UserID == nil || *destination.UserID != claims.UserID {
			logger.Warn("Attempted to merge into another user's cart", slog.String("destinationToken", req.DestinationToken))
			response.Error(w, errors.ForbiddenError("You do not have permission to modify this cart"))

			return
		}

		merged, err := h.cartService.MergeCarts(r.Context(), source, req.DestinationToken)
		if err != nil {
			logger.Error("Failed to merge carts", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Carts merged", slog.String("sourceToken", source), slog.String("destinationToken", merged.Token))
		response.Success(w, http.StatusOK, merged)
	}
}
