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

type CustomerHandler struct {
	customerService service.CustomerService
	validator       *validator.Validate
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, validator: validator.New()}
}

// Register godoc
//
//	@Summary	Register a customer
//	@Tags		Customers
//	@Accept		json
//	@Produce	json
//	@Param		customer	body		models.RegisterRequest	true	"Registration details"
//	@Success	201			{object}	models.Customer
//	@Failure	400			{object}	response.ErrorResponse	"Validation error"
//	@Failure	409			{object}	response.ErrorResponse	"Email already registered"
//	@Router		/customers/register [post]
func (h *CustomerHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.RegisterRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		customer, err := h.customerService.Register(r.Context(), &req)
		if err != nil {
			logger.Warn("Customer registration failed", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, customer)
	}
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Issues a bearer token. A guest_cart_token is merged into the customer's cart and the resulting cart token is returned.
//	@Tags			Customers
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		models.LoginRequest	true	"Email and password"
//	@Success		200			{object}	models.LoginResponse
//	@Failure		401			{object}	response.ErrorResponse	"Invalid credentials"
//	@Failure		429			{object}	response.ErrorResponse	"Too many attempts"
//	@Router			/customers/login [post]
func (h *CustomerHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		resp, err := h.customerService.Login(r.Context(), &req)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("Login failed", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, resp)
	}
}

// Profile godoc
//
//	@Summary	Get the signed-in customer
//	@Tags		Customers
//	@Produce	json
//	@Success	200	{object}	models.Customer
//	@Failure	401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure	404	{object}	response.ErrorResponse	"Customer not found"
//	@Security	BearerAuth
//	@Router		/customers/me [get]
func (h *CustomerHandler) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		customer, err := h.customerService.GetCustomer(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, customer)
	}
}
