package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CustomerService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Customer, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type customerService struct {
	store       repository.Store
	rateLimiter repository.RateLimitRepository
	carts       CartService
	jwtKey      []byte
	jwtExpiry   time.Duration
}

func NewCustomerService(store repository.Store, rateLimiter repository.RateLimitRepository, carts CartService, jwtKey []byte, jwtExpiry time.Duration) CustomerService {
	return &customerService{
		store:       store,
		rateLimiter: rateLimiter,
		carts:       carts,
		jwtKey:      jwtKey,
		jwtExpiry:   jwtExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *customerService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Customer, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("Failed to secure password").WithError(err)
	}

	customer := &models.Customer{
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hashedPassword),
	}

	if err := s.store.Customers().CreateCustomer(ctx, customer); err != nil {
		if stdErrors.Is(err, repository.ErrDuplicateEntry) {
			return nil, errors.DuplicateEntryError("Email already registered").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to create customer").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Customer registered", slog.String("customerId", customer.ID.String()))

	return customer, nil
}

func (s *customerService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	logger := middleware.LoggerFromContext(ctx)
	email := normalizeEmail(req.Email)

	allowed, remaining, retryAfter, err := s.rateLimiter.CheckLoginRateLimit(ctx, email)
	if err != nil {
		return nil, errors.ThirdPartyError("Rate limit check failed").WithError(err)
	}

	if !allowed {
		return nil, errors.TooManyRequestsError("Too many login attempts. Please try again later.").
			WithDetail(fmt.Sprintf("retry_after=%d", retryAfter))
	}

	customer, err := s.store.Customers().GetCustomerByEmail(ctx, email)
	if err != nil && !stdErrors.Is(err, sql.ErrNoRows) {
		return nil, errors.DatabaseError("Failed to fetch customer").WithError(err)
	}

	if customer == nil || bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.UnauthorizedError("Invalid email or password").
			WithDetail(fmt.Sprintf("remaining_attempts=%d", remaining))
	}

	now := time.Now()
	claims := &models.Claims{
		UserID: customer.ID,
		Email:  customer.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customer.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return nil, errors.InternalError("Failed to generate authentication token").WithError(err)
	}

	resp := &models.LoginResponse{
		Token:     tokenString,
		ExpiresIn: int(s.jwtExpiry.Seconds()),
	}

	if req.GuestCartToken != "" {
		cartToken, err := s.adoptGuestCart(ctx, customer.ID, req.GuestCartToken)
		if err != nil {
			// the login itself succeeded; the guest cart stays where it was
			logger.Warn("Guest cart merge failed", slog.String("guestCartToken", req.GuestCartToken), slog.String("error", err.Error()))
		}

		resp.CartToken = cartToken
	}

	logger.Info("Customer logged in", slog.String("customerId", customer.ID.String()))

	return resp, nil
}

// adoptGuestCart merges the guest cart into the customer's cart and returns
// the customer's cart token.
func (s *customerService) adoptGuestCart(ctx context.Context, customerID uuid.UUID, guestToken string) (string, error) {
	userCart, err := s.carts.GetOrCreateUserCart(ctx, customerID)
	if err != nil {
		return "", err
	}

	if userCart.Token == guestToken {
		return userCart.Token, nil
	}

	if _, err := s.carts.MergeCarts(ctx, guestToken, userCart.Token); err != nil {
		return userCart.Token, err
	}

	return userCart.Token, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.store.Customers().GetCustomerByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Customer not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch customer").WithError(err)
	}

	return customer, nil
}
