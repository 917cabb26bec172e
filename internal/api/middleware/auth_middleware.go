package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey uuid.UUID

var UserContextKey = contextKey(uuid.New())

type AuthMiddleware struct {
	jwtKey []byte
}

func NewAuthMiddleware(jwtKey []byte) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey}
}

// Authenticate rejects the request unless it carries a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := LoggerFromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header")
			response.Error(w, errors.UnauthorizedError("Authorization header is required"))

			return
		}

		claims, appErr := m.parse(r.Context(), authHeader)
		if appErr != nil {
			response.Error(w, appErr)

			return
		}

		next.ServeHTTP(w, r.WithContext(m.withClaims(r.Context(), claims)))
	}
}

// OptionalAuthenticate lets anonymous requests through. A header that is
// present must still hold a valid token.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)

			return
		}

		claims, appErr := m.parse(r.Context(), authHeader)
		if appErr != nil {
			response.Error(w, appErr)

			return
		}

		next.ServeHTTP(w, r.WithContext(m.withClaims(r.Context(), claims)))
	}
}

func (m *AuthMiddleware) parse(ctx context.Context, authHeader string) (*models.Claims, *errors.AppError) {
	logger := LoggerFromContext(ctx)

	// "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		logger.Warn("Invalid authorization header format")

		return nil, errors.UnauthorizedError("Invalid authorization format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			logger.Error("Unexpected signing method used in JWT", slog.Any("alg", t.Header["alg"]))

			return nil, errors.BadRequestError("unexpected signing method")
		}

		return m.jwtKey, nil
	})
	if err != nil {
		logger.Warn("JWT parsing failed", slog.String("error", err.Error()))

		return nil, errors.UnauthorizedError("Invalid or expired token")
	}

	if !token.Valid {
		logger.Warn("Invalid token")

		return nil, errors.UnauthorizedError("Invalid token")
	}

	return claims, nil
}

func (m *AuthMiddleware) withClaims(ctx context.Context, claims *models.Claims) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, claims)

	logger := LoggerFromContext(ctx).With(slog.String("userId", claims.UserID.String()))
	logger.Info("User authenticated")

	return WithLogger(ctx, logger)
}

// ClaimsFromContext returns the claims placed by Authenticate or OptionalAuthenticate.
func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok && claims != nil
}
