package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

const ServiceKeyHeader = "X-Service-Key"

type serviceContextKey struct{}

// ServiceAuth guards routes reserved for trusted back-office callers, such as
// marketplace connectors recording external orders.
type ServiceAuth struct {
	key []byte
}

// NewServiceAuth returns a guard for key. An empty key closes every guarded route.
func NewServiceAuth(key string) *ServiceAuth {
	return &ServiceAuth{key: []byte(key)}
}

func (s *ServiceAuth) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := LoggerFromContext(r.Context())

		if len(s.key) == 0 {
			logger.Warn("Service channel is not configured")
			response.Error(w, errors.ForbiddenError("Service channel is disabled"))

			return
		}

		presented := r.Header.Get(ServiceKeyHeader)
		if presented == "" {
			logger.Warn("Missing service key header")
			response.Error(w, errors.UnauthorizedError("Service key is required"))

			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), s.key) != 1 {
			logger.Warn("Invalid service key")
			response.Error(w, errors.UnauthorizedError("Invalid service key"))

			return
		}

		next.ServeHTTP(w, r.WithContext(WithServiceCaller(r.Context())))
	}
}

// WithServiceCaller marks ctx as coming from an authenticated service caller.
func WithServiceCaller(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, serviceContextKey{}, true)

	return WithLogger(ctx, LoggerFromContext(ctx).With(slog.String("caller", "service")))
}

func IsServiceCaller(ctx context.Context) bool {
	ok, _ := ctx.Value(serviceContextKey{}).(bool)

	return ok
}
