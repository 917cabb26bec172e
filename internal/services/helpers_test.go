package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *repository.Repository
	store  repository.Store
	carts  service.CartService
	orders service.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := testutils.NewSQLiteRepository(t)
	store := repo.Store()
	c := cache.NewNoopCache()

	return &fixture{
		repo:   repo,
		store:  store,
		carts:  service.NewCartService(store, c, pricing.Default(), time.Minute),
		orders: service.NewOrderService(store, c, pricing.Default(), nil, nil, time.Minute),
	}
}

func (f *fixture) sessionCart(t *testing.T) *models.Cart {
	t.Helper()

	session := "sess-" + t.Name()
	cart, err := f.carts.CreateCart(context.Background(), &models.CreateCartRequest{SessionID: &session})
	require.NoError(t, err)

	return cart
}

func (f *fixture) add(t *testing.T, token string, product *models.Product, quantity int) *models.Cart {
	t.Helper()

	cart, err := f.carts.AddItem(context.Background(), token, &models.AddItemRequest{ProductID: product.ID, Quantity: quantity})
	require.NoError(t, err)

	return cart
}

func (f *fixture) stock(t *testing.T, product *models.Product) int64 {
	t.Helper()

	stock, err := f.store.Products().CurrentStock(context.Background(), product.ID)
	require.NoError(t, err)

	return stock
}

// exec runs raw SQL to move catalog state underneath the services.
func (f *fixture) exec(t *testing.T, query string, args ...any) {
	t.Helper()

	_, err := f.repo.DB.Exec(f.repo.DB.Rebind(query), args...)
	require.NoError(t, err)
}

func assertAppError(t *testing.T, err error, code string) *appErrors.AppError {
	t.Helper()

	require.Error(t, err)

	appErr, ok := appErrors.IsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)

	return appErr
}

func shippingAddress() models.Address {
	return models.Address{
		Name:       "Ada Lovelace",
		Street:     "12 Analytical Row",
		City:       "London",
		State:      "LDN",
		PostalCode: "N1 9GU",
		Country:    "GB",
	}
}
