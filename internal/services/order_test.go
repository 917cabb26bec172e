package service_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{13}-\d{3}$`)

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Totals, Stock And Cart", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 5)
		b := testutils.SeedProduct(t, f.store, "b", "30.00", 1)
		cart := f.sessionCart(t)
		f.add(t, cart.Token, a, 2)
		f.add(t, cart.Token, b, 1)

		// Act
		order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{
			CartToken:       cart.Token,
			ShippingAddress: shippingAddress(),
		})

		// Assert
		require.NoError(t, err)
		assert.Regexp(t, orderNumberPattern, order.OrderNumber)
		assert.Equal(t, models.OrderSourceCart, order.Source)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, "50.00", order.Subtotal.StringFixed(2))
		assert.Equal(t, "5.00", order.Tax.StringFixed(2))
		assert.Equal(t, "10.00", order.Shipping.StringFixed(2))
		assert.Equal(t, "65.00", order.Total.StringFixed(2))
		require.Len(t, order.Items, 2)
		assert.Equal(t, "SKU-a", order.Items[0].SKU)
		assert.Equal(t, "20.00", order.Items[0].LineTotal.StringFixed(2))

		assert.Equal(t, int64(3), f.stock(t, a))
		assert.Equal(t, int64(0), f.stock(t, b))

		after, err := f.carts.GetCart(ctx, cart.Token)
		require.NoError(t, err, "the cart row survives placement")
		assert.Empty(t, after.Items)
	})

	t.Run("Success - Round Trip By Order Number", func(t *testing.T) {
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "33.33", 10)
		cart := f.add(t, f.sessionCart(t).Token, a, 3)

		placed, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})
		require.NoError(t, err)

		fetched, err := f.orders.GetOrderByNumber(ctx, placed.OrderNumber)

		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, placed.Subtotal.StringFixed(2), fetched.Subtotal.StringFixed(2))
		assert.Equal(t, placed.Tax.StringFixed(2), fetched.Tax.StringFixed(2))
		assert.Equal(t, placed.Shipping.StringFixed(2), fetched.Shipping.StringFixed(2))
		assert.Equal(t, placed.Total.StringFixed(2), fetched.Total.StringFixed(2))
		assert.Equal(t, "GB", fetched.ShippingAddress.Country)
		assert.Len(t, fetched.Items, 1)
	})

	t.Run("Success - Prices Re-snapshotted At Placement", func(t *testing.T) {
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 10)
		cart := f.add(t, f.sessionCart(t).Token, a, 2)
		f.exec(t, `UPDATE products SET price = ? WHERE id = ?`, "12.00", a.ID)

		order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

		require.NoError(t, err)
		assert.Equal(t, "12.00", order.Items[0].UnitPrice.StringFixed(2))
		assert.Equal(t, "24.00", order.Subtotal.StringFixed(2))
	})

	t.Run("Success - Owner Taken From Cart", func(t *testing.T) {
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 10)
		userID := uuid.New()
		cart, err := f.carts.GetOrCreateUserCart(ctx, userID)
		require.NoError(t, err)
		f.add(t, cart.Token, a, 1)

		order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

		require.NoError(t, err)
		require.NotNil(t, order.UserID)
		assert.Equal(t, userID, *order.UserID)
	})

	t.Run("Success - Address Markup Stripped", func(t *testing.T) {
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 10)
		cart := f.add(t, f.sessionCart(t).Token, a, 1)
		addr := shippingAddress()
		addr.Street = `<script>alert(1)</script>12 O'Neil & Sons Way`

		order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: addr})

		require.NoError(t, err)
		assert.Equal(t, "12 O'Neil & Sons Way", order.ShippingAddress.Street)
	})

	t.Run("Failure - Atomic When Second Item Lacks Stock", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 5)
		b := testutils.SeedProduct(t, f.store, "b", "20.00", 3)
		cart := f.sessionCart(t)
		f.add(t, cart.Token, a, 2)
		f.add(t, cart.Token, b, 2)
		f.exec(t, `UPDATE products SET stock_quantity = ? WHERE id = ?`, 1, b.ID)

		// Act
		order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

		// Assert
		assert.Nil(t, order)
		appErr := assertAppError(t, err, appErrors.ErrCodeInsufficientStock)
		assert.Equal(t, int64(1), appErr.Available)
		assert.Contains(t, appErr.Message, b.Name)

		assert.Equal(t, int64(5), f.stock(t, a))
		assert.Equal(t, int64(1), f.stock(t, b))

		after, err := f.carts.GetCart(ctx, cart.Token)
		require.NoError(t, err)
		assert.Len(t, after.Items, 2)

		var orders int
		require.NoError(t, f.repo.DB.Get(&orders, `SELECT COUNT(*) FROM orders`))
		assert.Zero(t, orders)
	})

	t.Run("Failure - Empty Cart", func(t *testing.T) {
		f := newFixture(t)
		cart := f.sessionCart(t)

		_, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

		assertAppError(t, err, appErrors.ErrCodeCartEmpty)
	})

	t.Run("Failure - Unknown Cart", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: uuid.NewString(), ShippingAddress: shippingAddress()})

		appErr := assertAppError(t, err, appErrors.ErrCodeNotFound)
		assert.Equal(t, "Cart not found", appErr.Message)
	})

	t.Run("Failure - Product Deactivated After Add", func(t *testing.T) {
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 5)
		cart := f.add(t, f.sessionCart(t).Token, a, 1)
		f.exec(t, `UPDATE products SET is_active = ? WHERE id = ?`, false, a.ID)

		_, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

		assertAppError(t, err, appErrors.ErrCodeNotFound)
		assert.Equal(t, int64(5), f.stock(t, a))
	})
}

func TestCreateExternalOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Price Override", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		customer := testutils.SeedCustomer(t, f.store, "buyer@example.com")
		testutils.SeedProduct(t, f.store, "a", "10.00", 10)
		testutils.SeedProduct(t, f.store, "b", "50.00", 10)
		override := decimal.RequireFromString("45.00")

		// Act
		order, err := f.orders.CreateExternalOrder(ctx, &models.CreateExternalOrderRequest{
			CustomerID: customer.ID,
			Items: []models.ExternalOrderItem{
				{ProductSlug: "a", Quantity: 1},
				{ProductSlug: "b", Quantity: 2, PriceOverride: &override},
			},
			ShippingAddress: shippingAddress(),
		})

		// Assert
		require.NoError(t, err)
		assert.Regexp(t, `^EXT-\d{13}-\d{3}$`, order.OrderNumber)
		assert.Equal(t, models.OrderSourceExternal, order.Source)
		assert.Equal(t, customer.ID, *order.UserID)
		assert.Equal(t, "100.00", order.Subtotal.StringFixed(2))
		assert.Equal(t, "10.00", order.Tax.StringFixed(2))
		assert.Equal(t, "0.00", order.Shipping.StringFixed(2))
		assert.Equal(t, "110.00", order.Total.StringFixed(2))
		assert.Equal(t, "45.00", order.Items[1].UnitPrice.StringFixed(2))
	})

	t.Run("Success - Supplied Order Number", func(t *testing.T) {
		f := newFixture(t)
		customer := testutils.SeedCustomer(t, f.store, "buyer@example.com")
		testutils.SeedProduct(t, f.store, "a", "10.00", 10)

		req := &models.CreateExternalOrderRequest{
			CustomerID:      customer.ID,
			OrderNumber:     "MKT-998877",
			Items:           []models.ExternalOrderItem{{ProductSlug: "a", Quantity: 1}},
			ShippingAddress: shippingAddress(),
		}

		order, err := f.orders.CreateExternalOrder(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "MKT-998877", order.OrderNumber)

		_, err = f.orders.CreateExternalOrder(ctx, req)
		assertAppError(t, err, appErrors.ErrCodeDuplicateEntry)
	})

	t.Run("Failure - Duplicate Product Lines Checked Together", func(t *testing.T) {
		f := newFixture(t)
		customer := testutils.SeedCustomer(t, f.store, "buyer@example.com")
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 3)

		_, err := f.orders.CreateExternalOrder(ctx, &models.CreateExternalOrderRequest{
			CustomerID:      customer.ID,
			Items:           []models.ExternalOrderItem{{ProductSlug: "a", Quantity: 2}, {ProductSlug: "a", Quantity: 2}},
			ShippingAddress: shippingAddress(),
		})

		assertAppError(t, err, appErrors.ErrCodeInsufficientStock)
		assert.Equal(t, int64(3), f.stock(t, a))
	})

	t.Run("Failure - Unknown Customer", func(t *testing.T) {
		f := newFixture(t)
		testutils.SeedProduct(t, f.store, "a", "10.00", 3)

		_, err := f.orders.CreateExternalOrder(ctx, &models.CreateExternalOrderRequest{
			CustomerID:      uuid.New(),
			Items:           []models.ExternalOrderItem{{ProductSlug: "a", Quantity: 1}},
			ShippingAddress: shippingAddress(),
		})

		appErr := assertAppError(t, err, appErrors.ErrCodeNotFound)
		assert.Equal(t, "Customer not found", appErr.Message)
	})

	t.Run("Failure - Unknown Slug", func(t *testing.T) {
		f := newFixture(t)
		customer := testutils.SeedCustomer(t, f.store, "buyer@example.com")
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 3)

		_, err := f.orders.CreateExternalOrder(ctx, &models.CreateExternalOrderRequest{
			CustomerID:      customer.ID,
			Items:           []models.ExternalOrderItem{{ProductSlug: "a", Quantity: 1}, {ProductSlug: "ghost", Quantity: 1}},
			ShippingAddress: shippingAddress(),
		})

		appErr := assertAppError(t, err, appErrors.ErrCodeNotFound)
		assert.Contains(t, appErr.Message, "ghost")
		assert.Equal(t, int64(3), f.stock(t, a))
	})
}

func TestOrderNumbers(t *testing.T) {
	ctx := context.Background()

	t.Run("Format From Injected Clock And Random", func(t *testing.T) {
		gen := &service.OrderNumberGenerator{
			Now:  func() time.Time { return time.UnixMilli(1_700_000_000_123) },
			Rand: func(int) int { return 7 },
		}

		assert.Equal(t, "ORD-1700000000123-007", gen.Next(service.CartOrderPrefix))
		assert.Equal(t, "EXT-1700000000123-007", gen.Next(service.ExternalOrderPrefix))
	})

	t.Run("Same Millisecond Does Not Collide", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		a := testutils.SeedProduct(t, f.store, "a", "1.00", 10)
		orders := service.NewOrderService(f.store, cache.NewNoopCache(), pricing.Default(), nil,
			&service.OrderNumberGenerator{
				Now:  func() time.Time { return time.UnixMilli(1_700_000_000_000) },
				Rand: sequence(),
			}, time.Minute)

		seen := map[string]bool{}

		// Act
		for range 2 {
			cart := f.add(t, f.sessionCart(t).Token, a, 1)
			order, err := orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})
			require.NoError(t, err)

			seen[order.OrderNumber] = true
		}

		// Assert
		assert.Len(t, seen, 2)
	})
}

func sequence() func(int) int {
	var (
		mu sync.Mutex
		n  int
	)

	return func(limit int) int {
		mu.Lock()
		defer mu.Unlock()

		n++

		return n % limit
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutils.SeedProduct(t, f.store, "a", "10.00", 10)
	cart := f.add(t, f.sessionCart(t).Token, a, 1)
	placed, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})
	require.NoError(t, err)

	t.Run("Success - Any Transition Allowed", func(t *testing.T) {
		tracking := "1Z999"

		shipped, err := f.orders.UpdateOrderStatus(ctx, placed.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusShipped, TrackingNumber: &tracking})
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, shipped.Status)
		assert.Equal(t, tracking, *shipped.TrackingNumber)

		back, err := f.orders.UpdateOrderStatus(ctx, placed.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusPending})
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, back.Status)
		assert.Equal(t, tracking, *back.TrackingNumber, "tracking number kept when omitted")
	})

	t.Run("Failure - Unknown Order", func(t *testing.T) {
		_, err := f.orders.UpdateOrderStatus(ctx, placed.ID+100, &models.UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})

		assertAppError(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Failure - Unknown Status", func(t *testing.T) {
		_, err := f.orders.UpdateOrderStatus(ctx, placed.ID, &models.UpdateOrderStatusRequest{Status: "lost"})

		assertAppError(t, err, appErrors.ErrCodeValidation)
	})
}

func TestOrderQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("Missing Order Number Is Nil", func(t *testing.T) {
		order, err := f.orders.GetOrderByNumber(ctx, "ORD-0-000")

		assert.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("User Orders Newest First", func(t *testing.T) {
		a := testutils.SeedProduct(t, f.store, "a", "10.00", 10)
		userID := uuid.New()

		none, err := f.orders.GetUserOrders(ctx, userID)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		var placed []string
		for range 2 {
			cart, err := f.carts.GetOrCreateUserCart(ctx, userID)
			require.NoError(t, err)
			f.add(t, cart.Token, a, 1)

			order, err := f.orders.CreateOrder(ctx, &models.CreateOrderRequest{UserID: &userID, CartToken: cart.Token, ShippingAddress: shippingAddress()})
			require.NoError(t, err)

			placed = append(placed, order.OrderNumber)
		}

		orders, err := f.orders.GetUserOrders(ctx, userID)

		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, placed[1], orders[0].OrderNumber)
		assert.Equal(t, placed[0], orders[1].OrderNumber)
		assert.Len(t, orders[0].Items, 1)
	})
}

type recordingNotifier struct {
	sent chan string
}

func (r *recordingNotifier) SendOrderConfirmation(_ context.Context, order *models.Order, recipient string) error {
	r.sent <- order.OrderNumber + " " + recipient

	return nil
}

func TestOrderConfirmationDispatched(t *testing.T) {
	// Arrange
	f := newFixture(t)
	notifier := &recordingNotifier{sent: make(chan string, 1)}
	orders := service.NewOrderService(f.store, cache.NewNoopCache(), pricing.Default(), notifier, nil, time.Minute)

	customer := testutils.SeedCustomer(t, f.store, "buyer@example.com")
	testutils.SeedProduct(t, f.store, "a", "10.00", 10)

	// Act
	order, err := orders.CreateExternalOrder(context.Background(), &models.CreateExternalOrderRequest{
		CustomerID:      customer.ID,
		Items:           []models.ExternalOrderItem{{ProductSlug: "a", Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	// Assert
	select {
	case got := <-notifier.sent:
		assert.Equal(t, order.OrderNumber+" buyer@example.com", got)
	case <-time.After(5 * time.Second):
		t.Fatal("order confirmation was not dispatched")
	}
}

// staleStockStore reports inflated stock on reads so placement passes
// validation and only the conditional decrement sees the real quantity, as
// when a concurrent order takes the stock in between.
type staleStockStore struct {
	repository.Store
}

func (s staleStockStore) Products() repository.ProductRepository {
	return staleStockProducts{s.Store.Products()}
}

func (s staleStockStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(staleStockStore{tx})
	})
}

type staleStockProducts struct {
	repository.ProductRepository
}

func (p staleStockProducts) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := p.ProductRepository.GetProductByID(ctx, id)
	if err == nil {
		product.StockQuantity = 1000
	}

	return product, err
}

func TestCreateOrderRollsBackOnLostStockRace(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	a := testutils.SeedProduct(t, f.store, "a", "10.00", 5)
	b := testutils.SeedProduct(t, f.store, "b", "20.00", 3)
	cart := f.sessionCart(t)
	f.add(t, cart.Token, a, 2)
	f.add(t, cart.Token, b, 2)
	f.exec(t, `UPDATE products SET stock_quantity = ? WHERE id = ?`, 1, b.ID)

	orders := service.NewOrderService(staleStockStore{f.store}, cache.NewNoopCache(), pricing.Default(), nil, nil, time.Minute)

	// Act
	order, err := orders.CreateOrder(ctx, &models.CreateOrderRequest{CartToken: cart.Token, ShippingAddress: shippingAddress()})

	// Assert
	assert.Nil(t, order)
	appErr := assertAppError(t, err, appErrors.ErrCodeInsufficientStock)
	assert.Equal(t, int64(1), appErr.Available)
	assert.Contains(t, appErr.Message, b.Name)

	assert.Equal(t, int64(5), f.stock(t, a), "first decrement must be rolled back")
	assert.Equal(t, int64(1), f.stock(t, b))

	var orderRows, itemRows int
	require.NoError(t, f.repo.DB.Get(&orderRows, `SELECT COUNT(*) FROM orders`))
	require.NoError(t, f.repo.DB.Get(&itemRows, `SELECT COUNT(*) FROM order_items`))
	assert.Zero(t, orderRows)
	assert.Zero(t, itemRows)

	after, err := f.carts.GetCart(ctx, cart.Token)
	require.NoError(t, err)
	assert.Len(t, after.Items, 2)
}
