package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	CreateExternalOrder(ctx context.Context, req *models.CreateExternalOrderRequest) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, req *models.UpdateOrderStatusRequest) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

// OrderNotifier is told about every committed order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order, recipient string) error
}

// Placement stages, in order.
const (
	StageInitiated        = "initiated"
	StageItemsResolved    = "items_resolved"
	StageStockValidated   = "stock_validated"
	StagePersisted        = "persisted"
	StageStockDecremented = "stock_decremented"
	StageCartCleared      = "cart_cleared"
	StageCommitted        = "committed"
)

var errOrderNotFound = stdErrors.New("order not found")

type orderService struct {
	store     repository.Store
	cache     *cache.Loader
	calc      *pricing.Calculator
	numbers   *OrderNumberGenerator
	notifier  OrderNotifier
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	cacheTTL  time.Duration
}

// NewOrderService wires the placement engine. A nil notifier disables
// confirmation emails; a nil generator uses the wall clock.
func NewOrderService(store repository.Store, c cache.Cache, calc *pricing.Calculator, notifier OrderNotifier, numbers *OrderNumberGenerator, cacheTTL time.Duration) OrderService {
	if numbers == nil {
		numbers = NewOrderNumberGenerator()
	}

	return &orderService{
		store:     store,
		cache:     cache.NewLoader(c),
		calc:      calc,
		numbers:   numbers,
		notifier:  notifier,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/aaravmahajanofficial/storefront/internal/services"),
		cacheTTL:  cacheTTL,
	}
}

// placementLine is one resolved line priced at placement time.
type placementLine struct {
	product  *models.Product
	quantity int
	price    decimal.Decimal
}

type placement struct {
	source      models.OrderSource
	orderNumber string
	userID      *uuid.UUID
	cartID      *int64
	lines       []placementLine
	shipping    models.Address
	billing     *models.Address
}

func (s *orderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	var (
		order     *models.Order
		cartToken = req.CartToken
	)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		s.stage(ctx, span, StageInitiated)

		cart, err := tx.Carts().GetCartByToken(ctx, req.CartToken)
		if err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Cart not found").WithError(err)
			}

			return errors.DatabaseError("Failed to fetch cart").WithError(err)
		}

		items, err := tx.Carts().GetItems(ctx, cart.ID)
		if err != nil {
			return errors.DatabaseError("Failed to load cart items").WithError(err)
		}

		if len(items) == 0 {
			return errors.CartEmptyError("Cannot create order with empty cart")
		}

		lines := make([]placementLine, 0, len(items))
		for _, item := range items {
			product, err := tx.Products().GetProductByID(ctx, item.ProductID)
			if err != nil {
				if stdErrors.Is(err, sql.ErrNoRows) {
					return errors.NotFoundError(fmt.Sprintf("Product '%s' is no longer available", item.ProductName)).WithError(err)
				}

				return errors.DatabaseError("Failed to fetch product").WithError(err)
			}

			// current catalog price, not the snapshot taken when the item was added
			lines = append(lines, placementLine{product: product, quantity: item.Quantity, price: product.Price.Decimal})
		}

		userID := req.UserID
		if userID == nil {
			userID = cart.UserID
		}

		order, err = s.place(ctx, span, tx, &placement{
			source:      models.OrderSourceCart,
			orderNumber: s.numbers.Next(CartOrderPrefix),
			userID:      userID,
			cartID:      &cart.ID,
			lines:       lines,
			shipping:    req.ShippingAddress,
			billing:     req.BillingAddress,
		})
		if err != nil {
			return err
		}

		if err := tx.Carts().ClearItems(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to clear cart").WithError(err)
		}

		if err := tx.Carts().TouchCart(ctx, cart.ID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		s.stage(ctx, span, StageCartCleared)

		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	s.committed(ctx, span, order, cartToken)

	return order, nil
}

func (s *orderService) CreateExternalOrder(ctx context.Context, req *models.CreateExternalOrderRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateExternalOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, s.fail(ctx, span, errors.ValidationError("At least one item is required"))
	}

	var order *models.Order

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		s.stage(ctx, span, StageInitiated)

		customer, err := tx.Customers().GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			if stdErrors.Is(err, sql.ErrNoRows) {
				return errors.NotFoundError("Customer not found").WithError(err)
			}

			return errors.DatabaseError("Failed to fetch customer").WithError(err)
		}

		lines := make([]placementLine, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity < 1 {
				return errors.AddValidationError("quantity", "must be at least 1").WithDetail("product_slug=" + item.ProductSlug)
			}

			product, err := tx.Products().GetProductBySlug(ctx, item.ProductSlug)
			if err != nil {
				if stdErrors.Is(err, sql.ErrNoRows) {
					return errors.NotFoundError(fmt.Sprintf("Product '%s' not found", item.ProductSlug)).WithError(err)
				}

				return errors.DatabaseError("Failed to fetch product").WithError(err)
			}

			price := product.Price.Decimal
			if item.PriceOverride != nil {
				if item.PriceOverride.IsNegative() {
					return errors.AddValidationError("price_override", "must not be negative").WithDetail("product_slug=" + item.ProductSlug)
				}

				price = *item.PriceOverride
			}

			lines = append(lines, placementLine{product: product, quantity: item.Quantity, price: price})
		}

		orderNumber := req.OrderNumber
		if orderNumber == "" {
			orderNumber = s.numbers.Next(ExternalOrderPrefix)
		}

		order, err = s.place(ctx, span, tx, &placement{
			source:      models.OrderSourceExternal,
			orderNumber: orderNumber,
			userID:      &customer.ID,
			lines:       lines,
			shipping:    req.ShippingAddress,
			billing:     req.BillingAddress,
		})

		return err
	})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	s.committed(ctx, span, order, "")

	return order, nil
}

// place runs the shared stages: stock validation, persistence and the stock
// decrement. It must be called inside a transaction.
func (s *orderService) place(ctx context.Context, span trace.Span, tx repository.Store, p *placement) (*models.Order, error) {
	s.stage(ctx, span, StageItemsResolved)

	requested, productIDs := aggregate(p.lines)

	for _, productID := range productIDs {
		r := requested[productID]
		if r.product.StockQuantity < int64(r.quantity) {
			metrics.RecordInsufficientStock()

			return nil, errors.InsufficientStockError(r.product.Name, r.product.StockQuantity)
		}
	}

	s.stage(ctx, span, StageStockValidated)

	priced := make([]pricing.Line, 0, len(p.lines))
	items := make([]models.OrderItem, 0, len(p.lines))

	for _, l := range p.lines {
		priced = append(priced, pricing.Line{Price: l.price, Quantity: l.quantity})
		items = append(items, models.OrderItem{
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			SKU:         l.product.SKU,
			Quantity:    l.quantity,
			UnitPrice:   models.NewMoney(l.price),
			LineTotal:   pricing.LineTotal(l.price, l.quantity),
		})
	}

	totals := s.calc.Compute(priced)

	billing := p.billing
	if billing != nil {
		b := s.sanitizeAddress(*billing)
		billing = &b
	}

	result := &models.Order{
		OrderNumber:     p.orderNumber,
		UserID:          p.userID,
		CartID:          p.cartID,
		Source:          p.source,
		Status:          models.OrderStatusPending,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		ShippingAddress: s.sanitizeAddress(p.shipping),
		BillingAddress:  billing,
		Items:           items,
	}

	if err := tx.Orders().CreateOrder(ctx, result); err != nil {
		if stdErrors.Is(err, repository.ErrDuplicateEntry) {
			return nil, errors.DuplicateEntryError("Order number already exists").WithDetail("order_number=" + p.orderNumber).WithError(err)
		}

		return nil, errors.DatabaseError("Failed to create order").WithError(err)
	}

	s.stage(ctx, span, StagePersisted)

	products := tx.Products()

	for _, productID := range productIDs {
		r := requested[productID]

		err := products.DecrementStock(ctx, productID, r.quantity)
		if err == nil {
			continue
		}

		if !stdErrors.Is(err, repository.ErrInsufficientStock) {
			return nil, errors.DatabaseError("Failed to update inventory").WithError(err)
		}

		// another placement took the stock after validation
		metrics.RecordInsufficientStock()

		available, stockErr := products.CurrentStock(ctx, productID)
		if stockErr != nil {
			return nil, errors.DatabaseError("Failed to read stock").WithError(stockErr)
		}

		return nil, errors.InsufficientStockError(r.product.Name, available).WithError(err)
	}

	s.stage(ctx, span, StageStockDecremented)

	return result, nil
}

type requestedStock struct {
	product  *models.Product
	quantity int
}

// aggregate sums quantities per product so a product listed twice is checked
// once against its full demand. The returned ids keep first-seen order.
func aggregate(lines []placementLine) (map[int64]*requestedStock, []int64) {
	requested := make(map[int64]*requestedStock, len(lines))
	ids := make([]int64, 0, len(lines))

	for _, l := range lines {
		r, ok := requested[l.product.ID]
		if !ok {
			r = &requestedStock{product: l.product}
			requested[l.product.ID] = r
			ids = append(ids, l.product.ID)
		}

		r.quantity += l.quantity
	}

	return requested, ids
}

// sanitizeAddress strips markup from every free-text field.
func (s *orderService) sanitizeAddress(a models.Address) models.Address {
	clean := func(v string) string {
		return html.UnescapeString(s.sanitizer.Sanitize(v))
	}

	return models.Address{
		Name:       clean(a.Name),
		Street:     clean(a.Street),
		City:       clean(a.City),
		State:      clean(a.State),
		PostalCode: clean(a.PostalCode),
		Country:    clean(a.Country),
	}
}

func (s *orderService) stage(ctx context.Context, span trace.Span, stage string) {
	span.AddEvent(stage)
	middleware.LoggerFromContext(ctx).Debug("Order placement stage", slog.String("stage", stage))
}

func (s *orderService) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	middleware.LoggerFromContext(ctx).Warn("Order placement failed", slog.String("error", err.Error()))

	return asAppError(err, "Failed to place order")
}

func (s *orderService) committed(ctx context.Context, span trace.Span, order *models.Order, cartToken string) {
	s.stage(ctx, span, StageCommitted)
	span.SetAttributes(
		attribute.String("order.number", order.OrderNumber),
		attribute.String("order.source", string(order.Source)),
		attribute.String("order.total", order.Total.StringFixed(2)),
	)

	middleware.LoggerFromContext(ctx).Info("Order placed",
		slog.String("orderNumber", order.OrderNumber),
		slog.String("source", string(order.Source)),
		slog.String("total", order.Total.StringFixed(2)))

	keys := []string{cache.Key(cache.OrderKeyPrefix, order.OrderNumber)}
	if cartToken != "" {
		keys = append(keys, cache.Key(cache.CartKeyPrefix, cartToken))
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}

	metrics.RecordOrderPlaced(string(order.Source), order.Total.InexactFloat64())

	if s.notifier != nil && order.UserID != nil {
		go s.notify(context.WithoutCancel(ctx), order)
	}
}

// notify runs after the response is sent; failures are only logged.
func (s *orderService) notify(ctx context.Context, order *models.Order) {
	logger := middleware.LoggerFromContext(ctx)

	customer, err := s.store.Customers().GetCustomerByID(ctx, *order.UserID)
	if err != nil {
		logger.Warn("No recipient for order confirmation", slog.String("orderNumber", order.OrderNumber), slog.String("error", err.Error()))

		return
	}

	if err := s.notifier.SendOrderConfirmation(ctx, order, customer.Email); err != nil {
		logger.Error("Order confirmation failed", slog.String("orderNumber", order.OrderNumber), slog.String("error", err.Error()))
	}
}

// UpdateOrderStatus applies no transition rules; any valid status may follow any other.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID int64, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, errors.AddValidationError("status", fmt.Sprintf("unknown order status '%s'", req.Status))
	}

	orders := s.store.Orders()

	if err := orders.UpdateStatus(ctx, orderID, req.Status, req.TrackingNumber); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to update order status").WithError(err)
	}

	order, err := orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if err := s.cache.Delete(ctx, cache.Key(cache.OrderKeyPrefix, order.OrderNumber)); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Order cache invalidation failed", slog.String("orderNumber", order.OrderNumber), slog.String("error", err.Error()))
	}

	middleware.LoggerFromContext(ctx).Info("Order status updated", slog.String("orderNumber", order.OrderNumber), slog.String("status", string(order.Status)))

	return order, nil
}

// GetOrderByNumber returns nil, nil when no order matches.
func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := cache.GetOrLoad(ctx, s.cache, cache.Key(cache.OrderKeyPrefix, orderNumber), s.cacheTTL,
		func(ctx context.Context) (*models.Order, error) {
			order, err := s.store.Orders().GetOrderByNumber(ctx, orderNumber)
			if stdErrors.Is(err, sql.ErrNoRows) {
				return nil, errOrderNotFound
			}

			return order, err
		})

	switch {
	case err == nil:
		return order, nil
	case stdErrors.Is(err, errOrderNotFound):
		return nil, nil
	default:
		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}
}

// GetUserOrders returns the user's orders newest first, or an empty slice.
func (s *orderService) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders, err := s.store.Orders().ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list orders").WithError(err)
	}

	return orders, nil
}
