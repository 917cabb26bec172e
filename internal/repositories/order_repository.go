package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, trackingNumber *string) error
}

type orderRepository struct {
	db sqlx.ExtContext
}

func NewOrderRepo(db sqlx.ExtContext) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, cart_id, source, status, tracking_number,
	subtotal, tax, shipping, total, shipping_address, billing_address, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, product_name, sku, quantity, unit_price, line_total`

// CreateOrder writes the header and then every item, in order.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO orders (order_number, user_id, cart_id, source, status, tracking_number,
			subtotal, tax, shipping, total, shipping_address, billing_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(dbCtx, query,
		order.OrderNumber, order.UserID, order.CartID, order.Source, order.Status, order.TrackingNumber,
		order.Subtotal, order.Tax, order.Shipping, order.Total, order.ShippingAddress, order.BillingAddress,
		now, now).Scan(&order.ID)
	if err != nil {
		return wrapWriteErr("failed to insert order", err)
	}

	order.CreatedAt, order.UpdatedAt = now, now

	itemQuery := r.db.Rebind(`
		INSERT INTO order_items (order_id, product_id, product_name, sku, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err := r.db.QueryRowxContext(dbCtx, itemQuery,
			item.OrderID, item.ProductID, item.ProductName, item.SKU, item.Quantity, item.UnitPrice, item.LineTotal).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.getOrder(ctx, `id = ?`, id)
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getOrder(ctx, `order_number = ?`, orderNumber)
}

func (r *orderRepository) getOrder(ctx context.Context, where string, arg any) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{}
	query := r.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE ` + where)

	if err := sqlx.GetContext(dbCtx, r.db, order, query, arg); err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	itemQuery := r.db.Rebind(`SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ? ORDER BY id`)

	if err := sqlx.SelectContext(dbCtx, r.db, &items, itemQuery, order.ID); err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	order.Items = items

	return order, nil
}

// ListOrdersByUser returns the customer's orders newest first, items included.
func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	orders := []models.Order{}
	query := r.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`)

	if err := sqlx.SelectContext(dbCtx, r.db, &orders, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))

	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	inQuery, args, err := sqlx.In(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id IN (?) ORDER BY order_id, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build order items query: %w", err)
	}

	items := []models.OrderItem{}
	if err := sqlx.SelectContext(dbCtx, r.db, &items, r.db.Rebind(inQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	return orders, nil
}

// UpdateStatus keeps the existing tracking number when none is given.
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, trackingNumber *string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`
		UPDATE orders SET status = ?, tracking_number = COALESCE(?, tracking_number), updated_at = ?
		WHERE id = ?`)

	result, err := r.db.ExecContext(dbCtx, query, status, trackingNumber, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return expectAffected(result)
}
