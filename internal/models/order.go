package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

type OrderSource string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	OrderSourceCart     OrderSource = "cart"
	OrderSourceExternal OrderSource = "external"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}

	return false
}

type Address struct {
	Name       string `json:"name,omitempty" validate:"omitempty,max=200"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// Value stores the address as JSON text so it fits both JSONB and TEXT columns.
func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported address type %T", src)
	}
}

// OrderItem is an immutable snapshot taken when the order was placed.
type OrderItem struct {
	ID          int64  `json:"id" db:"id"`
	OrderID     int64  `json:"-" db:"order_id"`
	ProductID   int64  `json:"product_id" db:"product_id"`
	ProductName string `json:"product_name" db:"product_name"`
	SKU         string `json:"sku" db:"sku"`
	Quantity    int    `json:"quantity" db:"quantity"`
	UnitPrice   Money  `json:"unit_price" db:"unit_price"`
	LineTotal   Money  `json:"line_total" db:"line_total"`
}

type Order struct {
	ID              int64       `json:"id" db:"id"`
	OrderNumber     string      `json:"order_number" db:"order_number"`
	UserID          *uuid.UUID  `json:"user_id,omitempty" db:"user_id"`
	CartID          *int64      `json:"-" db:"cart_id"`
	Source          OrderSource `json:"source" db:"source"`
	Status          OrderStatus `json:"status" db:"status"`
	TrackingNumber  *string     `json:"tracking_number,omitempty" db:"tracking_number"`
	Subtotal        Money       `json:"subtotal" db:"subtotal"`
	Tax             Money       `json:"tax" db:"tax"`
	Shipping        Money       `json:"shipping" db:"shipping"`
	Total           Money       `json:"total" db:"total"`
	ShippingAddress Address     `json:"shipping_address" db:"shipping_address"`
	BillingAddress  *Address    `json:"billing_address,omitempty" db:"billing_address"`
	Items           []OrderItem `json:"items" db:"-"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Totals returns the monetary snapshot stored on the order.
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, Tax: o.Tax, Shipping: o.Shipping, Total: o.Total}
}

type CreateOrderRequest struct {
	UserID          *uuid.UUID `json:"-"`
	CartToken       string     `json:"cart_token" validate:"required"`
	ShippingAddress Address    `json:"shipping_address" validate:"required"`
	BillingAddress  *Address   `json:"billing_address,omitempty" validate:"omitempty"`
}

type ExternalOrderItem struct {
	ProductSlug   string           `json:"product_slug" validate:"required"`
	Quantity      int              `json:"quantity" validate:"required,min=1"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
}

type CreateExternalOrderRequest struct {
	CustomerID      uuid.UUID           `json:"customer_id" validate:"required"`
	OrderNumber     string              `json:"order_number,omitempty" validate:"omitempty,max=64"`
	Items           []ExternalOrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address             `json:"shipping_address" validate:"required"`
	BillingAddress  *Address            `json:"billing_address,omitempty" validate:"omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	TrackingNumber *string     `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
}
