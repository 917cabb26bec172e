package models

import (
	"time"

	"github.com/google/uuid"
)

// Totals are derived values; they are never persisted on the cart row.
type Totals struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Shipping Money `json:"shipping"`
	Total    Money `json:"total"`
}

type CartItem struct {
	ID          int64     `json:"id" db:"id"`
	CartID      int64     `json:"-" db:"cart_id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	ProductSlug string    `json:"product_slug" db:"product_slug"`
	ProductName string    `json:"product_name" db:"product_name"`
	SKU         string    `json:"sku" db:"sku"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   Money     `json:"unit_price" db:"unit_price"`
	LineTotal   Money     `json:"line_total" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Cart is owned by exactly one of UserID or SessionID.
type Cart struct {
	ID        int64      `json:"-" db:"id"`
	Token     string     `json:"token" db:"token"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	SessionID *string    `json:"session_id,omitempty" db:"session_id"`
	Items     []CartItem `json:"items" db:"-"`
	Totals    Totals     `json:"totals" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateCartRequest struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	SessionID *string    `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

type AddItemRequest struct {
	ProductSlug string `json:"product_slug,omitempty" validate:"required_without=ProductID,omitempty,max=200"`
	ProductID   int64  `json:"product_id,omitempty" validate:"required_without=ProductSlug,omitempty,gt=0"`
	Quantity    int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type MergeCartsRequest struct {
	DestinationToken string `json:"destination_token" validate:"required"`
}
