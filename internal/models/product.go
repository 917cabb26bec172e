package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64     `json:"id" db:"id"`
	Slug          string    `json:"slug" db:"slug"`
	SKU           string    `json:"sku" db:"sku"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description,omitempty" db:"description"`
	Price         Money     `json:"price" db:"price"`
	StockQuantity int64     `json:"stock_quantity" db:"stock_quantity"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type CreateProductRequest struct {
	Slug          string          `json:"slug" validate:"required,min=2,max=200"`
	SKU           string          `json:"sku" validate:"required,min=3,max=50"`
	Name          string          `json:"name" validate:"required,min=3,max=200"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int64           `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool           `json:"is_active,omitempty"`
}
