// Package pricing derives the monetary totals shared by carts and orders.
package pricing

import (
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

type Line struct {
	Price    decimal.Decimal
	Quantity int
}

type Calculator struct {
	TaxRate           decimal.Decimal
	ShippingThreshold decimal.Decimal
	FlatShipping      decimal.Decimal
}

func NewCalculator(cfg config.Pricing) *Calculator {
	return &Calculator{
		TaxRate:           decimal.NewFromFloat(cfg.TaxRate),
		ShippingThreshold: decimal.NewFromFloat(cfg.ShippingThreshold),
		FlatShipping:      decimal.NewFromFloat(cfg.FlatShippingCost),
	}
}

// Default uses a 10% tax rate and a flat 10.00 shipping fee below 100.00.
func Default() *Calculator {
	return &Calculator{
		TaxRate:           decimal.RequireFromString("0.10"),
		ShippingThreshold: decimal.NewFromInt(100),
		FlatShipping:      decimal.NewFromInt(10),
	}
}

// Compute rounds the subtotal once, after summing unrounded line amounts.
// The shipping threshold is inclusive.
func (c *Calculator) Compute(lines []Line) models.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	subtotal = subtotal.Round(moneyPlaces)
	tax := subtotal.Mul(c.TaxRate).Round(moneyPlaces)

	shipping := c.FlatShipping.Round(moneyPlaces)
	if subtotal.GreaterThanOrEqual(c.ShippingThreshold) {
		shipping = decimal.Zero
	}

	return models.Totals{
		Subtotal: models.NewMoney(subtotal),
		Tax:      models.NewMoney(tax),
		Shipping: models.NewMoney(shipping),
		Total:    models.NewMoney(subtotal.Add(tax).Add(shipping)),
	}
}

func (c *Calculator) ForCartItems(items []models.CartItem) models.Totals {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Price: it.UnitPrice.Decimal, Quantity: it.Quantity})
	}

	return c.Compute(lines)
}

func (c *Calculator) ForOrderItems(items []models.OrderItem) models.Totals {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Price: it.UnitPrice.Decimal, Quantity: it.Quantity})
	}

	return c.Compute(lines)
}

// LineTotal is the rounded extension of one line.
func LineTotal(price decimal.Decimal, quantity int) models.Money {
	return models.NewMoney(price.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyPlaces))
}
