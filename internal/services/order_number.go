package service

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	CartOrderPrefix     = "ORD"
	ExternalOrderPrefix = "EXT"
)

// OrderNumberGenerator builds <PREFIX>-<epoch-millis>-<3-digit-random>.
// Collisions are left to the unique index on order_number.
type OrderNumberGenerator struct {
	Now  func() time.Time
	Rand func(n int) int
}

func NewOrderNumberGenerator() *OrderNumberGenerator {
	return &OrderNumberGenerator{Now: time.Now, Rand: rand.IntN}
}

func (g *OrderNumberGenerator) Next(prefix string) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, g.Now().UnixMilli(), g.Rand(1000))
}
