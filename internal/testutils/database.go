package testutils

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/stretchr/testify/require"
)

// NewSQLiteRepository opens a migrated SQLite database in t's temp dir.
// It is closed when the test ends.
func NewSQLiteRepository(t *testing.T) *repository.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		filepath.Join(t.TempDir(), "storefront.db"))

	repo, err := repository.Open(repository.DriverSQLite, dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.Migrate())

	return repo
}

// SeedProduct inserts an active product priced at price with stock units.
func SeedProduct(t *testing.T, store repository.Store, slug, price string, stock int64) *models.Product {
	t.Helper()

	product := &models.Product{
		Slug:          slug,
		SKU:           "SKU-" + slug,
		Name:          "Product " + slug,
		Price:         models.MoneyFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}

	require.NoError(t, store.Products().CreateProduct(context.Background(), product))

	return product
}

// SeedCustomer inserts a customer with a throwaway password hash.
func SeedCustomer(t *testing.T, store repository.Store, email string) *models.Customer {
	t.Helper()

	customer := &models.Customer{Email: email, Name: "Test Customer", PasswordHash: "x"}
	require.NoError(t, store.Customers().CreateCustomer(context.Background(), customer))

	return customer
}
