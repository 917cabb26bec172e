package repository_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{"id", "slug", "sku", "name", "description", "price", "stock_quantity", "is_active", "created_at", "updated_at"}

func TestProductRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewProductRepo(db)
	ctx := t.Context()

	insertSQL := regexp.QuoteMeta(`INSERT INTO products (slug, sku, name, description, price, stock_quantity, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`)

	t.Run("CreateProduct", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			// Arrange
			product := &models.Product{
				Slug:          "retro-console",
				SKU:           "RC-001",
				Name:          "Retro Console",
				Price:         models.MoneyFromString("129.99"),
				StockQuantity: 8,
				IsActive:      true,
			}

			mock.ExpectQuery(insertSQL).
				WithArgs(product.Slug, product.SKU, product.Name, product.Description, product.Price,
					product.StockQuantity, product.IsActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

			// Act
			err := repo.CreateProduct(ctx, product)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, int64(42), product.ID)
			assert.False(t, product.CreatedAt.IsZero())
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Duplicate Slug", func(t *testing.T) {
			// Arrange
			product := &models.Product{Slug: "retro-console", SKU: "RC-002", Name: "Copy", Price: models.NewMoney(decimal.NewFromInt(1))}

			mock.ExpectQuery(insertSQL).WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

			// Act
			err := repo.CreateProduct(ctx, product)

			// Assert
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("GetProductBySlug", func(t *testing.T) {
		selectSQL := regexp.QuoteMeta(`FROM products WHERE slug = $1 AND is_active = $2`)

		t.Run("Success", func(t *testing.T) {
			// Arrange
			now := time.Now()
			mock.ExpectQuery(selectSQL).
				WithArgs("retro-console", true).
				WillReturnRows(sqlmock.NewRows(productRowColumns).
					AddRow(int64(42), "retro-console", "RC-001", "Retro Console", "", "129.99", int64(8), true, now, now))

			// Act
			product, err := repo.GetProductBySlug(ctx, "retro-console")

			// Assert
			require.NoError(t, err)
			assert.Equal(t, int64(42), product.ID)
			assert.Equal(t, "129.99", product.Price.StringFixed(2))
			assert.Equal(t, int64(8), product.StockQuantity)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Not Found", func(t *testing.T) {
			// Arrange
			mock.ExpectQuery(selectSQL).
				WithArgs("missing", true).
				WillReturnRows(sqlmock.NewRows(productRowColumns))

			// Act
			product, err := repo.GetProductBySlug(ctx, "missing")

			// Assert
			require.ErrorIs(t, err, sql.ErrNoRows)
			assert.Nil(t, product)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("DecrementStock", func(t *testing.T) {
		updateSQL := regexp.QuoteMeta(`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $2 WHERE id = $3 AND stock_quantity >= $4`)

		t.Run("Success", func(t *testing.T) {
			// Arrange
			mock.ExpectExec(updateSQL).
				WithArgs(3, sqlmock.AnyArg(), int64(42), 3).
				WillReturnResult(sqlmock.NewResult(0, 1))

			// Act
			err := repo.DecrementStock(ctx, 42, 3)

			// Assert
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Stock Consumed Concurrently", func(t *testing.T) {
			// Arrange
			mock.ExpectExec(updateSQL).
				WithArgs(5, sqlmock.AnyArg(), int64(42), 5).
				WillReturnResult(sqlmock.NewResult(0, 0))

			// Act
			err := repo.DecrementStock(ctx, 42, 5)

			// Assert
			require.ErrorIs(t, err, repository.ErrInsufficientStock)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Database Error", func(t *testing.T) {
			// Arrange
			dbErr := errors.New("connection reset")
			mock.ExpectExec(updateSQL).WillReturnError(dbErr)

			// Act
			err := repo.DecrementStock(ctx, 42, 1)

			// Assert
			require.ErrorIs(t, err, dbErr)
			assert.NotErrorIs(t, err, repository.ErrInsufficientStock)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("CurrentStock", func(t *testing.T) {
		// Arrange
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock_quantity FROM products WHERE id = $1`)).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(int64(2)))

		// Act
		stock, err := repo.CurrentStock(ctx, 42)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(2), stock)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
