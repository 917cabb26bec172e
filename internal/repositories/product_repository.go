package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/jmoiron/sqlx"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, id int64, quantity int) error
	CurrentStock(ctx context.Context, id int64) (int64, error)
}

type productRepository struct {
	db sqlx.ExtContext
}

func NewProductRepo(db sqlx.ExtContext) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, slug, sku, name, description, price, stock_quantity, is_active, created_at, updated_at`

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO products (slug, sku, name, description, price, stock_quantity, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(dbCtx, query,
		product.Slug, product.SKU, product.Name, product.Description, product.Price,
		product.StockQuantity, product.IsActive, now, now).Scan(&product.ID)
	if err != nil {
		return wrapWriteErr("failed to insert product", err)
	}

	product.CreatedAt, product.UpdatedAt = now, now

	return nil
}

// GetProductBySlug only sees active products.
func (r *productRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE slug = ? AND is_active = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, product, query, slug, true); err != nil {
		return nil, err
	}

	return product, nil
}

// GetProductByID only sees active products.
func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND is_active = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, product, query, id, true); err != nil {
		return nil, err
	}

	return product, nil
}

// DecrementStock is a compare-and-swap on the stock column: it fails with
// ErrInsufficientStock instead of letting the quantity go below zero.
func (r *productRepository) DecrementStock(ctx context.Context, id int64, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`
		UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE id = ? AND stock_quantity >= ?`)

	result, err := r.db.ExecContext(dbCtx, query, quantity, time.Now().UTC(), id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("product %d: %w", id, ErrInsufficientStock)
	}

	return nil
}

func (r *productRepository) CurrentStock(ctx context.Context, id int64) (int64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var stock int64
	if err := sqlx.GetContext(dbCtx, r.db, &stock, r.db.Rebind(`SELECT stock_quantity FROM products WHERE id = ?`), id); err != nil {
		return 0, err
	}

	return stock, nil
}
