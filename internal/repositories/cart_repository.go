package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	GetCartByToken(ctx context.Context, token string) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	DeleteCart(ctx context.Context, cartID int64) error
	TouchCart(ctx context.Context, cartID int64) error
	GetItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	GetItem(ctx context.Context, cartID, itemID int64) (*models.CartItem, error)
	GetItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) error
}

type cartRepository struct {
	db sqlx.ExtContext
}

func NewCartRepo(db sqlx.ExtContext) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, token, user_id, session_id, created_at, updated_at`

// itemColumns joins the live catalog row for display fields only; the
// unit price always comes from the snapshot on the line.
const itemColumns = `
	ci.id, ci.cart_id, ci.product_id, p.slug AS product_slug, p.name AS product_name, p.sku,
	ci.quantity, ci.unit_price, ci.created_at, ci.updated_at`

func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO carts (token, user_id, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	if err := r.db.QueryRowxContext(dbCtx, query, cart.Token, cart.UserID, cart.SessionID, now, now).Scan(&cart.ID); err != nil {
		return wrapWriteErr("failed to insert cart", err)
	}

	cart.CreatedAt, cart.UpdatedAt = now, now

	return nil
}

func (r *cartRepository) GetCartByToken(ctx context.Context, token string) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	cart := &models.Cart{}
	query := r.db.Rebind(`SELECT ` + cartColumns + ` FROM carts WHERE token = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, cart, query, token); err != nil {
		return nil, err
	}

	return cart, nil
}

// GetCartByUserID returns the customer's most recent cart.
func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	cart := &models.Cart{}
	query := r.db.Rebind(`SELECT ` + cartColumns + ` FROM carts WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1`)

	if err := sqlx.GetContext(dbCtx, r.db, cart, query, userID); err != nil {
		return nil, err
	}

	return cart, nil
}

// DeleteCart removes the cart row; its items go with it through the cascade.
func (r *cartRepository) DeleteCart(ctx context.Context, cartID int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(dbCtx, r.db.Rebind(`DELETE FROM carts WHERE id = ?`), cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return expectAffected(result)
}

func (r *cartRepository) TouchCart(ctx context.Context, cartID int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(dbCtx, r.db.Rebind(`UPDATE carts SET updated_at = ? WHERE id = ?`), time.Now().UTC(), cartID)
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	return nil
}

func (r *cartRepository) GetItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	items := []models.CartItem{}
	query := r.db.Rebind(`SELECT ` + itemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.id`)

	if err := sqlx.SelectContext(dbCtx, r.db, &items, query, cartID); err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) GetItem(ctx context.Context, cartID, itemID int64) (*models.CartItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	item := &models.CartItem{}
	query := r.db.Rebind(`SELECT ` + itemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = ? AND ci.cart_id = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, item, query, itemID, cartID); err != nil {
		return nil, err
	}

	return item, nil
}

func (r *cartRepository) GetItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	item := &models.CartItem{}
	query := r.db.Rebind(`SELECT ` + itemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ? AND ci.product_id = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, item, query, cartID, productID); err != nil {
		return nil, err
	}

	return item, nil
}

func (r *cartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(dbCtx, query, item.CartID, item.ProductID, item.Quantity, item.UnitPrice, now, now).Scan(&item.ID)
	if err != nil {
		return wrapWriteErr("failed to insert cart item", err)
	}

	item.CreatedAt, item.UpdatedAt = now, now

	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ? AND cart_id = ?`)

	result, err := r.db.ExecContext(dbCtx, query, quantity, time.Now().UTC(), itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return expectAffected(result)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(dbCtx, r.db.Rebind(`DELETE FROM cart_items WHERE id = ? AND cart_id = ?`), itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return expectAffected(result)
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(dbCtx, r.db.Rebind(`DELETE FROM cart_items WHERE cart_id = ?`), cartID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	return nil
}

// expectAffected turns a zero-row write into sql.ErrNoRows.
func expectAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
