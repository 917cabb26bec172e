package repository

import (
	"context"
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/jmoiron/sqlx"
)

// Store hands out repositories bound to one connection handle. Inside
// WithTx every repository shares the same transaction.
type Store interface {
	Carts() CartRepository
	Products() ProductRepository
	Orders() OrderRepository
	Customers() CustomerRepository
	Notifications() NotificationRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db, ext: db}
}

func (s *sqlStore) Carts() CartRepository { return NewCartRepo(s.ext) }
func (s *sqlStore) Products() ProductRepository { return NewProductRepo(s.ext) }
func (s *sqlStore) Orders() OrderRepository { return NewOrderRepo(s.ext) }
func (s *sqlStore) Customers() CustomerRepository { return NewCustomerRepo(s.ext) }
func (s *sqlStore) Notifications() NotificationRepository { return NewNotificationRepo(s.ext) }

// WithTx commits when fn returns nil and rolls back otherwise. A nested call
// joins the outer transaction.
func (s *sqlStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, ok := s.ext.(*sqlx.Tx); ok {
		return fn(s)
	}

	txCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		}
	}()

	if err := fn(&sqlStore{db: s.db, ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
