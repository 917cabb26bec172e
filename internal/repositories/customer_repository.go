package repository

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type customerRepository struct {
	db sqlx.ExtContext
}

func NewCustomerRepo(db sqlx.ExtContext) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, email, name, password_hash, created_at, updated_at`

func (r *customerRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO customers (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(dbCtx, query, customer.ID, customer.Email, customer.Name, customer.PasswordHash, now, now); err != nil {
		return wrapWriteErr("failed to insert customer", err)
	}

	customer.CreatedAt, customer.UpdatedAt = now, now

	return nil
}

func (r *customerRepository) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	customer := &models.Customer{}
	query := r.db.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE email = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, customer, query, email); err != nil {
		return nil, err
	}

	return customer, nil
}

func (r *customerRepository) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	customer := &models.Customer{}
	query := r.db.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ?`)

	if err := sqlx.GetContext(dbCtx, r.db, customer, query, id); err != nil {
		return nil, err
	}

	return customer, nil
}
