package repository_test

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customerRowColumns = []string{"id", "email", "name", "password_hash", "created_at", "updated_at"}

func TestCustomerRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewCustomerRepo(db)
	ctx := t.Context()

	insertSQL := regexp.QuoteMeta(`INSERT INTO customers (id, email, name, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`)

	t.Run("CreateCustomer", func(t *testing.T) {
		t.Run("Success - Assigns ID", func(t *testing.T) {
			// Arrange
			customer := &models.Customer{Email: "ada@example.com", Name: "Ada", PasswordHash: "hash"}

			mock.ExpectExec(insertSQL).
				WithArgs(sqlmock.AnyArg(), customer.Email, customer.Name, customer.PasswordHash, sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, 1))

			// Act
			err := repo.CreateCustomer(ctx, customer)

			// Assert
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, customer.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Duplicate Email", func(t *testing.T) {
			// Arrange
			customer := &models.Customer{Email: "ada@example.com", Name: "Ada", PasswordHash: "hash"}
			mock.ExpectExec(insertSQL).WillReturnError(&pq.Error{Code: "23505"})

			// Act
			err := repo.CreateCustomer(ctx, customer)

			// Assert
			require.ErrorIs(t, err, repository.ErrDuplicateEntry)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("GetCustomerByEmail", func(t *testing.T) {
		selectSQL := regexp.QuoteMeta(`FROM customers WHERE email = $1`)

		t.Run("Success", func(t *testing.T) {
			id := uuid.New()
			now := time.Now()
			mock.ExpectQuery(selectSQL).
				WithArgs("ada@example.com").
				WillReturnRows(sqlmock.NewRows(customerRowColumns).AddRow(id.String(), "ada@example.com", "Ada", "hash", now, now))

			customer, err := repo.GetCustomerByEmail(ctx, "ada@example.com")

			require.NoError(t, err)
			assert.Equal(t, id, customer.ID)
			assert.Equal(t, "hash", customer.PasswordHash)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("Failure - Not Found", func(t *testing.T) {
			mock.ExpectQuery(selectSQL).WithArgs("ghost@example.com").WillReturnRows(sqlmock.NewRows(customerRowColumns))

			customer, err := repo.GetCustomerByEmail(ctx, "ghost@example.com")

			require.ErrorIs(t, err, sql.ErrNoRows)
			assert.Nil(t, customer)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("GetCustomerByID", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM customers WHERE id = $1`)).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(customerRowColumns).AddRow(id.String(), "ada@example.com", "Ada", "hash", now, now))

		customer, err := repo.GetCustomerByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, "Ada", customer.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
