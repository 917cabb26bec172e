package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Repository struct {
	DB     *sqlx.DB
	Driver string
}

// New opens the configured database, applies the pool settings and brings
// the schema up to date.
func New(cfg *config.Config) (*Repository, error) {
	dsn := cfg.Database.GetDSN()
	if cfg.Database.Driver == DriverSQLite {
		dsn = cfg.Database.SQLiteDSN()
	}

	repo, err := Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}

	db := repo.DB
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := repo.Migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

// Open connects through otelsql so every statement becomes a span.
func Open(driver, dsn string) (*Repository, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := otelsql.Open(driver, dsn, otelsql.WithAttributes(attribute.String("db.system", driver)))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := sqlx.NewDb(sqlDB, driver)

	ctx, cancel := utils.WithDBTimeout(context.Background())
	defer cancel()

	// Test the connection to make sure DB is reachable
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{DB: db, Driver: driver}, nil
}

// Migrate applies the embedded migrations for the active driver.
func (p *Repository) Migrate() error {
	var (
		dbDriver database.Driver
		err      error
	)

	switch p.Driver {
	case DriverPostgres:
		dbDriver, err = migratepg.WithInstance(p.DB.DB, &migratepg.Config{})
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(p.DB.DB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", p.Driver)
	}

	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+p.Driver)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, p.Driver, dbDriver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("database schema up to date", slog.String("driver", p.Driver), slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	return nil
}

func (p *Repository) Store() Store {
	return NewStore(p.DB)
}

func (p *Repository) Close() error {
	return p.DB.Close()
}
