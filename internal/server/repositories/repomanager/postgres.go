// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/migrations"
	"github.com/corrigo/corrigo/internal/server/repositories/files"
	"github.com/corrigo/corrigo/internal/server/repositories/offerings"
	"github.com/corrigo/corrigo/internal/server/repositories/orders"
	"github.com/corrigo/corrigo/internal/server/repositories/pendingorders"
	"github.com/corrigo/corrigo/internal/server/repositories/users"
	"github.com/corrigo/corrigo/internal/server/repositories/webhookevents"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// PendingOrders returns a pendingorders.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) PendingOrders(db dbx.DBTX) pendingorders.Repository {
	return pendingorders.NewPostgresRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// Offerings returns an offerings.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Offerings(db dbx.DBTX) offerings.Repository {
	return offerings.NewPostgresRepository(db)
}

// Orders returns an orders.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Orders(db dbx.DBTX) orders.Repository {
	return orders.NewPostgresRepository(db)
}

// WebhookEvents returns a webhookevents.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) WebhookEvents(db dbx.DBTX) webhookevents.Repository {
	return webhookevents.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
