package repomanager

import (
	"context"
	"database/sql"

	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/repositories/files"
	"github.com/corrigo/corrigo/internal/server/repositories/offerings"
	"github.com/corrigo/corrigo/internal/server/repositories/orders"
	"github.com/corrigo/corrigo/internal/server/repositories/pendingorders"
	"github.com/corrigo/corrigo/internal/server/repositories/users"
	"github.com/corrigo/corrigo/internal/server/repositories/webhookevents"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// several repositories inside one transaction by passing the same handle.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	PendingOrders(db dbx.DBTX) pendingorders.Repository
	Files(db dbx.DBTX) files.Repository
	Offerings(db dbx.DBTX) offerings.Repository
	Orders(db dbx.DBTX) orders.Repository
	WebhookEvents(db dbx.DBTX) webhookevents.Repository
}
