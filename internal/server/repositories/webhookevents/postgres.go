package webhookevents

import (
	"context"
	"fmt"

	"github.com/corrigo/corrigo/internal/dbx"
)

// PostgresRepository stores payment-provider webhook events for idempotent
// consumption.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, provider, eventID, eventType string) (bool, error) {
	query :=
		`INSERT INTO webhook_events (provider, event_id, event_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (provider, event_id) DO NOTHING
		 `

	result, err := r.db.ExecContext(ctx, query, provider, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, provider, eventID, processingError string) error {
	query :=
		`UPDATE webhook_events
		 SET processed_at = now(), processing_error = $3
		 WHERE provider = $1 AND event_id = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, provider, eventID, processingError); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
