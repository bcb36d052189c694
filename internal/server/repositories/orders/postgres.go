package orders

import (
	"context"
	"fmt"

	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/models"
)

// PostgresRepository implements order storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {

	query :=
		`INSERT INTO orders (id, user_id, offering_id, pending_order_id, pages, amount_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		order.ID, order.UserID, order.OfferingID, order.PendingOrderID,
		order.Pages, order.AmountCents, order.Status).
		Scan(&order.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}
