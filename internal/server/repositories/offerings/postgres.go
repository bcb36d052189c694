package offerings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/models"
)

// PostgresRepository reads service-offering reference data.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	query :=
		`SELECT id, name, price_cents, price_plan_id, active
		 FROM service_offerings
		 WHERE id = $1 AND active
		 `

	offering := &models.ServiceOffering{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&offering.ID, &offering.Name, &offering.PriceCents, &offering.PricePlanID, &offering.Active)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrServiceNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return offering, nil
}
