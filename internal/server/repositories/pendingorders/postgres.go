package pendingorders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/models"
)

// PostgresRepository implements pending-order storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, order *models.PendingOrder) (*models.PendingOrder, error) {

	query :=
		`INSERT INTO pending_orders
		   (id, first_name, last_name, email, phone, offering_id, pages, description, consent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		order.ID, order.FirstName, order.LastName, order.Email, order.Phone,
		order.OfferingID, order.Pages, order.Description, order.Consent).
		Scan(&order.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

const selectColumns = `SELECT id, first_name, last_name, email, phone, user_id, offering_id,
	pages, description, consent, checkout_session_id, processed, created_at
	FROM pending_orders `

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PendingOrder, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.PendingOrder, error) {
	return r.getOne(ctx, `WHERE email = $1 AND NOT processed ORDER BY created_at DESC LIMIT 1`, email)
}

func (r *PostgresRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.PendingOrder, error) {
	return r.getOne(ctx, `WHERE checkout_session_id = $1`, sessionID)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.PendingOrder, error) {
	order := &models.PendingOrder{}
	err := r.db.QueryRowContext(ctx, selectColumns+where, arg).Scan(
		&order.ID, &order.FirstName, &order.LastName, &order.Email, &order.Phone,
		&order.UserID, &order.OfferingID, &order.Pages, &order.Description,
		&order.Consent, &order.CheckoutSessionID, &order.Processed, &order.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

func (r *PostgresRepository) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE pending_orders SET checkout_session_id = $2 WHERE id = $1`
	return r.execOne(ctx, query, common.ErrNotFound, id, sessionID)
}

func (r *PostgresRepository) LinkUser(ctx context.Context, id, userID string) error {
	query := `UPDATE pending_orders SET user_id = $2 WHERE id = $1`
	return r.execOne(ctx, query, common.ErrNotFound, id, userID)
}

// MarkProcessed is the single-use guard: a conditional update, not a
// read-then-write, so two racing activations cannot both succeed.
func (r *PostgresRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `UPDATE pending_orders SET processed = true WHERE id = $1 AND NOT processed`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		return nil
	}

	// No row flipped: either the order is gone or it was already consumed.
	var processed bool
	err = r.db.QueryRowContext(ctx, `SELECT processed FROM pending_orders WHERE id = $1`, id).Scan(&processed)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if processed {
		return common.ErrAlreadyProcessed
	}
	return fmt.Errorf("mark processed affected no rows for existing order %s", id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM pending_orders WHERE id = $1`
	return r.execOne(ctx, query, common.ErrNotFound, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, missing error, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return missing
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
