package files

import (
	"context"
	"fmt"

	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/server/models"
)

// PostgresRepository implements uploaded-file metadata storage over a
// dbx.DBTX (*sql.DB or *sql.Tx). File content lives in object storage.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.UploadedFile) (*models.UploadedFile, error) {

	query :=
		`INSERT INTO uploaded_files
		   (id, display_name, stored_name, mime_type, size_bytes, storage_key,
		    owner_id, order_id, pending_order_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.DisplayName, file.StoredName, file.MimeType, file.SizeBytes,
		file.StorageKey, file.OwnerID, file.OrderID, file.PendingOrderID, file.Description).
		Scan(&file.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) ListByPendingOrder(ctx context.Context, pendingOrderID string) ([]*models.UploadedFile, error) {
	query :=
		`SELECT id, display_name, stored_name, mime_type, size_bytes, storage_key,
		        owner_id, order_id, pending_order_id, description, created_at
		 FROM uploaded_files
		 WHERE pending_order_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, pendingOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadedFile
	for rows.Next() {
		var item models.UploadedFile
		if err := rows.Scan(&item.ID, &item.DisplayName, &item.StoredName, &item.MimeType,
			&item.SizeBytes, &item.StorageKey, &item.OwnerID, &item.OrderID,
			&item.PendingOrderID, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Reassign selects files by the pending-order tag only, so files already
// moved by an earlier call are simply not matched again.
func (r *PostgresRepository) Reassign(ctx context.Context, pendingOrderID, ownerID, orderID string) (int64, error) {
	query :=
		`UPDATE uploaded_files
		 SET owner_id = $2, order_id = $3, pending_order_id = NULL
		 WHERE pending_order_id = $1
		 `

	result, err := r.db.ExecContext(ctx, query, pendingOrderID, ownerID, orderID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteByPendingOrder(ctx context.Context, pendingOrderID string) (int64, error) {
	query := `DELETE FROM uploaded_files WHERE pending_order_id = $1`

	result, err := r.db.ExecContext(ctx, query, pendingOrderID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
