package files

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corrigo/corrigo/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+uploaded_files.*RETURNING\s+created_at`

	poID := "po-1"
	rows := sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now())
	mock.ExpectQuery(q).
		WithArgs("f-1", "Manuskript", "a.pdf", "application/pdf", int64(3),
			"pending/po-1/key", models.SentinelCustodianID, nil, &poID, "Kapitel 1").
		WillReturnRows(rows)

	got, err := repo.Create(context.Background(), &models.UploadedFile{
		ID: "f-1", DisplayName: "Manuskript", StoredName: "a.pdf",
		MimeType: "application/pdf", SizeBytes: 3, StorageKey: "pending/po-1/key",
		OwnerID: models.SentinelCustodianID, PendingOrderID: &poID, Description: "Kapitel 1",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not populated: %+v", got)
	}
}

func TestListByPendingOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,.*FROM\s+uploaded_files\s+WHERE\s+pending_order_id\s*=\s*\$1`

	poID := "po-1"
	rows := sqlmock.NewRows([]string{
		"id", "display_name", "stored_name", "mime_type", "size_bytes", "storage_key",
		"owner_id", "order_id", "pending_order_id", "description", "created_at",
	}).
		AddRow("f-1", "Manuskript", "a.pdf", "application/pdf", int64(3), "k1",
			models.SentinelCustodianID, nil, poID, "", time.Now()).
		AddRow("f-2", "Anhang", "b.pdf", "application/pdf", int64(3), "k2",
			models.SentinelCustodianID, nil, poID, "", time.Now())
	mock.ExpectQuery(q).WithArgs(poID).WillReturnRows(rows)

	got, err := repo.ListByPendingOrder(context.Background(), poID)
	if err != nil {
		t.Fatalf("ListByPendingOrder error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "f-1" || got[1].ID != "f-2" {
		t.Fatalf("unexpected files: %+v", got)
	}
}

func TestReassign(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+uploaded_files\s+SET\s+owner_id\s*=\s*\$2,\s*order_id\s*=\s*\$3,\s*pending_order_id\s*=\s*NULL\s+WHERE\s+pending_order_id\s*=\s*\$1`

	mock.ExpectExec(q).WithArgs("po-1", "u-1", "o-1").WillReturnResult(sqlmock.NewResult(0, 2))

	moved, err := repo.Reassign(context.Background(), "po-1", "u-1", "o-1")
	if err != nil {
		t.Fatalf("Reassign error: %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 moved, got %d", moved)
	}
}

func TestDeleteByPendingOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*DELETE\s+FROM\s+uploaded_files\s+WHERE\s+pending_order_id\s*=\s*\$1`

	mock.ExpectExec(q).WithArgs("po-1").WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.DeleteByPendingOrder(context.Background(), "po-1")
	if err != nil {
		t.Fatalf("DeleteByPendingOrder error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestReassign_NothingLeft(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+uploaded_files\s+SET\s+owner_id`).
		WithArgs("po-1", "u-1", "o-1").WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.Reassign(context.Background(), "po-1", "u-1", "o-1")
	if err != nil {
		t.Fatalf("Reassign error: %v", err)
	}
	if moved != 0 {
		t.Fatalf("expected 0 moved, got %d", moved)
	}
}
