package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/corrigo/corrigo/internal/logging"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/repositories/repomanager"
	"github.com/corrigo/corrigo/internal/server/storage"
)

// Attachment is one uploaded file plus the out-of-band metadata supplied for
// it.
type Attachment struct {
	Filename    string
	MimeType    string
	SizeBytes   int64
	Title       string
	Description string
	Content     io.Reader
}

// FileCustodian persists attachments under the sentinel custodian while
// their real owner does not exist yet, and hands them over at activation.
type FileCustodian struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  storage.BlobStore
	logger logging.Logger
}

func NewFileCustodian(db *sql.DB, repos repomanager.RepositoryManager, blobs storage.BlobStore, logger logging.Logger) *FileCustodian {
	return &FileCustodian{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		logger: logger.With("module", "file_custodian"),
	}
}

func tempStorageKey(pendingOrderID string) string {
	return fmt.Sprintf("pending/%s/%s", pendingOrderID, uuid.New())
}

// StoreTempFiles saves each attachment under the sentinel custodian, tagged
// with the pending order id. Attachments are a best-effort enhancement of
// the order: a failed save is logged and skipped, never propagated. Returns
// the number of files stored.
func (c *FileCustodian) StoreTempFiles(ctx context.Context, pendingOrderID string, attachments []Attachment) int {
	fileRepo := c.repos.Files(c.db)

	stored := 0
	for _, att := range attachments {
		key := tempStorageKey(pendingOrderID)

		if err := c.blobs.Put(ctx, key, att.Content, att.MimeType); err != nil {
			c.logger.Warn(ctx, "attachment upload failed, skipping",
				"pending_order_id", pendingOrderID, "filename", att.Filename, "error", err)
			continue
		}

		displayName := att.Title
		if displayName == "" {
			displayName = att.Filename
		}

		file := &models.UploadedFile{
			ID:             uuid.NewString(),
			DisplayName:    displayName,
			StoredName:     att.Filename,
			MimeType:       att.MimeType,
			SizeBytes:      att.SizeBytes,
			StorageKey:     key,
			OwnerID:        models.SentinelCustodianID,
			PendingOrderID: &pendingOrderID,
			Description:    att.Description,
		}

		if _, err := fileRepo.Create(ctx, file); err != nil {
			c.logger.Warn(ctx, "attachment record failed, skipping",
				"pending_order_id", pendingOrderID, "filename", att.Filename, "error", err)
			// Orphaned blob; harmless, but try to clean up anyway.
			if derr := c.blobs.Delete(ctx, key); derr != nil {
				c.logger.Warn(ctx, "orphaned blob cleanup failed", "storage_key", key, "error", derr)
			}
			continue
		}
		stored++
	}

	return stored
}

// DiscardTempFiles removes the blobs and metadata rows stored for a pending
// order whose checkout never opened. Best-effort like the store: a failed
// blob delete is logged and the metadata rows are removed regardless, so no
// row can keep pointing at a deleted pending order.
func (c *FileCustodian) DiscardTempFiles(ctx context.Context, pendingOrderID string) {
	fileRepo := c.repos.Files(c.db)

	stored, err := fileRepo.ListByPendingOrder(ctx, pendingOrderID)
	if err != nil {
		c.logger.Warn(ctx, "temp file listing failed, skipping cleanup",
			"pending_order_id", pendingOrderID, "error", err)
		return
	}

	for _, file := range stored {
		if err := c.blobs.Delete(ctx, file.StorageKey); err != nil {
			c.logger.Warn(ctx, "temp blob delete failed",
				"pending_order_id", pendingOrderID, "storage_key", file.StorageKey, "error", err)
		}
	}

	if removed, err := fileRepo.DeleteByPendingOrder(ctx, pendingOrderID); err != nil {
		c.logger.Warn(ctx, "temp file record cleanup failed",
			"pending_order_id", pendingOrderID, "error", err)
	} else if removed > 0 {
		c.logger.Info(ctx, "temp files discarded",
			"pending_order_id", pendingOrderID, "count", removed)
	}
}

// Reassign moves every file still tagged with the pending order to its real
// owner and order. Safe to invoke twice: files moved by an earlier call no
// longer carry the tag and are not matched again.
func (c *FileCustodian) Reassign(ctx context.Context, pendingOrderID, ownerID, orderID string) (int64, error) {
	fileRepo := c.repos.Files(c.db)
	moved, err := fileRepo.Reassign(ctx, pendingOrderID, ownerID, orderID)
	if err != nil {
		return 0, fmt.Errorf("error reassigning files: %w", err)
	}
	return moved, nil
}
