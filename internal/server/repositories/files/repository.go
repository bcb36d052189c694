package files

import (
	"context"

	"github.com/corrigo/corrigo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.UploadedFile) (*models.UploadedFile, error)
	ListByPendingOrder(ctx context.Context, pendingOrderID string) ([]*models.UploadedFile, error)
	// Reassign moves every file still tagged with pendingOrderID to the
	// given owner and order, clearing the tag. Returns the number of files
	// moved; a second call finds nothing and returns 0.
	Reassign(ctx context.Context, pendingOrderID, ownerID, orderID string) (int64, error)
	// DeleteByPendingOrder removes every metadata row still tagged with
	// pendingOrderID. Returns the number of rows deleted.
	DeleteByPendingOrder(ctx context.Context, pendingOrderID string) (int64, error)
}
