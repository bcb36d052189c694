package offerings

import (
	"context"

	"github.com/corrigo/corrigo/internal/server/models"
)

type Repository interface {
	// GetActiveByID resolves an offering that exists and is currently
	// active; anything else is ErrServiceNotFound.
	GetActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error)
}
