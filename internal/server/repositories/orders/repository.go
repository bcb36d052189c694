package orders

import (
	"context"

	"github.com/corrigo/corrigo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
}
