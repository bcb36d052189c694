package users

import (
	"context"

	"github.com/corrigo/corrigo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Activate flips the active flag, stamps updated_at and, when
	// passwordHash is non-nil, stores the hash. Exactly one row must be
	// affected.
	Activate(ctx context.Context, id string, passwordHash *string) error
}
