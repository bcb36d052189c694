package pendingorders

import (
	"context"

	"github.com/corrigo/corrigo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, order *models.PendingOrder) (*models.PendingOrder, error)
	GetByID(ctx context.Context, id string) (*models.PendingOrder, error)
	GetByEmail(ctx context.Context, email string) (*models.PendingOrder, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.PendingOrder, error)
	// AttachCheckoutSession stores the checkout-session correlation id.
	// Idempotent single update.
	AttachCheckoutSession(ctx context.Context, id, sessionID string) error
	// LinkUser records the account created for this order's holder.
	LinkUser(ctx context.Context, id, userID string) error
	// MarkProcessed flips processed false→true as a single conditional
	// update. Returns ErrAlreadyProcessed when the flag was already set and
	// ErrNotFound when the order does not exist.
	MarkProcessed(ctx context.Context, id string) error
	// Delete removes the order outright (compensating rollback).
	Delete(ctx context.Context, id string) error
}
