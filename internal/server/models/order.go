package models

import "time"

// Order statuses.
const (
	OrderStatusPaid = "paid"
)

// Order is the persistent order record materialized from a pending order at
// activation. Reassigned files reference it.
type Order struct {
	ID             string
	UserID         string
	OfferingID     string
	PendingOrderID string
	Pages          *int
	AmountCents    int64
	Status         string
	CreatedAt      time.Time
}
