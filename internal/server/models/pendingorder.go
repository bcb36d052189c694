package models

import "time"

// PendingOrder is the ephemeral pre-account surrogate for a guest order.
// It is created at intake, receives a checkout-session correlation id once,
// and is flipped to Processed exactly once at activation. A failed checkout
// session open deletes it outright.
type PendingOrder struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	UserID      *string
	OfferingID  string
	Pages       *int
	Description string
	Consent     bool
	// CheckoutSessionID correlates the order to the payment gateway's
	// checkout session. Nil until the session has been opened.
	CheckoutSessionID *string
	Processed         bool
	CreatedAt         time.Time
}
