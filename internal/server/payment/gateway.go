// Package payment wraps the payment gateway behind small interfaces so the
// pipeline can be exercised with fakes.
package payment

import "context"

// CheckoutParams describes one checkout session to open. Exactly one of
// AmountCents or PricePlanID is used: a non-empty PricePlanID refers to an
// externally managed price plan and wins over the amount.
type CheckoutParams struct {
	PendingOrderID string
	CustomerEmail  string
	ProductName    string
	AmountCents    int64
	Currency       string
	PricePlanID    string
	Quantity       int64
	SuccessURL     string
	CancelURL      string
}

// CheckoutSession is the gateway's handle for an opened session.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutGateway opens checkout sessions.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// Event is a provider-agnostic view of a webhook notification.
type Event struct {
	ID                string
	Type              string
	CheckoutSessionID string
}

// EventTypeCheckoutCompleted marks a successfully paid checkout session.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// WebhookVerifier authenticates and decodes webhook payloads.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}
