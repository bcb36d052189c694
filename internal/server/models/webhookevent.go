package models

import "time"

// WebhookEvent stores a received payment-provider event for idempotent
// processing. (provider, event_id) is unique; a re-delivered event is
// acknowledged without being processed again.
type WebhookEvent struct {
	ID              int64
	Provider        string
	EventID         string
	EventType       string
	ProcessedAt     *time.Time
	ProcessingError string
	CreatedAt       time.Time
}
