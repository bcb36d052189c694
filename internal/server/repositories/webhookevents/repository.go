package webhookevents

import "context"

type Repository interface {
	// Insert records a received provider event. Returns false when the
	// event id was seen before (the dedup path).
	Insert(ctx context.Context, provider, eventID, eventType string) (bool, error)
	// MarkProcessed stamps processed_at and stores the processing error, if
	// any, for later inspection.
	MarkProcessed(ctx context.Context, provider, eventID, processingError string) error
}
