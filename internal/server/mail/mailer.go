// Package mail sends the pipeline's two outbound messages: the activation
// link to the order holder and the activation notice to the admin. Both are
// fire-and-forget side effects; failures are logged by the caller and never
// change the request outcome.
package mail

import "context"

// Mailer delivers pipeline notifications.
type Mailer interface {
	SendActivationLink(ctx context.Context, to, firstName, activationURL string) error
	SendAdminNotification(ctx context.Context, subject, body string) error
}
