package mailer

import "context"

// Transport is the single outbound capability the delivery action needs.
// Mocking this interface in tests gives full control over send behaviour
// without talking to a real SMTP server.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}
