package mailer

import "context"

// Mailer dispatches the two out-of-band messages the auth flows need.
// Production wiring hands the auth service either the SMTP mailer
// directly or a queue-backed implementation that defers the actual send
// to the worker.
type Mailer interface {
	SendOTPEmail(ctx context.Context, to, otp string) error
	SendResetEmail(ctx context.Context, to, link string) error
}
