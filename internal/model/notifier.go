package model

import "context"

// Notifier delivers a rendered alert message, e.g. by email.
type Notifier interface {
	Send(ctx context.Context, subject, htmlBody string) error
}
