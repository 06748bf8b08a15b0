// Package mail delivers transactional email, currently only password-reset
// messages.
package mail

import "context"

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
