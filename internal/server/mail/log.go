package mail

import (
	"context"

	"github.com/rendlabs/rend/internal/logging"
)

// LogMailer writes messages to the log instead of sending them. Used when no
// SES credentials are configured, e.g. local development.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "mail delivery skipped, logging instead",
		"to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
