package mailer

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogTransport writes messages to the log instead of sending them.
// Used when no SMTP host is configured.
type LogTransport struct {
	log logging.Logger
}

func NewLogTransport(log logging.Logger) *LogTransport {
	return &LogTransport{log: log.With("module", "mailer")}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.log.Info(ctx, "email not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "link", msg.Link)
	return nil
}
