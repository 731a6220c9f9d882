package mailer

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the logger instead of delivering them.
// It is the development default.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(ctx context.Context, e Email) error {
	if err := e.validate(); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "mail not delivered (log driver)",
		"to", e.To,
		"subject", e.Subject,
		"category", e.Category,
	)
	return nil
}
