package mailer

import (
	"fmt"
	"log/slog"

	"csrgive.com/app/internal/config"
)

// FromConfig picks the transport named by mail.driver.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Service, error) {
	switch cfg.Mail.Driver {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		return NewSMTPMailer(cfg.SMTP), nil
	case "mailtrap":
		return NewMailtrapMailer(cfg.Mailtrap)
	default:
		return nil, fmt.Errorf("unknown mail.driver %q", cfg.Mail.Driver)
	}
}
