package service

import (
	"context"
	"log/slog"
)

// logCodeNotifier writes code deliveries to the log. It stands in for a real
// mail transport in development and test environments.
//
// TODO: add an SMTP-backed notifier once the mail relay is provisioned.
type logCodeNotifier struct {
	logger *slog.Logger
}

// NewLogCodeNotifier creates a notifier that logs instead of sending mail.
func NewLogCodeNotifier(logger *slog.Logger) *logCodeNotifier {
	return &logCodeNotifier{logger: logger}
}

// SendCode records the delivery.
func (n *logCodeNotifier) SendCode(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "verification code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
