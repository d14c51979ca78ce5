package notification

import (
	"context"
	"log/slog"
)

//go:generate mockgen -source=sender.go -destination=mocks/sender-mocks.go -package=mocks Sender

// Sender delivers a notification over its channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of a gateway. Bodies are
// not logged since they can carry reset codes.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"notification_id", n.ID.String(),
		"channel", string(n.Channel),
		"recipient", n.Recipient,
		"subject", n.Subject,
		"trigger", n.Trigger,
	)
	return nil
}
