package email

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender logs messages instead of delivering them. Used in development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and reports success.
func (s *LogSender) Send(_ context.Context, msg Message) Result {
	if msg.To == "" {
		return Result{Error: "recipient email address required"}
	}
	id := uuid.NewString()
	s.logger.Info("Email logged",
		"message_id", id,
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return Result{Success: true, MessageID: id}
}
