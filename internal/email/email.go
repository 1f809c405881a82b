// Package email sends survey invitations through a pluggable transport.
package email

import (
	"context"
	"log/slog"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Result reports the outcome of a send. Transport failures are reported here
// rather than as a Go error so a batch can record them per recipient.
type Result struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

// overrideSender redirects every message to a fixed address.
type overrideSender struct {
	next   Sender
	to     string
	logger *slog.Logger
}

// WithOverride wraps a sender so all mail goes to `to`. An empty address
// returns the sender unchanged.
func WithOverride(next Sender, to string, logger *slog.Logger) Sender {
	if to == "" {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &overrideSender{next: next, to: to, logger: logger}
}

func (s *overrideSender) Send(ctx context.Context, msg Message) Result {
	s.logger.Info("Overriding email recipient", "original_to", msg.To, "override_to", s.to)
	msg.To = s.to
	return s.next.Send(ctx, msg)
}
