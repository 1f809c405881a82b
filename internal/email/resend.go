package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/feedbackapp/feedback-server/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	limiterKey     = "resend"
)

// ResendConfig configures a ResendSender.
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string  // API base URL; empty uses the SDK default
	RPS     float64 // outbound pacing, 0 disables
}

// ResendSender delivers mail through the Resend API.
type ResendSender struct {
	client  *resend.Client
	apiKey  string
	from    string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewResendSender creates a sender for the Resend API. An unparsable BaseURL
// is ignored and the SDK default is kept.
func NewResendSender(cfg ResendConfig, logger *slog.Logger) *ResendSender {
	if logger == nil {
		logger = slog.Default()
	}

	client := resend.NewCustomClient(&http.Client{Timeout: defaultTimeout}, cfg.APIKey)
	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			client.BaseURL = u
		} else {
			logger.Warn("Invalid Resend base URL, using default", "base_url", cfg.BaseURL, "error", err)
		}
	}

	s := &ResendSender{
		client: client,
		apiKey: cfg.APIKey,
		from:   cfg.From,
		logger: logger,
	}
	if cfg.RPS > 0 {
		s.limiter = ratelimit.New(cfg.RPS, 1)
	}
	return s
}

// Close releases resources held by the sender.
func (s *ResendSender) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Send hands the message to Resend. Every failure is returned in the Result.
func (s *ResendSender) Send(ctx context.Context, msg Message) Result {
	if s.apiKey == "" {
		return Result{Error: "resend API key not configured"}
	}
	if msg.To == "" {
		return Result{Error: "recipient email address required"}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, limiterKey); err != nil {
			return Result{Error: fmt.Sprintf("rate limit wait: %v", err)}
		}
	}

	s.logger.Debug("resend request", "to", msg.To, "subject", msg.Subject)

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		s.logger.Error("Resend API error", "to", msg.To, "error", err)
		return Result{Error: err.Error()}
	}

	s.logger.Info("Email sent", "to", msg.To, "message_id", sent.Id)
	return Result{Success: true, MessageID: sent.Id}
}
