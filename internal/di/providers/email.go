package providers

import (
	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/email"
	"github.com/feedbackapp/feedback-server/internal/logger"
)

// EmailSenderHandle wraps the configured sender with shutdown capability.
type EmailSenderHandle struct {
	email.Sender
	close func()
}

// Shutdown implements do.Shutdownable.
func (h *EmailSenderHandle) Shutdown() error {
	if h.close != nil {
		h.close()
	}
	return nil
}

// ProvideEmailSender provides the invitation mail transport.
func ProvideEmailSender(i do.Injector) (*EmailSenderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	handle := &EmailSenderHandle{}
	switch cfg.Email.Provider {
	case "resend":
		resend := email.NewResendSender(email.ResendConfig{
			APIKey: cfg.Email.APIKey,
			From:   cfg.Email.From,
			RPS:    cfg.Email.RPS,
		}, log.Logger)
		handle.Sender = resend
		handle.close = resend.Close
	default:
		handle.Sender = email.NewLogSender(log.Logger)
	}

	if cfg.Email.OverrideTo != "" {
		log.Warn("All invitation email redirected", "override_to", cfg.Email.OverrideTo)
	}
	handle.Sender = email.WithOverride(handle.Sender, cfg.Email.OverrideTo, log.Logger)

	log.Info("Email sender initialized", "provider", cfg.Email.Provider)

	return handle, nil
}
