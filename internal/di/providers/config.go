// Package providers contains dependency injection providers for the feedback server.
package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/telemetry"
)

// Version is reported by the health endpoint and tracing resource.
var Version = "dev"

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting feedback server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.App.DataDir,
		"base_url", cfg.Server.BaseURL,
	)

	return log, nil
}

// TelemetryHandle flushes the tracer provider on shutdown.
type TelemetryHandle struct {
	shutdown telemetry.ShutdownFunc
}

// Shutdown implements do.Shutdownable.
func (h *TelemetryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.shutdown(ctx)
}

// ProvideTelemetry installs the OTLP tracer provider when an endpoint is configured.
func ProvideTelemetry(i do.Injector) (*TelemetryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Endpoint != "" {
		log.Info("Tracing enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	return &TelemetryHandle{shutdown: shutdown}, nil
}
