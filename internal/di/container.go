// Package di provides dependency injection configuration for the feedback server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/di/providers"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/service"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideTelemetry)
	do.Provide(injector, providers.ProvideValidator)

	// Storage and search
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideCatalog)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideIdentity)

	// Delivery
	do.Provide(injector, providers.ProvideEmailSender)

	// Business services
	do.Provide(injector, providers.ProvideSurveyService)
	do.Provide(injector, providers.ProvideInvitationService)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAnalyticsService)
	do.Provide(injector, providers.ProvideExportService)
	do.Provide(injector, providers.ProvideAuthService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the HTTP server is listening.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.TelemetryHandle](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[auth.Identity](injector)
	_ = do.MustInvoke[*providers.EmailSenderHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.SurveyService](injector)
	_ = do.MustInvoke[*service.InvitationService](injector)
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AnalyticsService](injector)
	_ = do.MustInvoke[*service.ExportService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// An in-memory index starts empty on every boot
	providers.RebuildSearchIndexIfNeeded(injector)

	return nil
}
