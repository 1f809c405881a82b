package providers

import (
	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
	"github.com/feedbackapp/feedback-server/internal/service"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSurveyService provides the survey lifecycle service.
func ProvideSurveyService(i do.Injector) (*service.SurveyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSurveyService(storeHandle.Store, catalogHandle.Catalog, v, log.Logger), nil
}

// ProvideInvitationService provides the distribution service.
func ProvideInvitationService(i do.Injector) (*service.InvitationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	senderHandle := do.MustInvoke[*EmailSenderHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInvitationService(
		storeHandle.Store,
		senderHandle.Sender,
		indexHandle.Indexer(),
		v,
		service.InvitationConfig{
			BaseURL:  cfg.Server.BaseURL,
			TagRules: cfg.TagRules(),
		},
		log.Logger,
	), nil
}

// ProvideSessionService provides the respondent session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, catalogHandle.Catalog, indexHandle.Indexer(), log.Logger), nil
}

// ProvideAnalyticsService provides the dashboard analytics service.
func ProvideAnalyticsService(i do.Injector) (*service.AnalyticsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnalyticsService(storeHandle.Store, catalogHandle.Catalog, indexHandle.Searcher(), log.Logger), nil
}

// ProvideExportService provides the CSV export service.
func ProvideExportService(i do.Injector) (*service.ExportService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewExportService(storeHandle.Store, cfg.Server.BaseURL), nil
}

// ProvideAuthService provides the organizer authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, v, log.Logger), nil
}
