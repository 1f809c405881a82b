package service

import (
	"context"
	"log/slog"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/id"
	"github.com/feedbackapp/feedback-server/internal/store"
	"github.com/feedbackapp/feedback-server/internal/util"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

// SurveyService manages survey rows and which one is active.
type SurveyService struct {
	store     store.Store
	catalog   *catalog.Catalog
	validator *validation.Validator
	logger    *slog.Logger
	now       clock
}

// NewSurveyService creates a new survey service.
func NewSurveyService(st store.Store, cat *catalog.Catalog, v *validation.Validator, logger *slog.Logger) *SurveyService {
	return &SurveyService{
		store:     st,
		catalog:   cat,
		validator: v,
		logger:    orDefaultLogger(logger),
		now:       utcNow,
	}
}

// CreateSurveyRequest contains the data needed to create a survey.
type CreateSurveyRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,slug,max=100"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Definition  string `json:"definition,omitempty"`
}

// Create stores a new draft survey. The slug defaults to the slugified title
// and the definition to the embedded default.
func (s *SurveyService) Create(ctx context.Context, req CreateSurveyRequest) (*domain.Survey, error) {
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Title)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Definition == "" {
		req.Definition = catalog.DefaultDefinition
	}
	if !s.catalog.Has(req.Definition) {
		return nil, domainerrors.ValidationWithDetails("unknown survey definition",
			map[string]string{"definition": req.Definition})
	}

	surveyID, err := id.Generate(id.Survey)
	if err != nil {
		return nil, domainerrors.Internal("generate survey ID").WithCause(err)
	}

	survey := &domain.Survey{
		Entity:      domain.Entity{ID: surveyID},
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Definition:  req.Definition,
		Status:      domain.SurveyStatusDraft,
	}
	survey.InitTimestamps(s.now())

	if err := s.store.CreateSurvey(ctx, survey); err != nil {
		return nil, translateStoreError(err, "create survey", "")
	}

	s.logger.Info("Survey created", "survey_id", survey.ID, "slug", survey.Slug, "definition", survey.Definition)
	return survey, nil
}

// List returns every survey.
func (s *SurveyService) List(ctx context.Context) ([]*domain.Survey, error) {
	surveys, err := s.store.ListSurveys(ctx)
	if err != nil {
		return nil, translateStoreError(err, "list surveys", "")
	}
	return surveys, nil
}

// Active returns the survey invitations are issued for.
func (s *SurveyService) Active(ctx context.Context) (*domain.Survey, error) {
	survey, err := s.store.GetActiveSurvey(ctx)
	if err != nil {
		return nil, translateStoreError(err, "get active survey", "no active survey")
	}
	return survey, nil
}

// Activate makes the survey the active one, closing any other active survey.
func (s *SurveyService) Activate(ctx context.Context, surveyID string) (*domain.Survey, error) {
	if err := s.store.ActivateSurvey(ctx, surveyID, s.now()); err != nil {
		return nil, translateStoreError(err, "activate survey", "survey not found")
	}
	survey, err := s.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, translateStoreError(err, "get survey", "survey not found")
	}
	s.logger.Info("Survey activated", "survey_id", survey.ID)
	return survey, nil
}
