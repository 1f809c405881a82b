package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/service"
)

func (s *Server) registerSurveyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSurveys",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/surveys",
		Summary:     "List surveys",
		Description: "Returns every survey, newest first",
		Tags:        []string{"Surveys"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSurveys)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSurvey",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/surveys",
		Summary:       "Create survey",
		Description:   "Creates a draft survey bound to a catalog definition",
		Tags:          []string{"Surveys"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateSurvey)

	huma.Register(s.api, huma.Operation{
		OperationID: "activateSurvey",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/surveys/{id}/activate",
		Summary:     "Activate survey",
		Description: "Makes the survey the active one. Any previously active survey is closed.",
		Tags:        []string{"Surveys"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleActivateSurvey)
}

// CreateSurveyRequest is the request body for creating a survey.
type CreateSurveyRequest struct {
	Title       string `json:"title" validate:"required,max=200" doc:"Survey title"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=100" doc:"URL slug (defaults to the slugified title)"`
	Description string `json:"description,omitempty" validate:"max=2000" doc:"Intro text shown to respondents"`
	Definition  string `json:"definition,omitempty" doc:"Catalog definition key (defaults to the built-in definition)"`
}

// CreateSurveyInput wraps the create request for Huma.
type CreateSurveyInput struct {
	Body CreateSurveyRequest
}

// SurveyIDInput identifies a survey by path.
type SurveyIDInput struct {
	ID string `path:"id" doc:"Survey ID"`
}

// SurveyOutput wraps a survey for Huma.
type SurveyOutput struct {
	Body *domain.Survey
}

// SurveyListOutput wraps the survey list for Huma.
type SurveyListOutput struct {
	Body struct {
		Surveys []*domain.Survey `json:"surveys" doc:"Surveys, newest first"`
	}
}

func (s *Server) handleListSurveys(ctx context.Context, _ *struct{}) (*SurveyListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	surveys, err := s.services.Surveys.List(ctx)
	if err != nil {
		return nil, err
	}
	if surveys == nil {
		surveys = []*domain.Survey{}
	}

	out := &SurveyListOutput{}
	out.Body.Surveys = surveys
	return out, nil
}

func (s *Server) handleCreateSurvey(ctx context.Context, input *CreateSurveyInput) (*SurveyOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	survey, err := s.services.Surveys.Create(ctx, service.CreateSurveyRequest{
		Title:       input.Body.Title,
		Slug:        input.Body.Slug,
		Description: input.Body.Description,
		Definition:  input.Body.Definition,
	})
	if err != nil {
		return nil, err
	}
	return &SurveyOutput{Body: survey}, nil
}

func (s *Server) handleActivateSurvey(ctx context.Context, input *SurveyIDInput) (*SurveyOutput, error) {
	principal, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	survey, err := s.services.Surveys.Activate(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Survey activated via API", "survey_id", survey.ID, "admin_id", principal.ID)
	return &SurveyOutput{Body: survey}, nil
}

// parseParticipantType validates an optional participant_type filter.
func parseParticipantType(raw string) (domain.ParticipantType, error) {
	if raw == "" {
		return "", nil
	}
	pt := domain.ParticipantType(raw)
	if !pt.Valid() {
		return "", domainerrors.ValidationWithDetails("invalid participant_type",
			map[string]string{"participant_type": "must be delegate or exhibitor"})
	}
	return pt, nil
}
