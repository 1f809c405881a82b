package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/feedbackapp/feedback-server/internal/aggregate"
	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/search"
	"github.com/feedbackapp/feedback-server/internal/store"
	"github.com/feedbackapp/feedback-server/internal/telemetry"
)

// ResponseSearcher queries the response index.
type ResponseSearcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	Reindex(responses []*domain.Response) error
}

// AnalyticsService serves the organizer dashboard.
type AnalyticsService struct {
	store    store.Store
	catalog  *catalog.Catalog
	searcher ResponseSearcher
	logger   *slog.Logger
}

// NewAnalyticsService creates a new analytics service. searcher may be nil
// when full-text search is disabled.
func NewAnalyticsService(st store.Store, cat *catalog.Catalog, searcher ResponseSearcher, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:    st,
		catalog:  cat,
		searcher: searcher,
		logger:   orDefaultLogger(logger),
	}
}

// ResponseQuery selects responses. An empty SurveyID means the active survey.
type ResponseQuery struct {
	SurveyID        string
	ParticipantType domain.ParticipantType
}

// SummaryRequest selects the responses to aggregate. A ResponseID narrows
// the summary to that one response.
type SummaryRequest struct {
	ResponseQuery
	ResponseID string
}

// SummaryResult is a summary with the survey it was computed for.
type SummaryResult struct {
	SurveyID        string                 `json:"survey_id"`
	ParticipantType domain.ParticipantType `json:"participant_type,omitempty"`
	aggregate.Summary
}

func (s *AnalyticsService) resolveSurvey(ctx context.Context, surveyID string) (*domain.Survey, error) {
	if surveyID == "" {
		survey, err := s.store.GetActiveSurvey(ctx)
		if err != nil {
			return nil, translateStoreError(err, "get active survey", "no active survey")
		}
		return survey, nil
	}
	survey, err := s.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, translateStoreError(err, "get survey", "survey not found")
	}
	return survey, nil
}

// Summary aggregates the selected responses over the questions the survey
// definition tracks for the participant type (all flows when empty).
func (s *AnalyticsService) Summary(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "AnalyticsService.Summary")
	defer span.End()

	var (
		survey    *domain.Survey
		responses []*domain.Response
		pt        = req.ParticipantType
		err       error
	)

	if req.ResponseID != "" {
		view, err := s.store.GetResponse(ctx, req.ResponseID)
		if err != nil {
			return nil, translateStoreError(err, "get response", "response not found")
		}
		if survey, err = s.resolveSurvey(ctx, view.SurveyID); err != nil {
			return nil, err
		}
		resp := view.Response
		responses = []*domain.Response{&resp}
		pt = resp.ParticipantType
	} else {
		if survey, err = s.resolveSurvey(ctx, req.SurveyID); err != nil {
			return nil, err
		}
		views, err := s.store.ListResponses(ctx, store.ResponseFilter{SurveyID: survey.ID, ParticipantType: pt})
		if err != nil {
			return nil, translateStoreError(err, "list responses", "")
		}
		responses = make([]*domain.Response, len(views))
		for i, v := range views {
			responses[i] = &v.Response
		}
	}

	def, err := s.catalog.Get(survey.Definition)
	if err != nil {
		return nil, err
	}

	summary := aggregate.Summarize(def.Tracked(pt), responses, aggregate.Options{Single: req.ResponseID != ""})
	span.SetAttributes(
		attribute.String("survey.id", survey.ID),
		attribute.Int("responses.count", summary.ResponseCount),
	)

	return &SummaryResult{SurveyID: survey.ID, ParticipantType: pt, Summary: summary}, nil
}

// ListResponses returns the responses for the admin list, most recent first.
func (s *AnalyticsService) ListResponses(ctx context.Context, q ResponseQuery) ([]*domain.ResponseView, error) {
	survey, err := s.resolveSurvey(ctx, q.SurveyID)
	if err != nil {
		return nil, err
	}
	views, err := s.store.ListResponses(ctx, store.ResponseFilter{SurveyID: survey.ID, ParticipantType: q.ParticipantType})
	if err != nil {
		return nil, translateStoreError(err, "list responses", "")
	}
	if views == nil {
		views = []*domain.ResponseView{}
	}
	return views, nil
}

// Search runs a full-text query over free-text answers.
func (s *AnalyticsService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.searcher == nil {
		return nil, domainerrors.NotFound("search is disabled")
	}
	res, err := s.searcher.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Internal("search responses").WithCause(err)
	}
	return res, nil
}

// RebuildIndex reloads every stored response into the search index.
func (s *AnalyticsService) RebuildIndex(ctx context.Context) error {
	if s.searcher == nil {
		return nil
	}
	views, err := s.store.ListResponses(ctx, store.ResponseFilter{})
	if err != nil {
		return translateStoreError(err, "list responses", "")
	}
	responses := make([]*domain.Response, len(views))
	for i, v := range views {
		responses[i] = &v.Response
	}
	if err := s.searcher.Reindex(responses); err != nil {
		return domainerrors.Internal("rebuild search index").WithCause(err)
	}
	s.logger.Info("Search index rebuilt", "responses", len(responses))
	return nil
}
