package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/search"
	"github.com/feedbackapp/feedback-server/internal/service"
)

func (s *Server) registerResponseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listResponses",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/responses",
		Summary:     "List responses",
		Description: "Lists completed responses for the active survey, most recent first",
		Tags:        []string{"Responses"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListResponses)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchResponses",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/responses/search",
		Summary:     "Search responses",
		Description: "Full-text search over free-text answers",
		Tags:        []string{"Responses"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchResponses)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteResponse",
		Method:        http.MethodDelete,
		Path:          "/api/v1/admin/responses/{id}",
		Summary:       "Delete response",
		Description:   "Deletes a response and reopens the respondent's invitation",
		Tags:          []string{"Responses"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteResponse)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAnalytics",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/analytics",
		Summary:     "Response analytics",
		Description: "Aggregates numeric, rating-group and text questions. With response_id, summarizes one response.",
		Tags:        []string{"Responses"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAnalytics)
}

// ResponseListOutput wraps the response list for Huma.
type ResponseListOutput struct {
	Body struct {
		Responses []*domain.ResponseView `json:"responses" doc:"Responses, most recent first"`
	}
}

// SearchResponsesInput contains parameters for searching responses.
type SearchResponsesInput struct {
	Query           string `query:"q" maxLength:"200" doc:"Search query"`
	ParticipantType string `query:"participant_type" doc:"delegate or exhibitor; omit for both"`
	SurveyID        string `query:"survey_id" doc:"Restrict to one survey"`
	Limit           int    `query:"limit" minimum:"0" maximum:"100" doc:"Max hits (default 20)"`
	Offset          int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchResponsesOutput wraps a search result for Huma.
type SearchResponsesOutput struct {
	Body *search.SearchResult
}

// ResponseIDInput identifies a response by path.
type ResponseIDInput struct {
	ID string `path:"id" doc:"Response ID"`
}

// AnalyticsInput selects the responses to aggregate.
type AnalyticsInput struct {
	ParticipantType string `query:"participant_type" doc:"delegate or exhibitor; omit for both"`
	ResponseID      string `query:"response_id" doc:"Summarize a single response"`
	SurveyID        string `query:"survey_id" doc:"Survey ID; omit for the active survey"`
}

// AnalyticsOutput wraps a summary for Huma.
type AnalyticsOutput struct {
	Body *service.SummaryResult
}

func (s *Server) handleListResponses(ctx context.Context, input *ParticipantFilterInput) (*ResponseListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	pt, err := parseParticipantType(input.ParticipantType)
	if err != nil {
		return nil, err
	}

	views, err := s.services.Analytics.ListResponses(ctx, service.ResponseQuery{ParticipantType: pt})
	if err != nil {
		return nil, err
	}

	out := &ResponseListOutput{}
	out.Body.Responses = views
	return out, nil
}

func (s *Server) handleSearchResponses(ctx context.Context, input *SearchResponsesInput) (*SearchResponsesOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	pt, err := parseParticipantType(input.ParticipantType)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Analytics.Search(ctx, search.SearchParams{
		Query:           input.Query,
		ParticipantType: string(pt),
		SurveyID:        input.SurveyID,
		Limit:           input.Limit,
		Offset:          input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchResponsesOutput{Body: result}, nil
}

func (s *Server) handleDeleteResponse(ctx context.Context, input *ResponseIDInput) (*struct{}, error) {
	principal, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Invitations.DeleteResponse(ctx, input.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Response deleted via API", "response_id", input.ID, "admin_id", principal.ID)
	return &struct{}{}, nil
}

func (s *Server) handleAnalytics(ctx context.Context, input *AnalyticsInput) (*AnalyticsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	pt, err := parseParticipantType(input.ParticipantType)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Analytics.Summary(ctx, service.SummaryRequest{
		ResponseQuery: service.ResponseQuery{SurveyID: input.SurveyID, ParticipantType: pt},
		ResponseID:    input.ResponseID,
	})
	if err != nil {
		return nil, err
	}
	return &AnalyticsOutput{Body: result}, nil
}
