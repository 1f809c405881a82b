package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/service"
)

// registerSessionRoutes wires the respondent surface. The token in the path
// is the only credential.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/s/{token}",
		Summary:     "Resume survey session",
		Description: "Resolves a magic-link token to its session state. Terminal states carry no pages.",
		Tags:        []string{"Survey Session"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveSessionProgress",
		Method:      http.MethodPost,
		Path:        "/api/v1/s/{token}/progress",
		Summary:     "Save page and advance",
		Description: "Validates the required questions on the page and checkpoints the next page",
		Tags:        []string{"Survey Session"},
	}, s.handleSaveProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/s/{token}/submit",
		Summary:     "Submit survey",
		Description: "Validates the final page and records the response. A link can be submitted once.",
		Tags:        []string{"Survey Session"},
	}, s.handleSubmit)
}

// SessionInput identifies a session by token.
type SessionInput struct {
	Token string `path:"token" maxLength:"128" doc:"Magic-link token"`
}

// SessionOutput wraps a session view for Huma.
type SessionOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *service.SessionView
}

// ProgressRequest is the request body for saving a page.
type ProgressRequest struct {
	Page    int            `json:"page" minimum:"0" doc:"Zero-based page being saved"`
	Answers domain.Answers `json:"answers,omitempty" doc:"Answers on the page keyed by question ID"`
}

// ProgressInput wraps the progress request for Huma.
type ProgressInput struct {
	Token string `path:"token" maxLength:"128" doc:"Magic-link token"`
	Body  ProgressRequest
}

// SubmitSessionRequest is the request body for a final submit.
type SubmitSessionRequest struct {
	Answers domain.Answers `json:"answers,omitempty" doc:"Answers on the final page keyed by question ID"`
}

// SubmitInput wraps the submit request for Huma.
type SubmitInput struct {
	Token string               `path:"token" maxLength:"128" doc:"Magic-link token"`
	Body  SubmitSessionRequest `required:"false"`
}

func sessionOutput(v *service.SessionView) *SessionOutput {
	return &SessionOutput{CacheControl: CacheNoStore, Body: v}
}

func (s *Server) handleGetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	view, err := s.services.Sessions.Resume(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return sessionOutput(view), nil
}

func (s *Server) handleSaveProgress(ctx context.Context, input *ProgressInput) (*SessionOutput, error) {
	view, err := s.services.Sessions.Advance(ctx, input.Token, service.AdvanceRequest{
		Page:    input.Body.Page,
		Answers: input.Body.Answers,
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(view), nil
}

func (s *Server) handleSubmit(ctx context.Context, input *SubmitInput) (*SessionOutput, error) {
	view, err := s.services.Sessions.Submit(ctx, input.Token, service.SubmitRequest{
		Answers: input.Body.Answers,
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(view), nil
}
