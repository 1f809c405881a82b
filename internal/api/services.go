package api

import (
	"github.com/feedbackapp/feedback-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Surveys     *service.SurveyService
	Invitations *service.InvitationService
	Sessions    *service.SessionService
	Analytics   *service.AnalyticsService
	Export      *service.ExportService
	Auth        *service.AuthService
}
