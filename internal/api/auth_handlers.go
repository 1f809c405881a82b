package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/feedbackapp/feedback-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Admin login",
		Description: "Authenticates an organizer and returns a PASETO access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current principal",
		Description: "Returns the principal resolved from the bearer token",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleWhoAmI)
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" doc:"Admin email"`
	Password string `json:"password" validate:"required,max=1024" doc:"Admin password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// AdminResponse describes an admin account.
type AdminResponse struct {
	ID          string     `json:"id" doc:"Admin ID"`
	Email       string     `json:"email" doc:"Admin email"`
	Name        string     `json:"name,omitempty" doc:"Display name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" doc:"Last login timestamp"`
}

// AuthResponse contains the access token and admin info.
type AuthResponse struct {
	AccessToken string        `json:"access_token" doc:"PASETO access token"`
	TokenType   string        `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn   int           `json:"expires_in" doc:"Token expiry in seconds"`
	Admin       AdminResponse `json:"admin" doc:"Authenticated admin"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// PrincipalOutput wraps the current principal for Huma.
type PrincipalOutput struct {
	Body struct {
		ID     string `json:"id" doc:"Principal ID"`
		Email  string `json:"email,omitempty" doc:"Principal email"`
		Source string `json:"source" doc:"Identity source: local or external"`
	}
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		Body: AuthResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			ExpiresIn:   int(time.Until(resp.ExpiresAt).Seconds()),
			Admin: AdminResponse{
				ID:          resp.Admin.ID,
				Email:       resp.Admin.Email,
				Name:        resp.Admin.Name,
				LastLoginAt: resp.Admin.LastLoginAt,
			},
		},
	}, nil
}

func (s *Server) handleWhoAmI(ctx context.Context, _ *struct{}) (*PrincipalOutput, error) {
	p, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	out := &PrincipalOutput{}
	out.Body.ID = p.ID
	out.Body.Email = p.Email
	out.Body.Source = p.Source
	return out, nil
}
