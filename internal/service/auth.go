package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/id"
	"github.com/feedbackapp/feedback-server/internal/store"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

// AuthService manages admin accounts and logins.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
	now       clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(st store.Store, tokens *auth.TokenService, v *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     st,
		tokens:    tokens,
		validator: v,
		logger:    orDefaultLogger(logger),
		now:       utcNow,
	}
}

// LoginRequest contains admin credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Admin       *domain.AdminUser `json:"admin"`
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	admin, err := s.store.GetAdminUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Hash anyway so response timing does not reveal which emails exist.
			auth.VerifyPassword(dummyHash, req.Password)
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, translateStoreError(err, "get admin", "")
	}

	if !auth.VerifyPassword(admin.PasswordHash, req.Password) {
		s.logger.Warn("Admin login failed", "email", admin.Email)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	tok, expires, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, domainerrors.Internal("issue access token").WithCause(err)
	}

	now := s.now()
	if err := s.store.RecordAdminLogin(ctx, admin.ID, now); err != nil {
		s.logger.Warn("Failed to record admin login", "admin_id", admin.ID, "error", err)
	} else {
		admin.LastLoginAt = &now
	}

	s.logger.Info("Admin logged in", "admin_id", admin.ID)
	return &LoginResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: expires, Admin: admin}, nil
}

// dummyHash is a valid argon2id hash of a random password.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$u4VUYm3hd1Ei0fFZkwH3o1dGqkBl8SGOcrVdK3Qm6ZM"

// CreateAdminRequest contains the data needed to create an admin account.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// CreateAdmin creates an admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*domain.AdminUser, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	adminID, err := id.Generate(id.Admin)
	if err != nil {
		return nil, domainerrors.Internal("generate admin ID").WithCause(err)
	}

	admin := &domain.AdminUser{
		Entity:       domain.Entity{ID: adminID},
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	admin.InitTimestamps(s.now())

	if err := s.store.CreateAdminUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an admin with this email already exists")
		}
		return nil, translateStoreError(err, "create admin", "")
	}

	s.logger.Info("Admin created", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}
