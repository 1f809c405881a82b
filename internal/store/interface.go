// Package store defines the persistence interface for the feedback server.
package store

import (
	"context"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Surveys
	CreateSurvey(ctx context.Context, survey *domain.Survey) error
	GetSurvey(ctx context.Context, id string) (*domain.Survey, error)
	GetActiveSurvey(ctx context.Context) (*domain.Survey, error)
	ListSurveys(ctx context.Context) ([]*domain.Survey, error)
	ActivateSurvey(ctx context.Context, id string, now time.Time) error

	// Contacts
	UpsertContact(ctx context.Context, contact *domain.Contact) error
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
	GetContactsByIDs(ctx context.Context, ids []string) (map[string]*domain.Contact, error)
	ListContacts(ctx context.Context) ([]*domain.Contact, error)

	// Invitations
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, id string) (*domain.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error)
	GetInvitationForContact(ctx context.Context, surveyID, contactID string) (*domain.Invitation, error)
	ReissueInvitation(ctx context.Context, inv *domain.Invitation) error
	MarkInvitationOpened(ctx context.Context, id string, at time.Time) (bool, error)
	SaveInvitationProgress(ctx context.Context, id string, page int, answers domain.Answers, at time.Time) error
	CompleteInvitation(ctx context.Context, invitationID string, resp *domain.Response) error
	ListInvitations(ctx context.Context, surveyID string) ([]*domain.InvitationView, error)

	// Responses
	GetResponse(ctx context.Context, id string) (*domain.ResponseView, error)
	ListResponses(ctx context.Context, filter ResponseFilter) ([]*domain.ResponseView, error)
	DeleteResponse(ctx context.Context, id string, at time.Time) (*domain.Response, error)

	// Admin users
	CreateAdminUser(ctx context.Context, user *domain.AdminUser) error
	GetAdminUser(ctx context.Context, id string) (*domain.AdminUser, error)
	GetAdminUserByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	RecordAdminLogin(ctx context.Context, id string, at time.Time) error
}

// ResponseFilter narrows a response listing. Zero values match everything.
type ResponseFilter struct {
	SurveyID        string
	ParticipantType domain.ParticipantType
}
