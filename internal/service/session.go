package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/id"
	"github.com/feedbackapp/feedback-server/internal/session"
	"github.com/feedbackapp/feedback-server/internal/store"
	"github.com/feedbackapp/feedback-server/internal/telemetry"
	"github.com/feedbackapp/feedback-server/internal/token"
)

// SessionService drives a respondent through a survey by token.
type SessionService struct {
	store   store.Store
	catalog *catalog.Catalog
	indexer ResponseIndexer
	logger  *slog.Logger
	now     clock
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, cat *catalog.Catalog, indexer ResponseIndexer, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:   st,
		catalog: cat,
		indexer: orNopIndexer(indexer),
		logger:  orDefaultLogger(logger),
		now:     utcNow,
	}
}

// SurveyInfo is the public part of a survey shown to respondents.
type SurveyInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SessionView is what a respondent's client renders. Terminal states carry
// only State; in-progress sessions carry the pages and the resume point.
type SessionView struct {
	State           session.Kind           `json:"state"`
	InvitationID    string                 `json:"invitation_id,omitempty"`
	ParticipantType domain.ParticipantType `json:"participant_type,omitempty"`
	Name            string                 `json:"name,omitempty"`
	Survey          *SurveyInfo            `json:"survey,omitempty"`
	Pages           []domain.Page          `json:"pages,omitempty"`
	CurrentPage     int                    `json:"current_page"`
	Answers         domain.Answers         `json:"answers,omitempty"`
	ResponseID      string                 `json:"response_id,omitempty"`
}

// loaded is an invitation with its survey and evaluated state.
type loaded struct {
	inv    *domain.Invitation
	survey *domain.Survey
	state  session.State
}

func (s *SessionService) load(ctx context.Context, tok string) (*loaded, error) {
	if !token.Valid(tok) {
		return nil, domainerrors.NotFound("invitation not found")
	}

	inv, err := s.store.GetInvitationByToken(ctx, tok)
	if err != nil {
		return nil, translateStoreError(err, "get invitation", "invitation not found")
	}

	survey, err := s.store.GetSurvey(ctx, inv.SurveyID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, translateStoreError(err, "get survey", "survey not found")
	}

	return &loaded{
		inv:    inv,
		survey: survey,
		state:  session.Classify(inv, survey, s.now()),
	}, nil
}

func (s *SessionService) pages(l *loaded) ([]domain.Page, error) {
	pages, err := s.catalog.Pages(l.survey.Definition, l.inv.ParticipantType)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domainerrors.Internal("survey has no pages for participant type")
	}
	return pages, nil
}

func (s *SessionService) view(ctx context.Context, l *loaded, pages []domain.Page) *SessionView {
	v := &SessionView{
		State:           l.state.Kind,
		InvitationID:    l.inv.ID,
		ParticipantType: l.inv.ParticipantType,
		Name:            s.respondentName(ctx, l.inv),
		Pages:           pages,
		CurrentPage:     l.state.Page,
		Answers:         l.state.Answers,
	}
	if l.survey != nil {
		v.Survey = &SurveyInfo{Title: l.survey.Title, Description: l.survey.Description}
	}
	return v
}

func (s *SessionService) respondentName(ctx context.Context, inv *domain.Invitation) string {
	if inv.ContactID != "" {
		if c, err := s.store.GetContact(ctx, inv.ContactID); err == nil {
			return c.DisplayName()
		}
	}
	return (&domain.Contact{Email: inv.Email}).DisplayName()
}

// Resume resolves a token to the respondent's current state. Terminal states
// are reported without changes; the first resumable visit records opened_at.
func (s *SessionService) Resume(ctx context.Context, tok string) (*SessionView, error) {
	l, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	if l.state.Terminal() {
		return &SessionView{State: l.state.Kind}, nil
	}

	pages, err := s.pages(l)
	if err != nil {
		return nil, err
	}

	if !l.inv.IsOpened() {
		marked, err := s.store.MarkInvitationOpened(ctx, l.inv.ID, s.now())
		if err != nil {
			return nil, translateStoreError(err, "mark invitation opened", "invitation not found")
		}
		if marked {
			s.logger.Info("Invitation opened", "invitation_id", l.inv.ID)
		}
	}

	return s.view(ctx, l, pages), nil
}

// AdvanceRequest saves the answers on one page and moves to the next.
type AdvanceRequest struct {
	Page    int            `json:"page"`
	Answers domain.Answers `json:"answers"`
}

// Advance validates the required questions on req.Page against the merged
// answers and checkpoints page+1 with the merged answers in one write.
// Nothing is persisted when validation fails.
func (s *SessionService) Advance(ctx context.Context, tok string, req AdvanceRequest) (*SessionView, error) {
	l, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	if l.state.Terminal() {
		return nil, domainerrors.SessionClosed(string(l.state.Kind))
	}

	pages, err := s.pages(l)
	if err != nil {
		return nil, err
	}

	next, err := session.Advance(l.state, pages, req.Page, req.Answers)
	if err != nil {
		return nil, err
	}

	err = s.store.SaveInvitationProgress(ctx, l.inv.ID, next.Page, next.Answers, s.now())
	if errors.Is(err, store.ErrConflict) {
		return nil, domainerrors.SessionClosed(string(session.AlreadyResponded))
	}
	if err != nil {
		return nil, translateStoreError(err, "save progress", "invitation not found")
	}

	s.logger.Debug("Session progress saved", "invitation_id", l.inv.ID, "page", next.Page)

	l.state = next
	return s.view(ctx, l, pages), nil
}

// SubmitRequest carries the answers on the final page.
type SubmitRequest struct {
	Answers domain.Answers `json:"answers"`
}

// Submit validates the final page, then atomically marks the invitation
// responded and records the response. A concurrent or repeated submit
// fails with SessionClosed.
func (s *SessionService) Submit(ctx context.Context, tok string, req SubmitRequest) (*SessionView, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SessionService.Submit")
	defer span.End()

	view, err := s.submit(ctx, tok, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("response.id", view.ResponseID))
	return view, nil
}

func (s *SessionService) submit(ctx context.Context, tok string, req SubmitRequest) (*SessionView, error) {
	l, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	if l.state.Terminal() {
		return nil, domainerrors.SessionClosed(string(l.state.Kind))
	}

	pages, err := s.pages(l)
	if err != nil {
		return nil, err
	}

	answers, err := session.Submit(l.state, pages, req.Answers)
	if err != nil {
		return nil, err
	}

	respID, err := id.Generate(id.Response)
	if err != nil {
		return nil, domainerrors.Internal("generate response ID").WithCause(err)
	}
	resp := &domain.Response{
		ID:              respID,
		SurveyID:        l.inv.SurveyID,
		ContactID:       l.inv.ContactID,
		InvitationID:    l.inv.ID,
		ParticipantType: l.inv.ParticipantType,
		Answers:         answers,
		CompletedAt:     s.now(),
	}

	err = s.store.CompleteInvitation(ctx, l.inv.ID, resp)
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrAlreadyExists) {
		return nil, domainerrors.SessionClosed(string(session.AlreadyResponded))
	}
	if err != nil {
		return nil, translateStoreError(err, "submit response", "invitation not found")
	}

	if err := s.indexer.IndexResponse(resp); err != nil {
		s.logger.Warn("Failed to index response", "response_id", resp.ID, "error", err)
	}

	s.logger.Info("Survey submitted",
		"invitation_id", l.inv.ID,
		"response_id", resp.ID,
		"participant_type", resp.ParticipantType,
	)

	return &SessionView{State: session.Submitted, InvitationID: l.inv.ID, ResponseID: resp.ID}, nil
}
