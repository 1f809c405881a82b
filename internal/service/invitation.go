package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/email"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/id"
	"github.com/feedbackapp/feedback-server/internal/store"
	"github.com/feedbackapp/feedback-server/internal/telemetry"
	"github.com/feedbackapp/feedback-server/internal/token"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

// issueAttempts bounds token regeneration on a uniqueness collision.
const issueAttempts = 3

// InvitationConfig holds the distribution settings.
type InvitationConfig struct {
	BaseURL  string // public origin for magic links
	TagRules domain.TagRules
}

// InvitationService issues invitations and mails them to contacts.
type InvitationService struct {
	store     store.Store
	sender    email.Sender
	indexer   ResponseIndexer
	validator *validation.Validator
	cfg       InvitationConfig
	logger    *slog.Logger
	now       clock
	newToken  func() (string, error)
}

// NewInvitationService creates a new invitation service.
func NewInvitationService(
	st store.Store,
	sender email.Sender,
	indexer ResponseIndexer,
	v *validation.Validator,
	cfg InvitationConfig,
	logger *slog.Logger,
) *InvitationService {
	return &InvitationService{
		store:     st,
		sender:    sender,
		indexer:   orNopIndexer(indexer),
		validator: v,
		cfg:       cfg,
		logger:    orDefaultLogger(logger),
		now:       utcNow,
		newToken:  token.New,
	}
}

// IssueOrRefresh returns a live invitation for (contact, survey). An existing
// invitation keeps its id and gets a new token, a new sent_at and a fresh
// expiry; otherwise a new one is created.
func (s *InvitationService) IssueOrRefresh(
	ctx context.Context,
	contact *domain.Contact,
	survey *domain.Survey,
	pt domain.ParticipantType,
) (*domain.Invitation, error) {
	if !survey.IsActive() {
		return nil, domainerrors.NotFound("no active survey")
	}
	if !pt.Valid() {
		return nil, domainerrors.Validationf("unknown participant type %q", pt)
	}

	var lastErr error
	for attempt := 1; attempt <= issueAttempts; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, domainerrors.Internal("generate token").WithCause(err)
		}
		now := s.now()

		existing, err := s.store.GetInvitationForContact(ctx, survey.ID, contact.ID)
		switch {
		case err == nil:
			existing.Email = contact.Email
			existing.ParticipantType = pt
			existing.Reissue(tok, now)
			err = s.store.ReissueInvitation(ctx, existing)
			if err == nil {
				s.logger.Info("Invitation reissued",
					"invitation_id", existing.ID,
					"contact_id", contact.ID,
					"survey_id", survey.ID,
				)
				return existing, nil
			}

		case errors.Is(err, store.ErrNotFound):
			var inv *domain.Invitation
			inv, err = s.newInvitation(contact, survey, pt, tok, now)
			if err != nil {
				return nil, err
			}
			err = s.store.CreateInvitation(ctx, inv)
			if err == nil {
				s.logger.Info("Invitation issued",
					"invitation_id", inv.ID,
					"contact_id", contact.ID,
					"survey_id", survey.ID,
				)
				return inv, nil
			}
		}

		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, translateStoreError(err, "issue invitation", "invitation not found")
		}
		lastErr = err
		s.logger.Warn("Invitation write collided, retrying", "contact_id", contact.ID, "attempt", attempt)
	}

	return nil, domainerrors.Persistence(lastErr, "issue invitation")
}

func (s *InvitationService) newInvitation(
	contact *domain.Contact,
	survey *domain.Survey,
	pt domain.ParticipantType,
	tok string,
	now time.Time,
) (*domain.Invitation, error) {
	invID, err := id.Generate(id.Invitation)
	if err != nil {
		return nil, domainerrors.Internal("generate invitation ID").WithCause(err)
	}
	inv := &domain.Invitation{
		Entity:          domain.Entity{ID: invID},
		SurveyID:        survey.ID,
		ContactID:       contact.ID,
		Email:           contact.Email,
		ParticipantType: pt,
	}
	inv.InitTimestamps(now)
	inv.Reissue(tok, now)
	return inv, nil
}

// SendBatchRequest selects the contacts to mail and optionally overrides the
// email subject and body.
type SendBatchRequest struct {
	ContactIDs []string `json:"contact_ids" validate:"required,min=1,max=1000,dive,required"`
	Subject    string   `json:"subject,omitempty" validate:"max=200"`
	Message    string   `json:"message,omitempty" validate:"max=5000"`
}

// RecipientError records why one contact was not mailed.
type RecipientError struct {
	ContactID string `json:"contact_id"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error"`
}

// BatchResult summarizes a batch send.
type BatchResult struct {
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []RecipientError `json:"errors"`
}

func (r *BatchResult) fail(contactID, addr, reason string) {
	r.Failed++
	r.Errors = append(r.Errors, RecipientError{ContactID: contactID, Email: addr, Error: reason})
}

// SendBatch issues or refreshes an invitation for each distinct contact and
// mails it. Recipients are processed in order and independently: a failure is recorded
// and the batch moves on. The batch only fails as a whole when there is no
// active survey or the contacts cannot be loaded.
func (s *InvitationService) SendBatch(ctx context.Context, req SendBatchRequest) (*BatchResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "InvitationService.SendBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(req.ContactIDs)))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	survey, err := s.store.GetActiveSurvey(ctx)
	if err != nil {
		err = translateStoreError(err, "get active survey", "no active survey")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	contacts, err := s.store.GetContactsByIDs(ctx, req.ContactIDs)
	if err != nil {
		err = translateStoreError(err, "load contacts", "contacts not found")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// A repeated id would reissue the token and kill the link in the first email.
	result := &BatchResult{Errors: []RecipientError{}}
	seen := make(map[string]struct{}, len(req.ContactIDs))
	for _, contactID := range req.ContactIDs {
		if _, dup := seen[contactID]; dup {
			continue
		}
		seen[contactID] = struct{}{}
		s.sendOne(ctx, survey, contacts[contactID], contactID, req, result)
	}

	span.SetAttributes(
		attribute.Int("batch.success", result.Success),
		attribute.Int("batch.failed", result.Failed),
	)
	s.logger.Info("Invitation batch sent",
		"survey_id", survey.ID,
		"success", result.Success,
		"failed", result.Failed,
	)
	return result, nil
}

// sendOne runs classify, issue, render and send for one recipient, recording
// the outcome in result. The invitation is committed before the email goes out.
func (s *InvitationService) sendOne(
	ctx context.Context,
	survey *domain.Survey,
	contact *domain.Contact,
	contactID string,
	req SendBatchRequest,
	result *BatchResult,
) {
	if contact == nil {
		result.fail(contactID, "", "contact not found")
		return
	}
	if !contact.HasEmail() {
		result.fail(contactID, "", "contact has no email address")
		return
	}
	pt, ok := s.cfg.TagRules.Classify(contact)
	if !ok {
		result.fail(contactID, contact.Email, "contact has no participant type tag")
		return
	}

	inv, err := s.IssueOrRefresh(ctx, contact, survey, pt)
	if err != nil {
		s.logger.Error("Failed to issue invitation", "contact_id", contactID, "error", err)
		result.fail(contactID, contact.Email, err.Error())
		return
	}

	msg, err := email.Invitation{
		To:              contact.Email,
		Name:            contact.DisplayName(),
		SurveyURL:       inv.SurveyURL(s.cfg.BaseURL),
		ParticipantType: pt,
		Subject:         req.Subject,
		Message:         req.Message,
	}.Render()
	if err != nil {
		result.fail(contactID, contact.Email, err.Error())
		return
	}

	res := s.sender.Send(ctx, msg)
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = "email delivery failed"
		}
		s.logger.Warn("Invitation email failed", "contact_id", contactID, "invitation_id", inv.ID, "error", reason)
		result.fail(contactID, contact.Email, domainerrors.Delivery(reason).Error())
		return
	}

	result.Success++
}

// DeleteResponse removes a response and reopens its invitation so the
// contact can be sent the survey again.
func (s *InvitationService) DeleteResponse(ctx context.Context, responseID string) error {
	resp, err := s.store.DeleteResponse(ctx, responseID, s.now())
	if err != nil {
		return translateStoreError(err, "delete response", "response not found")
	}

	if err := s.indexer.RemoveResponse(resp.ID); err != nil {
		s.logger.Warn("Failed to remove response from search index", "response_id", resp.ID, "error", err)
	}

	s.logger.Info("Response deleted",
		"response_id", resp.ID,
		"survey_id", resp.SurveyID,
		"contact_id", resp.ContactID,
	)
	return nil
}

// DistributionEntry is one row of the admin distribution list.
type DistributionEntry struct {
	ContactID       string                 `json:"contact_id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Organization    string                 `json:"organization,omitempty"`
	ParticipantType domain.ParticipantType `json:"participant_type"`
	InvitationID    string                 `json:"invitation_id,omitempty"`
	Status          string                 `json:"status"`
	SentAt          *time.Time             `json:"sent_at,omitempty"`
	OpenedAt        *time.Time             `json:"opened_at,omitempty"`
	RespondedAt     *time.Time             `json:"responded_at,omitempty"`
}

// DistributionStatusNotSent marks contacts with no invitation for the active survey.
const DistributionStatusNotSent = "not_sent"

// ListDistribution returns every mailable, classifiable contact joined with
// its invitation for the active survey, optionally narrowed to one
// participant type. With no active survey every contact is "not_sent".
func (s *InvitationService) ListDistribution(ctx context.Context, pt domain.ParticipantType) ([]DistributionEntry, error) {
	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return nil, translateStoreError(err, "list contacts", "")
	}

	byContact := make(map[string]*domain.InvitationView)
	survey, err := s.store.GetActiveSurvey(ctx)
	switch {
	case err == nil:
		invs, err := s.store.ListInvitations(ctx, survey.ID)
		if err != nil {
			return nil, translateStoreError(err, "list invitations", "")
		}
		for _, inv := range invs {
			if inv.ContactID != "" {
				byContact[inv.ContactID] = inv
			}
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, translateStoreError(err, "get active survey", "")
	}

	now := s.now()
	entries := make([]DistributionEntry, 0, len(contacts))
	for _, c := range contacts {
		if !c.HasEmail() {
			continue
		}
		cpt, ok := s.cfg.TagRules.Classify(c)
		if !ok || (pt != "" && cpt != pt) {
			continue
		}
		entry := DistributionEntry{
			ContactID:       c.ID,
			Name:            c.DisplayName(),
			Email:           c.Email,
			Organization:    c.Organization,
			ParticipantType: cpt,
			Status:          DistributionStatusNotSent,
		}
		if inv, ok := byContact[c.ID]; ok {
			entry.InvitationID = inv.ID
			entry.Status = inv.Status(now)
			entry.SentAt = inv.SentAt
			entry.OpenedAt = inv.OpenedAt
			entry.RespondedAt = inv.RespondedAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContactInput is one contact in an import.
type ContactInput struct {
	ID           string   `json:"id,omitempty" validate:"max=100"`
	Name         string   `json:"name" validate:"max=200"`
	Email        string   `json:"email,omitempty" validate:"omitempty,email"`
	Organization string   `json:"organization,omitempty" validate:"max=200"`
	Tags         []string `json:"tags,omitempty" validate:"max=50"`
}

// ImportContactsRequest is a bulk upsert.
type ImportContactsRequest struct {
	Contacts []ContactInput `json:"contacts" validate:"required,min=1,max=5000,dive"`
}

// ImportContacts upserts contacts by id, generating ids for new contacts.
// It returns the number of contacts written.
func (s *InvitationService) ImportContacts(ctx context.Context, req ImportContactsRequest) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}

	now := s.now()
	for i, in := range req.Contacts {
		contactID := strings.TrimSpace(in.ID)
		if contactID == "" {
			generated, err := id.Generate(id.Contact)
			if err != nil {
				return i, domainerrors.Internal("generate contact ID").WithCause(err)
			}
			contactID = generated
		}
		c := &domain.Contact{
			Entity:       domain.Entity{ID: contactID},
			Name:         strings.TrimSpace(in.Name),
			Email:        strings.TrimSpace(in.Email),
			Organization: strings.TrimSpace(in.Organization),
			Tags:         in.Tags,
		}
		c.InitTimestamps(now)
		if err := s.store.UpsertContact(ctx, c); err != nil {
			return i, translateStoreError(err, fmt.Sprintf("upsert contact %s", contactID), "")
		}
	}

	s.logger.Info("Contacts imported", "count", len(req.Contacts))
	return len(req.Contacts), nil
}
