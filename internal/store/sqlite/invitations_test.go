package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

func TestCreateAndGetInvitation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "ct-1", "ct-1@example.com")

	inv := newTestInvitation("inv-1", "srv-1", "ct-1", "tok-1")
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	got, err := s.GetInvitationByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetInvitationByToken: %v", err)
	}
	if got.ID != "inv-1" || got.ContactID != "ct-1" || got.SurveyID != "srv-1" {
		t.Errorf("got %+v", got)
	}
	if got.ParticipantType != domain.ParticipantDelegate {
		t.Errorf("ParticipantType: got %q", got.ParticipantType)
	}
	if got.SentAt == nil || got.ExpiresAt.Sub(*got.SentAt).Round(time.Second) != domain.InvitationTTL {
		t.Errorf("ExpiresAt should be SentAt + TTL: sent=%v expires=%v", got.SentAt, got.ExpiresAt)
	}
	if got.OpenedAt != nil || got.RespondedAt != nil || got.CurrentPage != nil || got.PartialResponses != nil {
		t.Errorf("expected fresh invitation, got %+v", got)
	}

	byPair, err := s.GetInvitationForContact(ctx, "srv-1", "ct-1")
	if err != nil || byPair.ID != "inv-1" {
		t.Errorf("GetInvitationForContact: %v, %v", byPair, err)
	}

	if _, err := s.GetInvitationByToken(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateInvitation_UniqueConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "ct-1", "ct-1@example.com")
	insertTestContact(t, s, "ct-2", "ct-2@example.com")

	if err := s.CreateInvitation(ctx, newTestInvitation("inv-1", "srv-1", "ct-1", "tok-1")); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	// Same token, different contact.
	err := s.CreateInvitation(ctx, newTestInvitation("inv-2", "srv-1", "ct-2", "tok-1"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("token collision: expected ErrAlreadyExists, got %v", err)
	}

	// Same (survey, contact), different token.
	err = s.CreateInvitation(ctx, newTestInvitation("inv-3", "srv-1", "ct-1", "tok-3"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("pair collision: expected ErrAlreadyExists, got %v", err)
	}
}

func TestReissueInvitation_ReplacesToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "ct-1", "ct-1@example.com")

	inv := newTestInvitation("inv-1", "srv-1", "ct-1", "tok-old")
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	later := time.Now().Add(24 * time.Hour)
	inv.Reissue("tok-new", later)
	if err := s.ReissueInvitation(ctx, inv); err != nil {
		t.Fatalf("ReissueInvitation: %v", err)
	}

	if _, err := s.GetInvitationByToken(ctx, "tok-old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old token should no longer resolve, got %v", err)
	}
	got, err := s.GetInvitationByToken(ctx, "tok-new")
	if err != nil {
		t.Fatalf("GetInvitationByToken: %v", err)
	}
	if got.ID != "inv-1" {
		t.Errorf("identity not preserved: got %s", got.ID)
	}
	if got.ExpiresAt.Unix() != later.Add(domain.InvitationTTL).Unix() {
		t.Errorf("ExpiresAt: got %v", got.ExpiresAt)
	}

	missing := newTestInvitation("inv-missing", "srv-1", "ct-1", "tok-x")
	if err := s.ReissueInvitation(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkInvitationOpened_OnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "ct-1", "ct-1@example.com")
	if err := s.CreateInvitation(ctx, newTestInvitation("inv-1", "srv-1", "ct-1", "tok-1")); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	first := time.Now()
	set, err := s.MarkInvitationOpened(ctx, "inv-1", first)
	if err != nil || !set {
		t.Fatalf("first open: set=%v err=%v", set, err)
	}
	set, err = s.MarkInvitationOpened(ctx, "inv-1", first.Add(time.Hour))
	if err != nil || set {
		t.Fatalf("second open: set=%v err=%v", set, err)
	}

	got, _ := s.GetInvitation(ctx, "inv-1")
	if got.OpenedAt == nil || got.OpenedAt.Unix() != first.Unix() {
		t.Errorf("OpenedAt: got %v, want %v", got.OpenedAt, first)
	}
}

func TestSaveProgressThenComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "ct-1", "ct-1@example.com")
	if err := s.CreateInvitation(ctx, newTestInvitation("inv-1", "srv-1", "ct-1", "tok-1")); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	answers := domain.Answers{"overall_experience": float64(4), "what_worked": "Networking"}
	if err := s.SaveInvitationProgress(ctx, "inv-1", 1, answers, time.Now()); err != nil {
		t.Fatalf("SaveInvitationProgress: %v", err)
	}

	got, _ := s.GetInvitation(ctx, "inv-1")
	if got.CurrentPage == nil || *got.CurrentPage != 1 {
		t.Errorf("CurrentPage: got %v", got.CurrentPage)
	}
	if got.PartialResponses["overall_experience"] != float64(4) {
		t.Errorf("PartialResponses: got %v", got.PartialResponses)
	}

	resp := &domain.Response{
		ID:              "resp-1",
		SurveyID:        "srv-1",
		ContactID:       "ct-1",
		InvitationID:    "inv-1",
		ParticipantType: domain.ParticipantDelegate,
		Answers:         answers,
		CompletedAt:     time.Now(),
	}
	if err := s.CompleteInvitation(ctx, "inv-1", resp); err != nil {
		t.Fatalf("CompleteInvitation: %v", err)
	}

	got, _ = s.GetInvitation(ctx, "inv-1")
	if got.RespondedAt == nil {
		t.Fatal("RespondedAt should be set")
	}
	if got.CurrentPage != nil || got.PartialResponses != nil {
		t.Errorf("progress should be cleared on response: page=%v partial=%v", got.CurrentPage, got.PartialResponses)
	}

	// A second submit loses the race.
	resp2 := *resp
	resp2.ID = "resp-2"
	if err := s.CompleteInvitation(ctx, "inv-1", &resp2); !errors.Is(err, store.ErrConflict) {
		t.Errorf("second complete: expected ErrConflict, got %v", err)
	}
	if _, err := s.GetResponse(ctx, "resp-2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("losing response must not be stored, got %v", err)
	}

	// Progress can no longer be saved.
	if err := s.SaveInvitationProgress(ctx, "inv-1", 2, answers, time.Now()); !errors.Is(err, store.ErrConflict) {
		t.Errorf("save after respond: expected ErrConflict, got %v", err)
	}
	if err := s.SaveInvitationProgress(ctx, "inv-missing", 2, answers, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("save on missing: expected ErrNotFound, got %v", err)
	}
}

func TestListInvitations_OrderedByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSurvey(t, s, "srv-1", domain.SurveyStatusActive)
	insertTestContact(t, s, "zed", "zed@example.com")
	insertTestContact(t, s, "amy", "amy@example.com")

	for _, inv := range []*domain.Invitation{
		newTestInvitation("inv-z", "srv-1", "zed", "tok-z"),
		newTestInvitation("inv-a", "srv-1", "amy", "tok-a"),
	} {
		if err := s.CreateInvitation(ctx, inv); err != nil {
			t.Fatalf("CreateInvitation: %v", err)
		}
	}

	views, err := s.ListInvitations(ctx, "srv-1")
	if err != nil {
		t.Fatalf("ListInvitations: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 invitations, got %d", len(views))
	}
	if views[0].Email != "amy@example.com" || views[0].Name != "Contact amy" {
		t.Errorf("first row: got %+v", views[0])
	}
}
