package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestSurvey creates a survey with the given status.
func insertTestSurvey(t *testing.T, s *Store, id string, status domain.SurveyStatus) *domain.Survey {
	t.Helper()
	now := time.Now()
	sv := &domain.Survey{
		Entity:     domain.Entity{ID: id, CreatedAt: now, UpdatedAt: now},
		Slug:       id,
		Title:      "Survey " + id,
		Definition: "conference-2026",
		Status:     status,
	}
	if err := s.CreateSurvey(context.Background(), sv); err != nil {
		t.Fatalf("CreateSurvey(%s): %v", id, err)
	}
	return sv
}

// insertTestContact creates a contact with the given email.
func insertTestContact(t *testing.T, s *Store, id, email string, tags ...string) *domain.Contact {
	t.Helper()
	now := time.Now()
	c := &domain.Contact{
		Entity: domain.Entity{ID: id, CreatedAt: now, UpdatedAt: now},
		Name:   "Contact " + id,
		Email:  email,
		Tags:   tags,
	}
	if err := s.UpsertContact(context.Background(), c); err != nil {
		t.Fatalf("UpsertContact(%s): %v", id, err)
	}
	return c
}

// newTestInvitation builds (but does not insert) an invitation.
func newTestInvitation(id, surveyID, contactID, token string) *domain.Invitation {
	now := time.Now()
	inv := &domain.Invitation{
		Entity:          domain.Entity{ID: id, CreatedAt: now, UpdatedAt: now},
		SurveyID:        surveyID,
		ContactID:       contactID,
		Email:           contactID + "@example.com",
		ParticipantType: domain.ParticipantDelegate,
	}
	inv.Reissue(token, now)
	return inv
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	for _, table := range []string{"surveys", "contacts", "invitations", "responses", "admin_users"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	s2.Close()
}
