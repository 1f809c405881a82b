package sqlite

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/feedbackapp/feedback-server/internal/store"
)

func TestUpsertContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := insertTestContact(t, s, "ct-1", "ada@example.com", "26 Conference Delegate")

	got, err := s.GetContact(ctx, "ct-1")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Email != "ada@example.com" || !slices.Equal(got.Tags, c.Tags) {
		t.Errorf("got %+v", got)
	}

	// Update in place, dropping the email.
	c.Email = ""
	c.Tags = []string{"26 Conference Exhibitor"}
	c.UpdatedAt = time.Now().Add(time.Minute)
	if err := s.UpsertContact(ctx, c); err != nil {
		t.Fatalf("UpsertContact update: %v", err)
	}

	got, err = s.GetContact(ctx, "ct-1")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Email != "" {
		t.Errorf("Email: expected empty, got %q", got.Email)
	}
	if !slices.Equal(got.Tags, []string{"26 Conference Exhibitor"}) {
		t.Errorf("Tags: got %v", got.Tags)
	}
	if got.CreatedAt.Unix() != c.CreatedAt.Unix() {
		t.Errorf("CreatedAt changed on upsert")
	}

	if _, err := s.GetContact(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetContactsByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestContact(t, s, "ct-1", "a@example.com")
	insertTestContact(t, s, "ct-2", "b@example.com")

	got, err := s.GetContactsByIDs(ctx, []string{"ct-1", "ct-2", "ct-missing"})
	if err != nil {
		t.Fatalf("GetContactsByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(got))
	}
	if _, ok := got["ct-missing"]; ok {
		t.Error("missing contact should be absent")
	}

	empty, err := s.GetContactsByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty lookup: %v, %v", empty, err)
	}

	all, err := s.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListContacts: got %d", len(all))
	}
}
