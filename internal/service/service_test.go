package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/email"
	"github.com/feedbackapp/feedback-server/internal/store/sqlite"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

const (
	testBaseURL      = "https://feedback.example.com"
	testDelegateTag  = "26 Conference Delegate"
	testExhibitorTag = "26 Conference Exhibitor"
)

// fakeSender records messages and fails for addresses listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []email.Message
	failFor map[string]string
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) email.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if reason, ok := f.failFor[msg.To]; ok {
		return email.Result{Error: reason}
	}
	return email.Result{Success: true, MessageID: "msg-" + msg.To}
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.To
	}
	return out
}

// recordingIndexer tracks which responses are indexed.
type recordingIndexer struct {
	mu      sync.Mutex
	indexed map[string]bool
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{indexed: map[string]bool{}}
}

func (r *recordingIndexer) IndexResponse(resp *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed[resp.ID] = true
	return nil
}

func (r *recordingIndexer) RemoveResponse(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexed, id)
	return nil
}

// testEnv wires every service against one temp-dir sqlite store.
type testEnv struct {
	store       *sqlite.Store
	catalog     *catalog.Catalog
	sender      *fakeSender
	indexer     *recordingIndexer
	surveys     *SurveyService
	invitations *InvitationService
	sessions    *SessionService
	analytics   *AnalyticsService
	export      *ExportService
	now         time.Time
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cat, err := catalog.New(logger)
	require.NoError(t, err)

	v := validation.New()
	env := &testEnv{
		store:   st,
		catalog: cat,
		sender:  &fakeSender{failFor: map[string]string{}},
		indexer: newRecordingIndexer(),
		now:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clockFn := func() time.Time { return env.now }

	env.surveys = NewSurveyService(st, cat, v, logger)
	env.surveys.now = clockFn
	env.invitations = NewInvitationService(st, env.sender, env.indexer, v, InvitationConfig{
		BaseURL:  testBaseURL,
		TagRules: domain.TagRules{DelegateTag: testDelegateTag, ExhibitorTag: testExhibitorTag},
	}, logger)
	env.invitations.now = clockFn
	env.sessions = NewSessionService(st, cat, env.indexer, logger)
	env.sessions.now = clockFn
	env.analytics = NewAnalyticsService(st, cat, nil, logger)
	env.export = NewExportService(st, testBaseURL)

	return env
}

// activeSurvey creates and activates a survey on the default definition.
func (e *testEnv) activeSurvey(t *testing.T) *domain.Survey {
	t.Helper()
	ctx := context.Background()
	sv, err := e.surveys.Create(ctx, CreateSurveyRequest{Title: "Conference 2026"})
	require.NoError(t, err)
	sv, err = e.surveys.Activate(ctx, sv.ID)
	require.NoError(t, err)
	return sv
}

func (e *testEnv) addContact(t *testing.T, id, name, addr string, tags ...string) *domain.Contact {
	t.Helper()
	c := &domain.Contact{
		Entity: domain.Entity{ID: id, CreatedAt: e.now, UpdatedAt: e.now},
		Name:   name,
		Email:  addr,
		Tags:   tags,
	}
	require.NoError(t, e.store.UpsertContact(context.Background(), c))
	return c
}

// issue creates an invitation for a fresh delegate contact and returns it.
func (e *testEnv) issue(t *testing.T, survey *domain.Survey, contactID string) *domain.Invitation {
	t.Helper()
	c := e.addContact(t, contactID, "Contact "+contactID, contactID+"@example.com", testDelegateTag)
	inv, err := e.invitations.IssueOrRefresh(context.Background(), c, survey, domain.ParticipantDelegate)
	require.NoError(t, err)
	return inv
}

// delegatePage0 answers every required question on the delegate first page.
func delegatePage0() domain.Answers {
	return domain.Answers{"overall_experience": 4.0, "what_worked": "The food was great and the venue was amazing"}
}

func delegatePage1() domain.Answers {
	return domain.Answers{"venue_rating": 5.0, "food_rating": 3.0, "schedule_rating": 4.0}
}

// walkToFinalPage advances a delegate invitation from the first page to the
// last, answering page0 and then the logistics page.
func (e *testEnv) walkToFinalPage(t *testing.T, tok string, page0 domain.Answers) {
	t.Helper()
	ctx := context.Background()
	_, err := e.sessions.Advance(ctx, tok, AdvanceRequest{Page: 0, Answers: page0})
	require.NoError(t, err)
	_, err = e.sessions.Advance(ctx, tok, AdvanceRequest{Page: 1, Answers: delegatePage1()})
	require.NoError(t, err)
	_, err = e.sessions.Advance(ctx, tok, AdvanceRequest{Page: 2})
	require.NoError(t, err)
}
