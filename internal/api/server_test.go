package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/email"
	"github.com/feedbackapp/feedback-server/internal/service"
	"github.com/feedbackapp/feedback-server/internal/store/sqlite"
	"github.com/feedbackapp/feedback-server/internal/validation"
)

const (
	testBaseURL       = "https://feedback.example.com"
	testAdminEmail    = "organizer@example.com"
	testAdminPassword = "TestPassword123!"
	testDelegateTag   = "26 Conference Delegate"
	testExhibitorTag  = "26 Conference Exhibitor"
)

// testEnvelope mirrors APIEnvelope with typed data for decoding.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	return env
}

// captureSender records outbound mail.
type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (c *captureSender) Send(_ context.Context, msg email.Message) email.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return email.Result{Success: true, MessageID: "msg-" + msg.To}
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	store  *sqlite.Store
	sender *captureSender
}

func setupTestServer(t *testing.T, opts ...Options) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cat, err := catalog.New(logger)
	require.NoError(t, err)

	keyHex, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keyHex, 15*time.Minute)
	require.NoError(t, err)

	v := validation.New()
	sender := &captureSender{}
	services := &Services{
		Surveys: service.NewSurveyService(st, cat, v, logger),
		Invitations: service.NewInvitationService(st, sender, nil, v, service.InvitationConfig{
			BaseURL:  testBaseURL,
			TagRules: domain.TagRules{DelegateTag: testDelegateTag, ExhibitorTag: testExhibitorTag},
		}, logger),
		Sessions:  service.NewSessionService(st, cat, nil, logger),
		Analytics: service.NewAnalyticsService(st, cat, nil, logger),
		Export:    service.NewExportService(st, testBaseURL),
		Auth:      service.NewAuthService(st, tokens, v, logger),
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	server := NewServer(st, nil, services, auth.Chain{tokens}, o, logger)
	t.Cleanup(server.Close)

	return &testServer{
		Server: server,
		api:    humatest.Wrap(t, server.api),
		store:  st,
		sender: sender,
	}
}

// adminToken creates the organizer account and logs in through the API.
func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()

	_, err := ts.services.Auth.CreateAdmin(context.Background(), service.CreateAdminRequest{
		Email:    testAdminEmail,
		Name:     "Organizer",
		Password: testAdminPassword,
	})
	require.NoError(t, err)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	require.Equal(t, 200, resp.Code, "login failed: %s", resp.Body.String())

	env := decodeEnvelope[AuthResponse](t, resp)
	require.NotEmpty(t, env.Data.AccessToken)
	return env.Data.AccessToken
}

func bearer(tok string) string {
	return "Authorization: Bearer " + tok
}

// activeSurvey creates and activates a survey on the default definition.
func (ts *testServer) activeSurvey(t *testing.T) *domain.Survey {
	t.Helper()
	ctx := context.Background()
	sv, err := ts.services.Surveys.Create(ctx, service.CreateSurveyRequest{Title: "Conference 2026"})
	require.NoError(t, err)
	sv, err = ts.services.Surveys.Activate(ctx, sv.ID)
	require.NoError(t, err)
	return sv
}

// delegateInvitation issues an invitation for a delegate contact.
func (ts *testServer) delegateInvitation(t *testing.T, survey *domain.Survey, contactID string) *domain.Invitation {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	c := &domain.Contact{
		Entity: domain.Entity{ID: contactID, CreatedAt: now, UpdatedAt: now},
		Name:   "Contact " + contactID,
		Email:  contactID + "@example.com",
		Tags:   []string{testDelegateTag},
	}
	require.NoError(t, ts.store.UpsertContact(ctx, c))
	inv, err := ts.services.Invitations.IssueOrRefresh(ctx, c, survey, domain.ParticipantDelegate)
	require.NoError(t, err)
	return inv
}
