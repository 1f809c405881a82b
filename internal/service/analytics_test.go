package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/aggregate"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/search"
)

// complete walks one delegate invitation through to a submitted response.
func (e *testEnv) complete(t *testing.T, survey *domain.Survey, contactID string, page0 domain.Answers) string {
	t.Helper()
	ctx := context.Background()
	inv := e.issue(t, survey, contactID)
	e.walkToFinalPage(t, inv.Token, page0)
	done, err := e.sessions.Submit(ctx, inv.Token, SubmitRequest{})
	require.NoError(t, err)
	return done.ResponseID
}

func numericByID(s aggregate.Summary, id string) aggregate.NumericMetric {
	for _, m := range s.Numeric {
		if m.ID == id {
			return m
		}
	}
	return aggregate.NumericMetric{}
}

func textByID(s aggregate.Summary, id string) aggregate.TextMetric {
	for _, m := range s.Text {
		if m.ID == id {
			return m
		}
	}
	return aggregate.TextMetric{}
}

func TestAnalyticsSummary(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	env.complete(t, survey, "ct-1", domain.Answers{"overall_experience": 5.0, "what_worked": "Great venue"})
	env.complete(t, survey, "ct-2", domain.Answers{"overall_experience": 4.0, "what_worked": "Venue staff"})

	res, err := env.analytics.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)

	assert.Equal(t, survey.ID, res.SurveyID)
	assert.Equal(t, 2, res.ResponseCount)
	overall := numericByID(res.Summary, "overall_experience")
	assert.Equal(t, "4.50", overall.Average)
	assert.Equal(t, 2, overall.Count)

	worked := textByID(res.Summary, "what_worked")
	require.NotEmpty(t, worked.TopWords)
	assert.Equal(t, aggregate.WordCount{Word: "venue", Count: 2}, worked.TopWords[0])

	// Repeated runs give identical output.
	again, err := env.analytics.Summary(ctx, SummaryRequest{})
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestAnalyticsSummary_EmptyFilter(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.activeSurvey(t)

	res, err := env.analytics.Summary(ctx, SummaryRequest{ResponseQuery: ResponseQuery{ParticipantType: domain.ParticipantExhibitor}})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ResponseCount)
	assert.Equal(t, "0", numericByID(res.Summary, "overall_experience").Average)
	// Exhibitor flow tracks services_rating, not sessions_rating.
	require.Len(t, res.Grouped, 1)
	assert.Equal(t, "services_rating", res.Grouped[0].ID)
}

func TestAnalyticsSummary_SingleResponse(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	id := env.complete(t, survey, "ct-1", domain.Answers{"overall_experience": 3.0, "what_worked": "  Keynotes  "})
	env.complete(t, survey, "ct-2", domain.Answers{"overall_experience": 5.0})

	res, err := env.analytics.Summary(ctx, SummaryRequest{ResponseID: id})
	require.NoError(t, err)

	assert.True(t, res.Single)
	assert.Equal(t, 1, res.ResponseCount)
	assert.Equal(t, domain.ParticipantDelegate, res.ParticipantType)
	assert.Equal(t, "3.00", numericByID(res.Summary, "overall_experience").Average)
	assert.Equal(t, "Keynotes", textByID(res.Summary, "what_worked").Answer)
}

func TestAnalyticsSummary_NoActiveSurvey(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.analytics.Summary(context.Background(), SummaryRequest{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestAnalyticsListResponses(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	env.complete(t, survey, "ct-1", delegatePage0())

	views, err := env.analytics.ListResponses(ctx, ResponseQuery{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "ct-1@example.com", views[0].Email)
	assert.Equal(t, "Contact ct-1", views[0].Name)

	views, err = env.analytics.ListResponses(ctx, ResponseQuery{ParticipantType: domain.ParticipantExhibitor})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestAnalyticsSearch_Disabled(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.analytics.Search(context.Background(), search.SearchParams{Query: "venue"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	assert.NoError(t, env.analytics.RebuildIndex(context.Background()))
}

func TestWriteInvitationsCSV(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	env.addContact(t, "ct-1", `Ada "The Countess"`, "ada@example.com", testDelegateTag)
	env.addContact(t, "ct-2", "Bob", "bob@example.com", testExhibitorTag)
	_, err := env.invitations.SendBatch(ctx, SendBatchRequest{ContactIDs: []string{"ct-2", "ct-1"}})
	require.NoError(t, err)

	inv, err := env.store.GetInvitationForContact(ctx, survey.ID, "ct-1")
	require.NoError(t, err)
	_, err = env.sessions.Resume(ctx, inv.Token)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := env.export.WriteInvitationsCSV(ctx, &buf, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `Email,Name,Organization,Participant Type,Magic Link,Sent,Opened,Responded`, lines[0])
	assert.Equal(t,
		`"ada@example.com","Ada ""The Countess""","","delegate","`+testBaseURL+`/s/`+inv.Token+`","Yes","Yes","No"`,
		lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `"bob@example.com","Bob","","exhibitor",`))
	assert.True(t, strings.HasSuffix(lines[2], `"Yes","No","No"`))
}
