package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/session"
)

func TestIssueOrRefresh_NewInvitation(t *testing.T) {
	env := setupTestEnv(t)
	survey := env.activeSurvey(t)

	inv := env.issue(t, survey, "ct-1")

	assert.Equal(t, survey.ID, inv.SurveyID)
	assert.Equal(t, "ct-1", inv.ContactID)
	assert.Equal(t, domain.ParticipantDelegate, inv.ParticipantType)
	require.NotNil(t, inv.SentAt)
	assert.Equal(t, inv.SentAt.Add(domain.InvitationTTL), inv.ExpiresAt)
}

func TestIssueOrRefresh_ReissuePreservesIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	first := env.issue(t, survey, "ct-1")
	oldToken := first.Token

	env.now = env.now.Add(30 * 24 * time.Hour)
	contact, err := env.store.GetContact(ctx, "ct-1")
	require.NoError(t, err)
	second, err := env.invitations.IssueOrRefresh(ctx, contact, survey, domain.ParticipantDelegate)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, oldToken, second.Token)
	assert.Equal(t, env.now, *second.SentAt)
	assert.Equal(t, env.now.Add(domain.InvitationTTL), second.ExpiresAt)

	// The old token no longer resolves.
	_, err = env.sessions.Resume(ctx, oldToken)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	view, err := env.sessions.Resume(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, session.InProgress, view.State)
}

func TestIssueOrRefresh_RequiresActiveSurvey(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	draft, err := env.surveys.Create(ctx, CreateSurveyRequest{Title: "Draft"})
	require.NoError(t, err)
	c := env.addContact(t, "ct-1", "A", "a@example.com", testDelegateTag)

	_, err = env.invitations.IssueOrRefresh(ctx, c, draft, domain.ParticipantDelegate)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = env.invitations.IssueOrRefresh(ctx, c, nil, domain.ParticipantDelegate)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestIssueOrRefresh_RetriesTokenCollision(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	taken := env.issue(t, survey, "ct-1")

	c := env.addContact(t, "ct-2", "B", "b@example.com", testDelegateTag)
	calls := 0
	env.invitations.newToken = func() (string, error) {
		calls++
		if calls == 1 {
			return taken.Token, nil
		}
		return "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", nil
	}

	inv, err := env.invitations.IssueOrRefresh(ctx, c, survey, domain.ParticipantDelegate)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", inv.Token)
}

func TestIssueOrRefresh_GivesUpAfterRepeatedCollisions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)

	taken := env.issue(t, survey, "ct-1")
	c := env.addContact(t, "ct-2", "B", "b@example.com", testDelegateTag)
	env.invitations.newToken = func() (string, error) { return taken.Token, nil }

	_, err := env.invitations.IssueOrRefresh(ctx, c, survey, domain.ParticipantDelegate)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrPersistence))
}

func TestSendBatch_IsolatesFailures(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.activeSurvey(t)

	env.addContact(t, "ct-1", "Ada", "ada@example.com", testDelegateTag)
	env.addContact(t, "ct-2", "Bob", "", testDelegateTag)
	env.addContact(t, "ct-3", "Cy", "cy@example.com", "@"+testExhibitorTag)

	res, err := env.invitations.SendBatch(ctx, SendBatchRequest{ContactIDs: []string{"ct-1", "ct-2", "ct-3"}})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ct-2", res.Errors[0].ContactID)
	assert.Equal(t, []string{"ada@example.com", "cy@example.com"}, env.sender.recipients())

	// Each email carries the survey link of the committed invitation.
	inv, err := env.store.GetInvitationForContact(ctx, mustActive(t, env).ID, "ct-3")
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantExhibitor, inv.ParticipantType)
	assert.Contains(t, env.sender.sent[1].HTML, inv.SurveyURL(testBaseURL))
	assert.Contains(t, env.sender.sent[1].Text, inv.SurveyURL(testBaseURL))
}

func mustActive(t *testing.T, env *testEnv) *domain.Survey {
	t.Helper()
	sv, err := env.surveys.Active(context.Background())
	require.NoError(t, err)
	return sv
}

func TestSendBatch_RecordsPerRecipientReasons(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.activeSurvey(t)

	env.addContact(t, "ct-1", "Ada", "ada@example.com", testDelegateTag)
	env.addContact(t, "ct-2", "Untagged", "u@example.com", "Newsletter")
	env.addContact(t, "ct-3", "Bounce", "bounce@example.com", testDelegateTag)
	env.sender.failFor["bounce@example.com"] = "mailbox unavailable"

	res, err := env.invitations.SendBatch(ctx, SendBatchRequest{
		ContactIDs: []string{"ct-1", "ct-2", "ct-missing", "ct-3"},
		Subject:    "Custom subject",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 3, res.Failed)
	ids := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		ids[i] = e.ContactID
	}
	assert.Equal(t, []string{"ct-2", "ct-missing", "ct-3"}, ids)
	assert.Equal(t, "contact has no participant type tag", res.Errors[0].Error)
	assert.Contains(t, res.Errors[2].Error, "mailbox unavailable")
	assert.Equal(t, "bounce@example.com", res.Errors[2].Email)
	assert.Equal(t, "Custom subject", env.sender.sent[0].Subject)

	// A delivery failure still leaves a valid invitation behind.
	_, err = env.store.GetInvitationForContact(ctx, mustActive(t, env).ID, "ct-3")
	assert.NoError(t, err)
}

func TestSendBatch_RepeatedContactMailedOnce(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.activeSurvey(t)
	env.addContact(t, "ct-1", "Ada", "ada@example.com", testDelegateTag)

	res, err := env.invitations.SendBatch(ctx, SendBatchRequest{ContactIDs: []string{"ct-1", "ct-1"}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, env.sender.sent, 1)

	// The only email links to the live token.
	inv, err := env.store.GetInvitationForContact(ctx, mustActive(t, env).ID, "ct-1")
	require.NoError(t, err)
	assert.Contains(t, env.sender.sent[0].HTML, inv.SurveyURL(testBaseURL))
}

func TestSendBatch_NoActiveSurvey(t *testing.T) {
	env := setupTestEnv(t)
	env.addContact(t, "ct-1", "Ada", "ada@example.com", testDelegateTag)

	_, err := env.invitations.SendBatch(context.Background(), SendBatchRequest{ContactIDs: []string{"ct-1"}})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	assert.Empty(t, env.sender.recipients())
}

func TestSendBatch_EmptyRequest(t *testing.T) {
	env := setupTestEnv(t)
	env.activeSurvey(t)

	_, err := env.invitations.SendBatch(context.Background(), SendBatchRequest{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestDeleteResponse_ReopensInvitation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	survey := env.activeSurvey(t)
	inv := env.issue(t, survey, "ct-1")

	env.walkToFinalPage(t, inv.Token, delegatePage0())
	done, err := env.sessions.Submit(ctx, inv.Token, SubmitRequest{})
	require.NoError(t, err)
	assert.True(t, env.indexer.indexed[done.ResponseID])

	require.NoError(t, env.invitations.DeleteResponse(ctx, done.ResponseID))

	reopened, err := env.store.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, reopened.RespondedAt)
	assert.Nil(t, reopened.CurrentPage)
	assert.Nil(t, reopened.PartialResponses)
	assert.False(t, env.indexer.indexed[done.ResponseID])

	// The contact can be sent the survey again and answer it.
	contact, err := env.store.GetContact(ctx, "ct-1")
	require.NoError(t, err)
	again, err := env.invitations.IssueOrRefresh(ctx, contact, survey, domain.ParticipantDelegate)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)

	view, err := env.sessions.Resume(ctx, again.Token)
	require.NoError(t, err)
	assert.Equal(t, session.InProgress, view.State)
	assert.Equal(t, 0, view.CurrentPage)
}

func TestDeleteResponse_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	err := env.invitations.DeleteResponse(context.Background(), "resp-missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestListDistribution(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.addContact(t, "ct-1", "Ada", "ada@example.com", testDelegateTag)
	env.addContact(t, "ct-2", "Bob", "bob@example.com", testExhibitorTag)
	env.addContact(t, "ct-3", "NoMail", "", testDelegateTag)
	env.addContact(t, "ct-4", "Other", "o@example.com", "Vendor")

	// No active survey yet: everyone eligible is unsent.
	entries, err := env.invitations.ListDistribution(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, DistributionStatusNotSent, e.Status)
	}

	env.activeSurvey(t)
	_, err = env.invitations.SendBatch(ctx, SendBatchRequest{ContactIDs: []string{"ct-1"}})
	require.NoError(t, err)

	entries, err = env.invitations.ListDistribution(ctx, domain.ParticipantDelegate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ct-1", entries[0].ContactID)
	assert.Equal(t, "sent", entries[0].Status)
	assert.NotEmpty(t, entries[0].InvitationID)
}

func TestImportContacts(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	n, err := env.invitations.ImportContacts(ctx, ImportContactsRequest{Contacts: []ContactInput{
		{ID: "ct-1", Name: "Ada", Email: "ada@example.com", Tags: []string{testDelegateTag}},
		{Name: "Generated", Email: "gen@example.com"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Upsert by id replaces mutable fields.
	_, err = env.invitations.ImportContacts(ctx, ImportContactsRequest{Contacts: []ContactInput{
		{ID: "ct-1", Name: "Ada L.", Email: "ada@example.com"},
	}})
	require.NoError(t, err)

	c, err := env.store.GetContact(ctx, "ct-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", c.Name)

	all, err := env.store.ListContacts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.invitations.ImportContacts(ctx, ImportContactsRequest{Contacts: []ContactInput{
		{Name: "Bad", Email: "not-an-email"},
	}})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}
