package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
)

func TestSurveyService_CreateDefaults(t *testing.T) {
	env := setupTestEnv(t)

	sv, err := env.surveys.Create(context.Background(), CreateSurveyRequest{Title: "CSC Conference 2026"})
	require.NoError(t, err)

	assert.Equal(t, "csc-conference-2026", sv.Slug)
	assert.Equal(t, catalog.DefaultDefinition, sv.Definition)
	assert.Equal(t, domain.SurveyStatusDraft, sv.Status)
}

func TestSurveyService_CreateRejectsUnknownDefinition(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.surveys.Create(context.Background(), CreateSurveyRequest{Title: "X", Definition: "nope"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestSurveyService_ActivateSwitchesActive(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first := env.activeSurvey(t)
	second, err := env.surveys.Create(ctx, CreateSurveyRequest{Title: "Second"})
	require.NoError(t, err)

	activated, err := env.surveys.Activate(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SurveyStatusActive, activated.Status)

	active, err := env.surveys.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	surveys, err := env.surveys.List(ctx)
	require.NoError(t, err)
	for _, sv := range surveys {
		if sv.ID == first.ID {
			assert.Equal(t, domain.SurveyStatusClosed, sv.Status)
		}
	}

	_, err = env.surveys.Activate(ctx, "srv-missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
