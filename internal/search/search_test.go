package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

func setupTestIndex(t *testing.T, dataPath string) *SearchIndex {
	t.Helper()
	index, err := NewSearchIndex(Options{DataPath: dataPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testResponse(id string, pt domain.ParticipantType, answers domain.Answers) *domain.Response {
	return &domain.Response{
		ID:              id,
		SurveyID:        "srv-1",
		ParticipantType: pt,
		Answers:         answers,
		CompletedAt:     time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewResponseDocument_JoinsTextAnswers(t *testing.T) {
	doc := NewResponseDocument(testResponse("resp-1", domain.ParticipantDelegate, domain.Answers{
		"what_worked":        "  Networking  ",
		"overall_experience": 5.0,
		"food_feedback":      "Cold coffee",
		"honest_feedback":    "   ",
	}))

	assert.Equal(t, "Cold coffee\nNetworking", doc.Text)
	assert.Equal(t, "delegate", doc.ParticipantType)
	assert.Equal(t, "resp-1", doc.ToMap()["id"])
}

func TestSearchIndex_SearchAndFilter(t *testing.T) {
	index := setupTestIndex(t, "")
	ctx := context.Background()

	require.NoError(t, index.IndexResponse(testResponse("resp-1", domain.ParticipantDelegate,
		domain.Answers{"food_feedback": "The lunch buffet was excellent"})))
	require.NoError(t, index.IndexResponse(testResponse("resp-2", domain.ParticipantExhibitor,
		domain.Answers{"services_feedback": "Booth lighting was poor, but the buffet was fine"})))
	require.NoError(t, index.IndexResponse(testResponse("resp-3", domain.ParticipantDelegate,
		domain.Answers{"what_worked": "Keynote speakers"})))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	res, err := index.Search(ctx, SearchParams{Query: "buffet"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)

	res, err = index.Search(ctx, SearchParams{Query: "buffet", ParticipantType: "exhibitor"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "resp-2", res.Hits[0].ResponseID)
	assert.Equal(t, "exhibitor", res.Hits[0].ParticipantType)
	assert.NotEmpty(t, res.Hits[0].Fragments)

	// Stemming: "speaker" matches "speakers".
	res, err = index.Search(ctx, SearchParams{Query: "speaker"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "resp-3", res.Hits[0].ResponseID)
}

func TestSearchIndex_RemoveResponse(t *testing.T) {
	index := setupTestIndex(t, "")
	ctx := context.Background()

	require.NoError(t, index.IndexResponse(testResponse("resp-1", domain.ParticipantDelegate,
		domain.Answers{"what_worked": "Trade show floor"})))
	require.NoError(t, index.RemoveResponse("resp-1"))
	require.NoError(t, index.RemoveResponse("resp-missing"))

	res, err := index.Search(ctx, SearchParams{Query: "trade"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Total)
}

func TestSearchIndex_ReindexOnDisk(t *testing.T) {
	dir := t.TempDir()
	index := setupTestIndex(t, dir)

	require.NoError(t, index.IndexResponse(testResponse("stale", domain.ParticipantDelegate,
		domain.Answers{"what_worked": "old"})))

	require.NoError(t, index.Reindex([]*domain.Response{
		testResponse("resp-1", domain.ParticipantDelegate, domain.Answers{"what_worked": "Venue"}),
		testResponse("resp-2", domain.ParticipantExhibitor, domain.Answers{"what_worked": "Venue"}),
	}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	res, err := index.Search(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
	assert.Len(t, res.Facets, 2)
}
