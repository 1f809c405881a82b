package search

import (
	"slices"
	"strings"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// ResponseDocument is the indexed form of one completed response.
type ResponseDocument struct {
	ID              string
	SurveyID        string
	ParticipantType string
	Text            string // every free-text answer, one per line
	CompletedAt     int64  // Unix seconds
}

// NewResponseDocument builds a document from a response. String answers are
// joined in question-id order so the document is stable across runs.
func NewResponseDocument(r *domain.Response) *ResponseDocument {
	keys := make([]string, 0, len(r.Answers))
	for k, v := range r.Answers {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.TrimSpace(r.Answers[k].(string)))
	}

	return &ResponseDocument{
		ID:              r.ID,
		SurveyID:        r.SurveyID,
		ParticipantType: string(r.ParticipantType),
		Text:            strings.Join(parts, "\n"),
		CompletedAt:     r.CompletedAt.Unix(),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *ResponseDocument) ToMap() map[string]any {
	return map[string]any{
		"id":               d.ID,
		"survey_id":        d.SurveyID,
		"participant_type": d.ParticipantType,
		"text":             d.Text,
		"completed_at":     d.CompletedAt,
	}
}
