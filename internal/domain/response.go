package domain

import (
	"strings"
	"time"
)

// Answers maps question IDs to answer values as decoded from JSON:
// float64 for ratings, string for text, map[string]any for rating groups
// (nil item values meaning "not attended").
type Answers map[string]any

// Clone returns a shallow copy. A nil map stays nil.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new map with next layered over a.
func (a Answers) Merge(next Answers) Answers {
	out := make(Answers, len(a)+len(next))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// Answered reports whether the question has a non-empty answer.
func (a Answers) Answered(questionID string) bool {
	v, ok := a[questionID]
	if !ok {
		return false
	}
	return IsAnswered(v)
}

// IsAnswered reports whether a single answer value counts as given.
// Whitespace-only text and empty groups are treated as missing.
func IsAnswered(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// Response is the immutable record of one completed survey.
type Response struct {
	ID              string          `json:"id"`
	SurveyID        string          `json:"survey_id"`
	ContactID       string          `json:"contact_id,omitempty"`
	InvitationID    string          `json:"invitation_id,omitempty"`
	ParticipantType ParticipantType `json:"participant_type"`
	Answers         Answers         `json:"responses"`
	CompletedAt     time.Time       `json:"completed_at"`
}

// ResponseView is a response joined with the contact it came from,
// as listed on the admin dashboard.
type ResponseView struct {
	Response
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
