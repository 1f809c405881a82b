package domain

// SurveyStatus is the distribution state of a survey.
type SurveyStatus string

const (
	// SurveyStatusDraft surveys exist but cannot be distributed or answered.
	SurveyStatusDraft SurveyStatus = "draft"
	// SurveyStatusActive is the single survey invitations are issued for.
	SurveyStatusActive SurveyStatus = "active"
	// SurveyStatusClosed surveys keep their responses but no longer accept answers.
	SurveyStatusClosed SurveyStatus = "closed"
)

// Valid reports whether s is a known status.
func (s SurveyStatus) Valid() bool {
	switch s {
	case SurveyStatusDraft, SurveyStatusActive, SurveyStatusClosed:
		return true
	}
	return false
}

// Survey is one versioned feedback survey.
// The question tree lives in the catalog under Definition; the row only
// records which definition it uses and whether it is accepting answers.
type Survey struct {
	Entity
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Definition  string       `json:"definition"`
	Status      SurveyStatus `json:"status"`
}

// IsActive returns true if the survey is the one currently being distributed.
func (s *Survey) IsActive() bool {
	return s != nil && s.Status == SurveyStatusActive
}

// ParticipantType selects which question flow a respondent sees.
type ParticipantType string

const (
	ParticipantDelegate  ParticipantType = "delegate"
	ParticipantExhibitor ParticipantType = "exhibitor"
)

// ParticipantTypes lists every participant type in display order.
var ParticipantTypes = []ParticipantType{ParticipantDelegate, ParticipantExhibitor}

// Valid reports whether p is a known participant type.
func (p ParticipantType) Valid() bool {
	return p == ParticipantDelegate || p == ParticipantExhibitor
}

// QuestionKind is the answer shape a question expects.
type QuestionKind string

const (
	QuestionScale       QuestionKind = "scale"
	QuestionTextarea    QuestionKind = "textarea"
	QuestionText        QuestionKind = "text"
	QuestionRatingGroup QuestionKind = "rating_group"
)

// Valid reports whether k is a known question kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionScale, QuestionTextarea, QuestionText, QuestionRatingGroup:
		return true
	}
	return false
}

// IsText returns true for free-text kinds.
func (k QuestionKind) IsText() bool {
	return k == QuestionTextarea || k == QuestionText
}

// QuestionOptions holds kind-specific settings.
type QuestionOptions struct {
	Min                int               `json:"min,omitempty"`
	Max                int               `json:"max,omitempty"`
	Labels             map[string]string `json:"labels,omitempty"`
	Items              []string          `json:"items,omitempty"`               // rating_group rows
	IncludeNotAttended bool              `json:"include_not_attended,omitempty"` // rating_group "didn't attend" option
}

// Question is a single prompt on a survey page.
type Question struct {
	ID       string          `json:"id"`
	Kind     QuestionKind    `json:"kind"`
	Prompt   string          `json:"prompt"`
	Label    string          `json:"label,omitempty"` // short name used in analytics
	Required bool            `json:"required"`
	Options  QuestionOptions `json:"options,omitempty"`
}

// DisplayLabel returns the short analytics label, falling back to the prompt.
func (q Question) DisplayLabel() string {
	if q.Label != "" {
		return q.Label
	}
	return q.Prompt
}

// Page is an ordered group of questions shown together.
type Page struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}
