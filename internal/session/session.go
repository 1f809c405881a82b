// Package session evaluates a respondent's position in a survey.
//
// Everything here is pure: callers load the invitation and survey, ask for
// the state or the next state, and persist the result themselves.
package session

import (
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
)

// Kind names a session state.
type Kind string

const (
	// Unavailable means the survey is missing or not accepting answers.
	Unavailable Kind = "unavailable"
	// Expired means the invitation token is past its expiry.
	Expired Kind = "expired"
	// AlreadyResponded means the survey was submitted with this token.
	AlreadyResponded Kind = "already_responded"
	// InProgress means the respondent can load and answer pages.
	InProgress Kind = "in_progress"
	// Submitted is the state right after a successful submit.
	Submitted Kind = "submitted"
)

// State is a respondent's position in a survey.
// Page and Answers are only meaningful for InProgress.
type State struct {
	Kind    Kind
	Page    int
	Answers domain.Answers
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s.Kind != InProgress
}

// Classify derives the state of an invitation. Checks run in a fixed order:
// survey availability, then expiry, then prior response.
func Classify(inv *domain.Invitation, survey *domain.Survey, now time.Time) State {
	switch {
	case !survey.IsActive():
		return State{Kind: Unavailable}
	case inv.IsExpired(now):
		return State{Kind: Expired}
	case inv.HasResponded():
		return State{Kind: AlreadyResponded}
	}
	page, answers := inv.ResumePoint()
	return State{Kind: InProgress, Page: page, Answers: answers}
}

// MissingRequired returns the ids of required questions on page that have no
// answer, in page order.
func MissingRequired(page domain.Page, answers domain.Answers) []string {
	var missing []string
	for _, q := range page.Questions {
		if q.Required && !answers.Answered(q.ID) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// ValidationDetails is attached to a validation error for unanswered
// required questions.
type ValidationDetails struct {
	Page    int      `json:"page"`
	Missing []string `json:"missing"`
}

// Advance moves from page to page+1 after checking page's required answers
// against the merged answers. It returns the state to persist. page may be
// the saved page or an earlier one, never a later one.
func Advance(s State, pages []domain.Page, page int, answers domain.Answers) (State, error) {
	if s.Terminal() {
		return s, domainerrors.SessionClosed(string(s.Kind))
	}
	if page < 0 || page >= len(pages)-1 {
		return s, domainerrors.Validationf("page %d cannot be advanced from; survey has %d pages", page, len(pages))
	}
	if page > s.Page {
		return s, domainerrors.Validationf("page %d is ahead of the current page %d", page, s.Page)
	}

	merged := s.Answers.Merge(answers)
	if missing := MissingRequired(pages[page], merged); len(missing) > 0 {
		return s, domainerrors.ValidationWithDetails(
			"required questions are unanswered",
			ValidationDetails{Page: page, Missing: missing},
		)
	}

	return State{Kind: InProgress, Page: page + 1, Answers: merged}, nil
}

// Submit returns the complete answer set to record. The session must be on
// the final page and every required question in the flow must be answered;
// the first page with gaps is reported.
func Submit(s State, pages []domain.Page, answers domain.Answers) (domain.Answers, error) {
	if s.Terminal() {
		return nil, domainerrors.SessionClosed(string(s.Kind))
	}
	if len(pages) == 0 {
		return nil, domainerrors.Internal("survey has no pages")
	}
	last := len(pages) - 1
	if s.Page != last {
		return nil, domainerrors.Validationf("submit is only allowed from the final page; current page is %d", s.Page)
	}

	merged := s.Answers.Merge(answers)
	for i, page := range pages {
		if missing := MissingRequired(page, merged); len(missing) > 0 {
			return nil, domainerrors.ValidationWithDetails(
				"required questions are unanswered",
				ValidationDetails{Page: i, Missing: missing},
			)
		}
	}
	return merged, nil
}
