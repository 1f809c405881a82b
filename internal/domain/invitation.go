package domain

import (
	"strings"
	"time"
)

// InvitationTTL is how long an issued or re-issued token stays valid.
const InvitationTTL = 90 * 24 * time.Hour

// Invitation grants one contact tokenized access to one survey.
// It doubles as the checkpoint for an in-progress session: CurrentPage and
// PartialResponses hold the last saved position until the survey is submitted.
type Invitation struct {
	Entity
	SurveyID         string          `json:"survey_id"`
	ContactID        string          `json:"contact_id,omitempty"` // empty for ad-hoc invitations
	Email            string          `json:"email"`
	ParticipantType  ParticipantType `json:"participant_type"`
	Token            string          `json:"-"`
	ExpiresAt        time.Time       `json:"expires_at"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	OpenedAt         *time.Time      `json:"opened_at,omitempty"`
	RespondedAt      *time.Time      `json:"responded_at,omitempty"`
	CurrentPage      *int            `json:"current_page,omitempty"`
	PartialResponses Answers         `json:"partial_responses,omitempty"`
}

// IsExpired returns true if the token is past its expiry at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// HasResponded returns true once the survey has been submitted.
func (i *Invitation) HasResponded() bool {
	return i.RespondedAt != nil
}

// IsOpened returns true if the respondent has loaded the survey at least once.
func (i *Invitation) IsOpened() bool {
	return i.OpenedAt != nil
}

// IsSent returns true if an email carrying the current token was attempted.
func (i *Invitation) IsSent() bool {
	return i.SentAt != nil
}

// Status returns a human-readable status string for the invitation.
func (i *Invitation) Status(now time.Time) string {
	if i.HasResponded() {
		return "responded"
	}
	if i.IsExpired(now) {
		return "expired"
	}
	if i.IsOpened() {
		return "opened"
	}
	if i.IsSent() {
		return "sent"
	}
	return "pending"
}

// Reissue replaces the token and restarts the expiry window.
// Identity and response history are left alone.
func (i *Invitation) Reissue(token string, now time.Time) {
	i.Token = token
	sent := now
	i.SentAt = &sent
	i.ExpiresAt = now.Add(InvitationTTL)
	i.Touch(now)
}

// MarkResponded records submission and clears the progress checkpoint.
func (i *Invitation) MarkResponded(now time.Time) {
	responded := now
	i.RespondedAt = &responded
	i.CurrentPage = nil
	i.PartialResponses = nil
	i.Touch(now)
}

// SaveProgress records the page to resume at and the answers so far.
func (i *Invitation) SaveProgress(page int, answers Answers, now time.Time) {
	p := page
	i.CurrentPage = &p
	i.PartialResponses = answers
	i.Touch(now)
}

// ResumePoint returns the saved page and answers, defaulting to the first page
// with no answers.
func (i *Invitation) ResumePoint() (int, Answers) {
	page := 0
	if i.CurrentPage != nil {
		page = *i.CurrentPage
	}
	answers := i.PartialResponses.Clone()
	if answers == nil {
		answers = Answers{}
	}
	return page, answers
}

// SurveyURL returns the magic link for this invitation.
func (i *Invitation) SurveyURL(baseURL string) string {
	return SurveyURL(baseURL, i.Token)
}

// SurveyURL builds {baseURL}/s/{token}.
func SurveyURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/s/" + token
}

// InvitationView is an invitation joined with its contact's details,
// as listed for export.
type InvitationView struct {
	Invitation
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
}
