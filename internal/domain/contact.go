package domain

import "strings"

// Contact is a person who may receive a survey invitation.
// Contacts are imported from the organizer's CRM; Tags carry the CRM labels
// used to decide which flow they get.
type Contact struct {
	Entity
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// HasEmail returns true if the contact can be mailed.
func (c *Contact) HasEmail() bool {
	return strings.TrimSpace(c.Email) != ""
}

// DisplayName returns the contact name, falling back to the email local part.
func (c *Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if at := strings.IndexByte(c.Email, '@'); at > 0 {
		return c.Email[:at]
	}
	if c.Email != "" {
		return c.Email
	}
	return "Unknown"
}

// TagRules maps CRM tags to participant types.
type TagRules struct {
	DelegateTag  string
	ExhibitorTag string
}

// Classify returns the participant type for a contact.
// Delegate wins when a contact carries both tags. Tags match ignoring case and
// a leading "@", which the CRM prepends to formula tags.
func (r TagRules) Classify(c *Contact) (ParticipantType, bool) {
	var delegate, exhibitor bool
	for _, tag := range c.Tags {
		t := strings.TrimPrefix(strings.TrimSpace(tag), "@")
		if r.DelegateTag != "" && strings.EqualFold(t, r.DelegateTag) {
			delegate = true
		}
		if r.ExhibitorTag != "" && strings.EqualFold(t, r.ExhibitorTag) {
			exhibitor = true
		}
	}
	switch {
	case delegate:
		return ParticipantDelegate, true
	case exhibitor:
		return ParticipantExhibitor, true
	default:
		return "", false
	}
}
