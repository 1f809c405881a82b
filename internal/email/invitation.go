package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// DefaultSubject is used when a batch does not supply one.
const DefaultSubject = "Share Your CSC Conference Experience"

// Invitation holds the values rendered into an invitation email.
type Invitation struct {
	To              string
	Name            string
	SurveyURL       string
	ParticipantType domain.ParticipantType
	Subject         string // empty = DefaultSubject
	Message         string // empty = DefaultMessage(ParticipantType)
}

// DefaultMessage is the body used when no custom message is given.
func DefaultMessage(pt domain.ParticipantType) string {
	role := "exhibitor"
	if pt == domain.ParticipantDelegate {
		role = "conference delegate"
	}
	return fmt.Sprintf("Thank you for attending the CSC Conference as a %s. We'd love to hear about your experience!\n\n"+
		"Your feedback helps us improve future conferences and better serve our community. "+
		"The survey takes just a few minutes to complete.", role)
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>CSC Conference Survey</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; border-radius: 8px; padding: 30px; margin-bottom: 20px;">
    <h1 style="color: #2563eb; margin: 0 0 20px 0; font-size: 28px;">CSC Conference Survey</h1>
    <p style="font-size: 16px; margin-bottom: 20px;">Hi {{.Name}},</p>
    {{range .Paragraphs}}<p style="font-size: 16px;">{{.}}</p>
    {{end}}
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.SurveyURL}}" style="display: inline-block; background-color: #2563eb; color: white; text-decoration: none; padding: 14px 32px; border-radius: 6px; font-size: 16px; font-weight: 600;">Take the Survey</a>
    </div>
    <p style="font-size: 14px; color: #666; margin-top: 30px;">If the button doesn't work, copy and paste this link into your browser:<br>
      <a href="{{.SurveyURL}}" style="color: #2563eb; word-break: break-all;">{{.SurveyURL}}</a></p>
  </div>
  <div style="font-size: 12px; color: #999; text-align: center; margin-top: 20px;">
    <p>This is an automated email from Campus Stores Canada.</p>
  </div>
</body>
</html>
`))

// Render builds the HTML body and its plain-text alternative.
func (inv Invitation) Render() (Message, error) {
	msgText := inv.Message
	if strings.TrimSpace(msgText) == "" {
		msgText = DefaultMessage(inv.ParticipantType)
	}

	var paragraphs []string
	for _, p := range strings.Split(msgText, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var buf bytes.Buffer
	err := invitationTemplate.Execute(&buf, struct {
		Name       string
		SurveyURL  string
		Paragraphs []string
	}{
		Name:       inv.Name,
		SurveyURL:  inv.SurveyURL,
		Paragraphs: paragraphs,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render invitation: %w", err)
	}
	html := buf.String()

	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return Message{}, fmt.Errorf("convert invitation to text: %w", err)
	}

	subject := inv.Subject
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	return Message{
		To:      inv.To,
		Subject: subject,
		HTML:    html,
		Text:    strings.TrimSpace(text),
	}, nil
}
