package service

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

// invitationCSVHeader is the first row of the invitation export.
var invitationCSVHeader = []string{
	"Email", "Name", "Organization", "Participant Type", "Magic Link", "Sent", "Opened", "Responded",
}

// ExportService writes downloadable artifacts.
type ExportService struct {
	store   store.Store
	baseURL string
}

// NewExportService creates a new export service.
func NewExportService(st store.Store, baseURL string) *ExportService {
	return &ExportService{store: st, baseURL: baseURL}
}

// WriteInvitationsCSV writes every invitation of the survey (the active one
// when surveyID is empty) as CSV, ordered by email. It returns the row count.
func (s *ExportService) WriteInvitationsCSV(ctx context.Context, w io.Writer, surveyID string) (int, error) {
	if surveyID == "" {
		survey, err := s.store.GetActiveSurvey(ctx)
		if err != nil {
			return 0, translateStoreError(err, "get active survey", "no active survey")
		}
		surveyID = survey.ID
	}

	invs, err := s.store.ListInvitations(ctx, surveyID)
	if err != nil {
		return 0, translateStoreError(err, "list invitations", "")
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(invitationCSVHeader, ","))
	bw.WriteByte('\n')
	for _, inv := range invs {
		writeCSVRow(bw, invitationRow(inv, s.baseURL))
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(invs), nil
}

func invitationRow(inv *domain.InvitationView, baseURL string) []string {
	return []string{
		inv.Email,
		inv.Name,
		inv.Organization,
		string(inv.ParticipantType),
		inv.SurveyURL(baseURL),
		yesNo(inv.IsSent()),
		yesNo(inv.IsOpened()),
		yesNo(inv.HasResponded()),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// writeCSVRow writes a data row with every field double-quoted and embedded
// quotes doubled. encoding/csv only quotes when needed. The header row is
// written bare.
func writeCSVRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
