package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/feedbackapp/feedback-server/internal/service"
)

func (s *Server) registerInvitationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listDistribution",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/invitations",
		Summary:     "Distribution list",
		Description: "Lists mailable contacts with their invitation status for the active survey",
		Tags:        []string{"Invitations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListDistribution)

	huma.Register(s.api, huma.Operation{
		OperationID: "sendInvitations",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/invitations/send",
		Summary:     "Send invitations",
		Description: "Issues or refreshes an invitation per contact and emails the magic link. Failures are reported per recipient.",
		Tags:        []string{"Invitations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSendInvitations)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportInvitations",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/invitations/export",
		Summary:     "Export invitations",
		Description: "Downloads every invitation of a survey as CSV",
		Tags:        []string{"Invitations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleExportInvitations)

	huma.Register(s.api, huma.Operation{
		OperationID: "importContacts",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/contacts",
		Summary:     "Import contacts",
		Description: "Upserts contacts by ID. Contacts without an ID get a generated one.",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleImportContacts)
}

// ParticipantFilterInput narrows a list to one participant type.
type ParticipantFilterInput struct {
	ParticipantType string `query:"participant_type" doc:"delegate or exhibitor; omit for both"`
}

// DistributionOutput wraps the distribution list for Huma.
type DistributionOutput struct {
	Body struct {
		Entries []service.DistributionEntry `json:"entries" doc:"One row per mailable contact"`
	}
}

// SendInvitationsRequest is the request body for a batch send.
type SendInvitationsRequest struct {
	ContactIDs []string `json:"contact_ids" minItems:"1" maxItems:"1000" doc:"Contacts to invite"`
	Subject    string   `json:"subject,omitempty" maxLength:"200" doc:"Email subject override"`
	Message    string   `json:"message,omitempty" maxLength:"5000" doc:"Custom message; paragraphs separated by blank lines"`
}

// SendInvitationsInput wraps the send request for Huma.
type SendInvitationsInput struct {
	Body SendInvitationsRequest
}

// SendInvitationsOutput wraps the batch result for Huma.
type SendInvitationsOutput struct {
	Body *service.BatchResult
}

// ExportInvitationsInput selects the survey to export.
type ExportInvitationsInput struct {
	SurveyID string `query:"survey_id" doc:"Survey ID; omit for the active survey"`
}

// ImportContactsInput wraps a contact import for Huma.
type ImportContactsInput struct {
	Body service.ImportContactsRequest
}

// ImportContactsOutput reports how many contacts were written.
type ImportContactsOutput struct {
	Body struct {
		Imported int `json:"imported" doc:"Contacts written"`
	}
}

func (s *Server) handleListDistribution(ctx context.Context, input *ParticipantFilterInput) (*DistributionOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	pt, err := parseParticipantType(input.ParticipantType)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Invitations.ListDistribution(ctx, pt)
	if err != nil {
		return nil, err
	}

	out := &DistributionOutput{}
	out.Body.Entries = entries
	return out, nil
}

func (s *Server) handleSendInvitations(ctx context.Context, input *SendInvitationsInput) (*SendInvitationsOutput, error) {
	principal, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Invitations.SendBatch(ctx, service.SendBatchRequest{
		ContactIDs: input.Body.ContactIDs,
		Subject:    input.Body.Subject,
		Message:    input.Body.Message,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invitation batch sent",
		"admin_id", principal.ID,
		"success", result.Success,
		"failed", result.Failed,
	)
	return &SendInvitationsOutput{Body: result}, nil
}

func (s *Server) handleExportInvitations(ctx context.Context, input *ExportInvitationsInput) (*huma.StreamResponse, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	// Render up front so a store failure still gets a proper error envelope.
	var buf bytes.Buffer
	if _, err := s.services.Export.WriteInvitationsCSV(ctx, &buf, input.SurveyID); err != nil {
		return nil, err
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", "text/csv; charset=utf-8")
			hctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invitations.csv"))
			hctx.SetHeader("Cache-Control", CacheNoStore)
			if _, err := hctx.BodyWriter().Write(buf.Bytes()); err != nil {
				s.logger.Warn("Failed to write invitation export", "error", err)
			}
		},
	}, nil
}

func (s *Server) handleImportContacts(ctx context.Context, input *ImportContactsInput) (*ImportContactsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	n, err := s.services.Invitations.ImportContacts(ctx, input.Body)
	if err != nil {
		return nil, err
	}

	out := &ImportContactsOutput{}
	out.Body.Imported = n
	return out, nil
}
