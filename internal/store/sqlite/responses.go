package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

// responseColumns must match the scan order in scanResponse.
const responseColumns = `r.id, r.survey_id, r.contact_id, r.invitation_id, r.participant_type,
	r.responses, r.completed_at`

const responseViewQuery = `
	SELECT ` + responseColumns + `,
		COALESCE(i.email, c.email, ''), COALESCE(c.name, '')
	FROM responses r
	LEFT JOIN contacts c ON c.id = r.contact_id
	LEFT JOIN invitations i ON i.id = r.invitation_id`

func scanResponse(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Response, error) {
	var (
		r            domain.Response
		contactID    sql.NullString
		invitationID sql.NullString
		pt           string
		answers      sql.NullString
		completedAt  string
	)

	dest := []any{
		&r.ID,
		&r.SurveyID,
		&contactID,
		&invitationID,
		&pt,
		&answers,
		&completedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if r.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	if r.Answers, err = decodeAnswers(answers); err != nil {
		return nil, err
	}
	if r.Answers == nil {
		r.Answers = domain.Answers{}
	}
	r.ContactID = contactID.String
	r.InvitationID = invitationID.String
	r.ParticipantType = domain.ParticipantType(pt)

	return &r, nil
}

func scanResponseView(scanner interface{ Scan(dest ...any) error }) (*domain.ResponseView, error) {
	var email, name string
	r, err := scanResponse(scanner, &email, &name)
	if err != nil {
		return nil, err
	}
	return &domain.ResponseView{Response: *r, Email: email, Name: name}, nil
}

// GetResponse retrieves a response with its contact details.
func (s *Store) GetResponse(ctx context.Context, id string) (*domain.ResponseView, error) {
	row := s.db.QueryRowContext(ctx, responseViewQuery+` WHERE r.id = ?`, id)

	v, err := scanResponseView(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return v, err
}

// ListResponses returns completed responses matching the filter, most recent
// first.
func (s *Store) ListResponses(ctx context.Context, filter store.ResponseFilter) ([]*domain.ResponseView, error) {
	var (
		where []string
		args  []any
	)
	if filter.SurveyID != "" {
		where = append(where, "r.survey_id = ?")
		args = append(args, filter.SurveyID)
	}
	if filter.ParticipantType != "" {
		where = append(where, "r.participant_type = ?")
		args = append(args, string(filter.ParticipantType))
	}

	query := responseViewQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.completed_at DESC, r.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*domain.ResponseView
	for rows.Next() {
		v, err := scanResponseView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// DeleteResponse removes a response and reopens the invitation it came from,
// clearing its responded and progress fields so it can be re-sent.
// A response with no surviving invitation is deleted all the same.
// Returns the deleted response, or store.ErrNotFound.
func (s *Store) DeleteResponse(ctx context.Context, id string, at time.Time) (*domain.Response, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses r WHERE r.id = ?`, id)
	resp, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete response: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE invitations SET
			responded_at = NULL,
			current_page = NULL,
			partial_responses = NULL,
			updated_at = ?
		WHERE (survey_id = ? AND contact_id = ?) OR id = ?`,
		formatTime(at),
		resp.SurveyID,
		nullString(resp.ContactID),
		nullString(resp.InvitationID),
	)
	if err != nil {
		return nil, fmt.Errorf("reset invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if n, _ := result.RowsAffected(); n == 0 {
		s.logger.Debug("Deleted response had no invitation to reset", "response_id", id)
	}
	return resp, nil
}
