package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

// invitationColumns must match the scan order in scanInvitation.
const invitationColumns = `id, created_at, updated_at, survey_id, contact_id, email,
	participant_type, token, expires_at, sent_at, opened_at, responded_at,
	current_page, partial_responses`

// invitationColumnsJoined is invitationColumns qualified for joins.
const invitationColumnsJoined = `i.id, i.created_at, i.updated_at, i.survey_id, i.contact_id, i.email,
	i.participant_type, i.token, i.expires_at, i.sent_at, i.opened_at, i.responded_at,
	i.current_page, i.partial_responses`

func scanInvitation(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Invitation, error) {
	var (
		inv         domain.Invitation
		createdAt   string
		updatedAt   string
		contactID   sql.NullString
		pt          string
		expiresAt   string
		sentAt      sql.NullString
		openedAt    sql.NullString
		respondedAt sql.NullString
		currentPage sql.NullInt64
		partial     sql.NullString
	)

	dest := []any{
		&inv.ID,
		&createdAt,
		&updatedAt,
		&inv.SurveyID,
		&contactID,
		&inv.Email,
		&pt,
		&inv.Token,
		&expiresAt,
		&sentAt,
		&openedAt,
		&respondedAt,
		&currentPage,
		&partial,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if inv.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if inv.SentAt, err = parseNullableTime(sentAt); err != nil {
		return nil, err
	}
	if inv.OpenedAt, err = parseNullableTime(openedAt); err != nil {
		return nil, err
	}
	if inv.RespondedAt, err = parseNullableTime(respondedAt); err != nil {
		return nil, err
	}
	if inv.PartialResponses, err = decodeAnswers(partial); err != nil {
		return nil, err
	}

	inv.ContactID = contactID.String
	inv.ParticipantType = domain.ParticipantType(pt)
	if currentPage.Valid {
		p := int(currentPage.Int64)
		inv.CurrentPage = &p
	}

	return &inv, nil
}

// CreateInvitation inserts a new invitation.
// Returns store.ErrAlreadyExists if the token collides or the contact already
// has an invitation for the survey.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	partial, err := encodeAnswers(inv.PartialResponses)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		formatTime(inv.CreatedAt),
		formatTime(inv.UpdatedAt),
		inv.SurveyID,
		nullString(inv.ContactID),
		inv.Email,
		string(inv.ParticipantType),
		inv.Token,
		formatTime(inv.ExpiresAt),
		nullTimeString(inv.SentAt),
		nullTimeString(inv.OpenedAt),
		nullTimeString(inv.RespondedAt),
		nullInt(inv.CurrentPage),
		partial,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) getInvitation(ctx context.Context, where string, args ...any) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE `+where, args...)

	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return inv, err
}

// GetInvitation retrieves an invitation by ID.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	return s.getInvitation(ctx, `id = ?`, id)
}

// GetInvitationByToken retrieves an invitation by its access token.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	return s.getInvitation(ctx, `token = ?`, token)
}

// GetInvitationForContact retrieves the invitation for a (survey, contact) pair.
func (s *Store) GetInvitationForContact(ctx context.Context, surveyID, contactID string) (*domain.Invitation, error) {
	return s.getInvitation(ctx, `survey_id = ? AND contact_id = ?`, surveyID, contactID)
}

// ReissueInvitation writes a refreshed token, expiry and send time onto an
// existing invitation. Response history and progress are left untouched.
// Returns store.ErrAlreadyExists on a token collision.
func (s *Store) ReissueInvitation(ctx context.Context, inv *domain.Invitation) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET
			updated_at = ?,
			email = ?,
			participant_type = ?,
			token = ?,
			expires_at = ?,
			sent_at = ?
		WHERE id = ?`,
		formatTime(inv.UpdatedAt),
		inv.Email,
		string(inv.ParticipantType),
		inv.Token,
		formatTime(inv.ExpiresAt),
		nullTimeString(inv.SentAt),
		inv.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MarkInvitationOpened records the first time the survey was loaded.
// It reports whether this call was the one that set it.
func (s *Store) MarkInvitationOpened(ctx context.Context, id string, at time.Time) (bool, error) {
	ts := formatTime(at)
	result, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET opened_at = ?, updated_at = ?
		WHERE id = ? AND opened_at IS NULL`, ts, ts, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveInvitationProgress checkpoints the page to resume at and the answers so
// far. Returns store.ErrConflict if the invitation has already been responded
// to, and store.ErrNotFound if it does not exist.
func (s *Store) SaveInvitationProgress(ctx context.Context, id string, page int, answers domain.Answers, at time.Time) error {
	partial, err := encodeAnswers(answers)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET current_page = ?, partial_responses = ?, updated_at = ?
		WHERE id = ? AND responded_at IS NULL`,
		page, partial, formatTime(at), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetInvitation(ctx, id); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

// CompleteInvitation marks the invitation responded and records the response
// in one transaction. The update only matches an unresponded invitation, so
// of two concurrent submits exactly one wins; the other gets store.ErrConflict.
func (s *Store) CompleteInvitation(ctx context.Context, invitationID string, resp *domain.Response) error {
	answers, err := encodeAnswers(resp.Answers)
	if err != nil {
		return err
	}
	if !answers.Valid {
		answers = sql.NullString{String: "{}", Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(resp.CompletedAt)
	result, err := tx.ExecContext(ctx, `
		UPDATE invitations SET
			responded_at = ?,
			current_page = NULL,
			partial_responses = NULL,
			updated_at = ?
		WHERE id = ? AND responded_at IS NULL`,
		ts, ts, invitationID)
	if err != nil {
		return fmt.Errorf("mark responded: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO responses (
			id, survey_id, contact_id, invitation_id, participant_type, responses, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resp.ID,
		resp.SurveyID,
		nullString(resp.ContactID),
		nullString(resp.InvitationID),
		string(resp.ParticipantType),
		answers,
		ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert response: %w", err)
	}

	return tx.Commit()
}

// ListInvitations returns every invitation for a survey joined with its
// contact, ordered by email.
func (s *Store) ListInvitations(ctx context.Context, surveyID string) ([]*domain.InvitationView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invitationColumnsJoined+`, COALESCE(c.name, ''), COALESCE(c.organization, '')
		FROM invitations i
		LEFT JOIN contacts c ON c.id = i.contact_id
		WHERE i.survey_id = ?
		ORDER BY i.email COLLATE NOCASE, i.id`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*domain.InvitationView
	for rows.Next() {
		var name, org string
		inv, err := scanInvitation(rows, &name, &org)
		if err != nil {
			return nil, err
		}
		views = append(views, &domain.InvitationView{
			Invitation:   *inv,
			Name:         name,
			Organization: org,
		})
	}
	return views, rows.Err()
}
