package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

// surveyColumns must match the scan order in scanSurvey.
const surveyColumns = `id, created_at, updated_at, slug, title, description, definition, status`

func scanSurvey(scanner interface{ Scan(dest ...any) error }) (*domain.Survey, error) {
	var (
		sv        domain.Survey
		createdAt string
		updatedAt string
		status    string
	)

	err := scanner.Scan(
		&sv.ID,
		&createdAt,
		&updatedAt,
		&sv.Slug,
		&sv.Title,
		&sv.Description,
		&sv.Definition,
		&status,
	)
	if err != nil {
		return nil, err
	}

	if sv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	sv.Status = domain.SurveyStatus(status)

	return &sv, nil
}

// CreateSurvey inserts a new survey.
// Returns store.ErrAlreadyExists if the slug is taken or, for an active
// survey, if another survey is already active.
func (s *Store) CreateSurvey(ctx context.Context, survey *domain.Survey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO surveys (`+surveyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		survey.ID,
		formatTime(survey.CreatedAt),
		formatTime(survey.UpdatedAt),
		survey.Slug,
		survey.Title,
		survey.Description,
		survey.Definition,
		string(survey.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetSurvey retrieves a survey by ID.
func (s *Store) GetSurvey(ctx context.Context, id string) (*domain.Survey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id)

	sv, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return sv, err
}

// GetActiveSurvey returns the survey currently open for distribution.
// Returns store.ErrNotFound if none is active.
func (s *Store) GetActiveSurvey(ctx context.Context) (*domain.Survey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE status = 'active' LIMIT 1`)

	sv, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return sv, err
}

// ListSurveys returns all surveys, newest first.
func (s *Store) ListSurveys(ctx context.Context) ([]*domain.Survey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var surveys []*domain.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}

// ActivateSurvey makes id the single active survey, closing whichever survey
// was active before. Both writes happen in one transaction.
func (s *Store) ActivateSurvey(ctx context.Context, id string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(now)
	if _, err := tx.ExecContext(ctx, `
		UPDATE surveys SET status = 'closed', updated_at = ?
		WHERE status = 'active' AND id != ?`, ts, id); err != nil {
		return fmt.Errorf("close active survey: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE surveys SET status = 'active', updated_at = ?
		WHERE id = ?`, ts, id)
	if err != nil {
		return fmt.Errorf("activate survey: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}
