package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/store"
)

const adminColumns = `id, created_at, updated_at, email, name, password_hash, last_login_at`

func scanAdminUser(scanner interface{ Scan(dest ...any) error }) (*domain.AdminUser, error) {
	var (
		u           domain.AdminUser
		createdAt   string
		updatedAt   string
		lastLoginAt sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseNullableTime(lastLoginAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAdminUser inserts an admin account.
// Returns store.ErrAlreadyExists if the email is taken (case-insensitive).
func (s *Store) CreateAdminUser(ctx context.Context, u *domain.AdminUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_users (`+adminColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
		u.Email,
		u.Name,
		u.PasswordHash,
		nullTimeString(u.LastLoginAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetAdminUser retrieves an admin by ID.
func (s *Store) GetAdminUser(ctx context.Context, id string) (*domain.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = ?`, id)
	u, err := scanAdminUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return u, err
}

// GetAdminUserByEmail retrieves an admin by email, ignoring case.
func (s *Store) GetAdminUserByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE email = ?`, email)
	u, err := scanAdminUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return u, err
}

// RecordAdminLogin stamps last_login_at.
func (s *Store) RecordAdminLogin(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	result, err := s.db.ExecContext(ctx,
		`UPDATE admin_users SET last_login_at = ?, updated_at = ? WHERE id = ?`, ts, ts, id)
	if err != nil {
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
