package domain

import "time"

// AdminUser is an organizer account allowed to use the dashboard.
type AdminUser struct {
	Entity
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Principal is an authenticated caller of the administrative API.
// Source names the identity provider that vouched for it.
type Principal struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Source string `json:"source"`
}
