package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// ErrAnonymous means the credentials were absent or not recognized.
var ErrAnonymous = errors.New("anonymous")

// Identity resolves a bearer token to an authenticated principal.
// Implementations return ErrAnonymous (possibly wrapped) when they
// cannot vouch for the token.
type Identity interface {
	Authenticate(ctx context.Context, bearer string) (*domain.Principal, error)
}

// Chain tries each identity in order and returns the first principal.
type Chain []Identity

// Authenticate implements Identity.
func (c Chain) Authenticate(ctx context.Context, bearer string) (*domain.Principal, error) {
	if strings.TrimSpace(bearer) == "" {
		return nil, ErrAnonymous
	}
	for _, id := range c {
		if id == nil {
			continue
		}
		p, err := id.Authenticate(ctx, bearer)
		if err == nil {
			return p, nil
		}
	}
	return nil, ErrAnonymous
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
