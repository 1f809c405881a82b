package api

import (
	"context"
	"net/http"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// principalKey is the context key for the authenticated principal.
const principalKey ctxKey = "principal"

// GetPrincipal returns the authenticated principal from context.
// Returns 401 error if the request is anonymous.
func GetPrincipal(ctx context.Context) (*domain.Principal, error) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	if !ok || p == nil {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	return p, nil
}

func setPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// authMiddleware resolves Bearer tokens through the identity collaborator and
// stores the principal in context. Anonymous requests continue without one;
// admin handlers reject them with RequireAdmin.
func authMiddleware(identity auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := auth.BearerToken(r.Header.Get("Authorization"))
			if bearer == "" || identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			p, err := identity.Authenticate(r.Context(), bearer)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin validates the request carries an authenticated principal.
func (s *Server) RequireAdmin(ctx context.Context) (*domain.Principal, error) {
	return GetPrincipal(ctx)
}
