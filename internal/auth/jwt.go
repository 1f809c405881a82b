package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// SourceExternal marks principals vouched for by the external identity provider.
const SourceExternal = "external"

// JWTConfig configures verification of HS256 tokens minted by an external
// identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string // empty skips the issuer check
	Audience string // empty skips the audience check
	Now      func() time.Time
}

// JWTVerifier authenticates external identity provider tokens.
type JWTVerifier struct {
	cfg JWTConfig
}

// externalClaims follows the common hosted-auth layout: subject plus email.
type externalClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewJWTVerifier returns a verifier, or nil when no secret is configured.
func NewJWTVerifier(cfg JWTConfig) *JWTVerifier {
	if cfg.Secret == "" {
		return nil
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTVerifier{cfg: cfg}
}

// Authenticate implements Identity.
func (v *JWTVerifier) Authenticate(_ context.Context, bearer string) (*domain.Principal, error) {
	if v == nil {
		return nil, ErrAnonymous
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	var claims externalClaims
	_, err := jwt.ParseWithClaims(bearer, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnonymous, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %v", ErrAnonymous, errors.New("token has no subject"))
	}

	return &domain.Principal{ID: claims.Subject, Email: claims.Email, Source: SourceExternal}, nil
}
