package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/feedbackapp/feedback-server/internal/domain"
	"github.com/feedbackapp/feedback-server/internal/id"
)

const (
	tokenIssuer   = "feedback-server"
	tokenAudience = "feedback-admin"

	// SourceLocal marks principals vouched for by a locally issued token.
	SourceLocal = "local"

	// PASETO v4 symmetric key size.
	keyBytesSize = 32
	keyHexSize   = 64
)

// AccessClaims are the claims carried inside an encrypted v4.local token.
type AccessClaims struct {
	AdminID    string    `json:"admin_id"`
	Email      string    `json:"email"`
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// TokenService issues and verifies admin access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string, duration time.Duration) (*TokenService, error) {
	raw, err := decodeKey(keyHex)
	if err != nil {
		return nil, fmt.Errorf("PASETO key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("create PASETO key: %w", err)
	}
	return &TokenService{key: key, duration: duration, now: time.Now}, nil
}

// Duration returns the configured access token lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}

// Issue creates an access token for admin, returning it with its expiry.
func (s *TokenService) Issue(admin *domain.AdminUser) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.duration)

	jti, err := id.Generate("tok")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(admin.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(jti)
	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("admin_id", admin.ID)
	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("email", admin.Email)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// Verify decrypts a token and checks its issuer, audience and validity window.
func (s *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}

// Authenticate implements Identity.
func (s *TokenService) Authenticate(_ context.Context, bearer string) (*domain.Principal, error) {
	claims, err := s.Verify(bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnonymous, err)
	}
	return &domain.Principal{ID: claims.AdminID, Email: claims.Email, Source: SourceLocal}, nil
}
