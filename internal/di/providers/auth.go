package providers

import (
	"github.com/samber/do/v2"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/config"
	"github.com/feedbackapp/feedback-server/internal/logger"
)

// ProvideTokenService provides the PASETO token service, generating the
// signing key on first start.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex, err := auth.LoadOrGenerateKey(cfg.Auth.KeyDir)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"key_dir", cfg.Auth.KeyDir,
		"access_token_duration", cfg.Auth.TokenDuration,
	)

	return auth.NewTokenService(keyHex, cfg.Auth.TokenDuration)
}

// ProvideIdentity provides the admin authenticator: local PASETO tokens,
// then external identity provider JWTs when a secret is configured.
func ProvideIdentity(i do.Injector) (auth.Identity, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	chain := auth.Chain{tokens}
	if jwtVerifier := auth.NewJWTVerifier(auth.JWTConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	}); jwtVerifier != nil {
		chain = append(chain, jwtVerifier)
		log.Info("External identity provider tokens accepted", "issuer", cfg.Auth.JWTIssuer)
	}

	return chain, nil
}
