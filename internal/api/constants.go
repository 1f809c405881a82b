package api

// API limits and constants.
const (
	// MaxBodySize caps request bodies (contact imports are the largest).
	MaxBodySize = 4 << 20

	// publicPrefix is the respondent-facing surface, keyed by token.
	publicPrefix = "/api/v1/s/"
	// loginPath is rate limited alongside the public surface.
	loginPath = "/api/v1/auth/login"
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
