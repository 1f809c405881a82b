// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Email     EmailConfig
	Survey    SurveyConfig
	Search    SearchConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
	DataDir     string `env:"DATA_DIR"` // default: ~/Feedback/data
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT"` // json or pretty; empty picks by environment
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL      string        `env:"BASE_URL" envDefault:"http://localhost:8080"` // origin used in magic links
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`
	PublicRPS    float64       `env:"PUBLIC_RPS" envDefault:"5"`
	PublicBurst  int           `env:"PUBLIC_BURST" envDefault:"20"`
}

// DatabaseConfig holds SQLite storage configuration.
type DatabaseConfig struct {
	Path string `env:"DATABASE_PATH"` // default: {data dir}/feedback.db
}

// AuthConfig holds admin authentication configuration.
type AuthConfig struct {
	KeyDir        string        `env:"AUTH_KEY_DIR"` // default: data dir
	TokenDuration time.Duration `env:"ACCESS_TOKEN_DURATION" envDefault:"12h"`
	// External identity provider tokens are accepted only when a secret is set.
	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER"`
	JWTAudience string `env:"JWT_AUDIENCE"`
}

// EmailConfig holds invitation delivery configuration.
type EmailConfig struct {
	Provider   string  `env:"EMAIL_PROVIDER" envDefault:"log"` // log or resend
	APIKey     string  `env:"RESEND_API_KEY"`
	From       string  `env:"EMAIL_FROM" envDefault:"CSC Conference <feedback@example.com>"`
	OverrideTo string  `env:"EMAIL_OVERRIDE_TO"` // redirects every message when set
	RPS        float64 `env:"EMAIL_RPS" envDefault:"2"`
}

// SurveyConfig holds survey definition and contact classification settings.
type SurveyConfig struct {
	CatalogFile  string `env:"SURVEY_CATALOG_FILE"` // optional YAML/JSON overlay, watched for changes
	DelegateTag  string `env:"DELEGATE_TAG" envDefault:"26 Conference Delegate"`
	ExhibitorTag string `env:"EXHIBITOR_TAG" envDefault:"26 Conference Exhibitor"`
}

// SearchConfig holds response search configuration.
type SearchConfig struct {
	Enabled  bool   `env:"SEARCH_ENABLED" envDefault:"true"`
	DataPath string `env:"SEARCH_DATA_PATH"` // empty keeps the index in memory
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // empty disables tracing
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"feedback-server"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// TagRules returns the contact classification rules.
func (c *Config) TagRules() domain.TagRules {
	return domain.TagRules{
		DelegateTag:  c.Survey.DelegateTag,
		ExhibitorTag: c.Survey.ExhibitorTag,
	}
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	flags := flag.NewFlagSet("feedback-server", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	envName := flags.String("env", "", "Environment (development, staging, production)")
	logLevel := flags.String("log-level", "", "Log level (debug, info, warn, error)")
	dataDir := flags.String("data-dir", "", "Base directory for the database and keys")
	dbPath := flags.String("db-path", "", "SQLite database path")
	port := flags.String("port", "", "Server port (default: 8080)")
	baseURL := flags.String("base-url", "", "Public origin for magic links")
	catalogFile := flags.String("catalog-file", "", "Survey definition file to load and watch")
	emailProvider := flags.String("email-provider", "", "Email provider (log, resend)")
	envFile := flags.String("env-file", ".env", "Path to .env file")

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Existing environment variables win over the file.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	override(&cfg.App.Environment, *envName)
	override(&cfg.Logger.Level, *logLevel)
	override(&cfg.App.DataDir, *dataDir)
	override(&cfg.Database.Path, *dbPath)
	override(&cfg.Server.Port, *port)
	override(&cfg.Server.BaseURL, *baseURL)
	override(&cfg.Survey.CatalogFile, *catalogFile)
	override(&cfg.Email.Provider, *emailProvider)

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q (must be an absolute http(s) URL)", c.Server.BaseURL)
	}

	switch c.Email.Provider {
	case "log":
	case "resend":
		if c.Email.APIKey == "" {
			return errors.New("RESEND_API_KEY is required when EMAIL_PROVIDER is resend")
		}
	default:
		return fmt.Errorf("invalid email provider: %s (must be log or resend)", c.Email.Provider)
	}

	if c.Survey.DelegateTag == "" || c.Survey.ExhibitorTag == "" {
		return errors.New("delegate and exhibitor tags cannot be empty")
	}

	return nil
}

// expandPaths resolves the data directory and the paths derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataDir, err = expandPath(c.App.DataDir, filepath.Join(homeDir, "Feedback", "data")); err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	if c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(c.App.DataDir, "feedback.db")); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	if c.Auth.KeyDir, err = expandPath(c.Auth.KeyDir, c.App.DataDir); err != nil {
		return fmt.Errorf("invalid auth key dir: %w", err)
	}
	if c.Search.DataPath, err = expandPath(c.Search.DataPath, ""); err != nil {
		return fmt.Errorf("invalid search data path: %w", err)
	}
	if c.Survey.CatalogFile, err = expandPath(c.Survey.CatalogFile, ""); err != nil {
		return fmt.Errorf("invalid catalog file: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
