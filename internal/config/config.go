// Package config loads application settings from the environment, workflow
// profiles from YAML, and report retention settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every application environment variable
const EnvPrefix = "DUPSWEEP"

// Config is the process-level configuration. Variables are read with the
// DUPSWEEP_ prefix, e.g. DUPSWEEP_GITHUB_TOKEN.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Provider      string `envconfig:"PROVIDER" default:"github"`
	GitHubToken   string `envconfig:"GITHUB_TOKEN"`
	GitHubBaseURL string `envconfig:"GITHUB_BASE_URL"`
	GitLabToken   string `envconfig:"GITLAB_TOKEN"`
	GitLabBaseURL string `envconfig:"GITLAB_BASE_URL"`

	ProfilesPath   string `envconfig:"PROFILES_PATH" default:"dupsweep-profiles.yaml"`
	DefaultProfile string `envconfig:"DEFAULT_PROFILE" default:"moderate"`
	ReportDir      string `envconfig:"REPORT_DIR" default:"reports"`

	RunTimeout     time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	PageSize       int           `envconfig:"PAGE_SIZE" default:"100"`
	MaxPages       int           `envconfig:"MAX_PAGES" default:"10"`

	ChatWebhookURL string   `envconfig:"CHAT_WEBHOOK_URL"`
	SMTPHost       string   `envconfig:"SMTP_HOST"`
	SMTPPort       int      `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser       string   `envconfig:"SMTP_USER"`
	SMTPPassword   string   `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string   `envconfig:"SMTP_FROM"`
	SMTPTo         []string `envconfig:"SMTP_TO"`
	RedisURL       string   `envconfig:"REDIS_URL"`
	RedisStream    string   `envconfig:"REDIS_STREAM" default:"dupsweep:runs"`
	SummaryIssue   int      `envconfig:"SUMMARY_ISSUE"`

	ServerAddr          string `envconfig:"SERVER_ADDR" default:":8080"`
	GitHubWebhookSecret string `envconfig:"GITHUB_WEBHOOK_SECRET"`
	GitLabWebhookToken  string `envconfig:"GITLAB_WEBHOOK_TOKEN"`
	MaxConcurrentRuns   int64  `envconfig:"MAX_CONCURRENT_RUNS" default:"2"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"dupsweep"`
}

// LoadDotEnv loads path into the environment if it exists. Variables
// already set win.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads Config from the environment and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "github", "gitlab":
	default:
		return fmt.Errorf("DUPSWEEP_PROVIDER must be github or gitlab (got %q)", c.Provider)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("DUPSWEEP_RUN_TIMEOUT must be positive (got %v)", c.RunTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("DUPSWEEP_RATE_LIMIT_RPS cannot be negative (got %.2f)", c.RateLimitRPS)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("DUPSWEEP_PAGE_SIZE must be between 1 and 100 (got %d)", c.PageSize)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("DUPSWEEP_MAX_PAGES must be >= 1 (got %d)", c.MaxPages)
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("DUPSWEEP_MAX_CONCURRENT_RUNS must be >= 1 (got %d)", c.MaxConcurrentRuns)
	}
	if c.SMTPHost != "" && (c.SMTPFrom == "" || len(c.SMTPTo) == 0) {
		return fmt.Errorf("DUPSWEEP_SMTP_FROM and DUPSWEEP_SMTP_TO are required when DUPSWEEP_SMTP_HOST is set")
	}
	if c.SummaryIssue < 0 {
		return fmt.Errorf("DUPSWEEP_SUMMARY_ISSUE cannot be negative (got %d)", c.SummaryIssue)
	}
	return nil
}

// Token returns the credential for the configured provider
func (c *Config) Token() string {
	if strings.EqualFold(c.Provider, "gitlab") {
		return c.GitLabToken
	}
	return c.GitHubToken
}

// BaseURL returns the API base URL for the configured provider
func (c *Config) BaseURL() string {
	if strings.EqualFold(c.Provider, "gitlab") {
		return c.GitLabBaseURL
	}
	return c.GitHubBaseURL
}
