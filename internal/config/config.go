// Package config loads the anaconda-packaging-utils configuration file
// and applies environment variable overrides.
//
// The file lives at ~/.config/anaconda-packaging-utils/config.yaml by
// default and holds the credentials the API wrappers need.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "APU_CONFIG"

// DefaultHTTPTimeout applies when http.timeout_seconds is unset.
const DefaultHTTPTimeout = 60 * time.Second

// Config mirrors the YAML configuration file. Environment variables
// take precedence over file values.
type Config struct {
	UserInfo struct {
		Email string `yaml:"email" env:"APU_EMAIL"`
	} `yaml:"user_info"`
	Token struct {
		GitHub string `yaml:"github" env:"APU_GITHUB_TOKEN"`
		Jira   string `yaml:"jira" env:"APU_JIRA_TOKEN"`
	} `yaml:"token"`
	Cache struct {
		Path string `yaml:"path" env:"APU_CACHE_PATH"`
	} `yaml:"cache"`
	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds" env:"APU_HTTP_TIMEOUT"`
	} `yaml:"http"`
}

// Validation error codes (C101-C109)
const (
	ErrEmailMissing = "C101" // user_info.email is required
	ErrEmailInvalid = "C102" // user_info.email is not an email address
	ErrTokenMissing = "C103" // a required token is empty
	ErrBadTimeout   = "C104" // http.timeout_seconds must be positive
)

// ValidationError describes one invalid configuration value.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// DefaultPath returns the conventional config file location, honoring
// the APU_CONFIG environment variable.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "anaconda-packaging-utils", "config.yaml"), nil
}

// Load reads the config file at path and applies env overrides. An
// empty path means DefaultPath. A missing file is not an error when
// every required value arrives via the environment; the file error is
// reported only if it exists and cannot be parsed.
func Load(path string) (*Config, error) {
	var err error
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to env-only configuration.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	return cfg, nil
}

// HTTPTimeout returns the configured request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTP.TimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Validate checks general well-formedness. Token presence is checked
// by RequireGitHubToken/RequireJiraToken at API construction time, not
// here, so a repodata-only user needs no credentials.
// Returns all errors found (does not fail-fast).
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	email := strings.TrimSpace(c.UserInfo.Email)
	if email == "" {
		errs = append(errs, ValidationError{
			Field:   "user_info.email",
			Message: "email is required",
			Code:    ErrEmailMissing,
		})
	} else if !emailPattern.MatchString(email) {
		errs = append(errs, ValidationError{
			Field:   "user_info.email",
			Message: fmt.Sprintf("not a valid email address: %q", email),
			Code:    ErrEmailInvalid,
		})
	}

	if c.HTTP.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "http.timeout_seconds",
			Message: fmt.Sprintf("timeout must not be negative: %d", c.HTTP.TimeoutSeconds),
			Code:    ErrBadTimeout,
		})
	}

	return errs
}

// RequireGitHubToken returns the GitHub token or a coded error.
func (c *Config) RequireGitHubToken() (string, error) {
	if strings.TrimSpace(c.Token.GitHub) == "" {
		return "", ValidationError{
			Field:   "token.github",
			Message: "GitHub token is required for this operation",
			Code:    ErrTokenMissing,
		}
	}
	return c.Token.GitHub, nil
}

// RequireJiraToken returns the Jira token or a coded error.
func (c *Config) RequireJiraToken() (string, error) {
	if strings.TrimSpace(c.Token.Jira) == "" {
		return "", ValidationError{
			Field:   "token.jira",
			Message: "Jira token is required for this operation",
			Code:    ErrTokenMissing,
		}
	}
	return c.Token.Jira, nil
}
