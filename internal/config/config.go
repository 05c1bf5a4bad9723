// Package config loads the server configuration.
//
// Values are resolved with the precedence: command-line flags, environment
// variables, the optional YAML file named by --config, then defaults.
package config

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds all server configuration.
type Config struct {
	// Server settings
	Port            string        `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"-"`

	// Storage
	Store         string `yaml:"store"` // mongo or memory
	MongoURI      string `yaml:"mongodb_uri"`
	MongoDatabase string `yaml:"mongodb_database"`

	// AI provider (any OpenAI-compatible chat completions endpoint)
	AIAPIKey  string `yaml:"ai_api_key"`
	AIBaseURL string `yaml:"ai_base_url"`
	AIModel   string `yaml:"ai_model"`

	// Identity
	AuthTokenKey string        `yaml:"auth_token_key"` // 64 hex characters (32 bytes)
	AuthTokenTTL time.Duration `yaml:"-"`
	OIDCIssuer   string        `yaml:"oidc_issuer"`
	OIDCClientID string        `yaml:"oidc_client_id"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
}

// fileConfig mirrors Config for the YAML file; durations are strings there.
type fileConfig struct {
	Config       `yaml:",inline"`
	AuthTokenTTL string `yaml:"auth_token_ttl"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func defaults() *Config {
	return &Config{
		Port:            "3000",
		ShutdownTimeout: 10 * time.Second,
		Store:           StoreMongo,
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "smartnotes",
		AIBaseURL:       "https://generativelanguage.googleapis.com/v1beta/openai/",
		AIModel:         "gemini-2.5-flash",
		AuthTokenTTL:    24 * time.Hour,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration from args, the environment and the
// optional config file read through fs. It does not validate.
func Load(fs afero.Fs, args []string, getenv func(string) string) (*Config, error) {
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", "", "Path to a YAML config file")
	port := flags.String("port", "", "Listen port (default 3000)")
	store := flags.String("store", "", "Note store: mongo or memory")
	logLevel := flags.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flags.String("log-format", "", "Log format (text, json)")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg := defaults()

	path := *configPath
	if path == "" {
		path = getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(fs, path, cfg); err != nil {
			return nil, err
		}
	}

	setString(&cfg.Port, getenv("PORT"))
	setString(&cfg.Store, getenv("STORE"))
	setString(&cfg.MongoURI, getenv("MONGODB_URI"))
	setString(&cfg.MongoDatabase, getenv("MONGODB_DATABASE"))
	setString(&cfg.AIAPIKey, getenv("AI_API_KEY"))
	setString(&cfg.AIBaseURL, getenv("AI_BASE_URL"))
	setString(&cfg.AIModel, getenv("AI_MODEL"))
	setString(&cfg.AuthTokenKey, getenv("AUTH_TOKEN_KEY"))
	setString(&cfg.OIDCIssuer, getenv("OIDC_ISSUER"))
	setString(&cfg.OIDCClientID, getenv("OIDC_CLIENT_ID"))
	setString(&cfg.LogLevel, getenv("LOG_LEVEL"))
	setString(&cfg.LogFormat, getenv("LOG_FORMAT"))
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getenv("AUTH_TOKEN_TTL"); v != "" {
		ttl, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL %q: %w", v, err)
		}
		cfg.AuthTokenTTL = ttl
	}

	setString(&cfg.Port, *port)
	setString(&cfg.Store, *store)
	setString(&cfg.LogLevel, *logLevel)
	setString(&cfg.LogFormat, *logFormat)

	cfg.Store = strings.ToLower(cfg.Store)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return cfg, nil
}

func loadFile(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.AuthTokenTTL != "" {
		ttl, err := parseDuration(fc.AuthTokenTTL)
		if err != nil {
			return fmt.Errorf("invalid auth_token_ttl %q: %w", fc.AuthTokenTTL, err)
		}
		fc.Config.AuthTokenTTL = ttl
	}
	*cfg = fc.Config
	return nil
}

// Validate checks that the configuration is usable and reports every
// problem at once.
func (c *Config) Validate() error {
	var problems []string

	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a number between 1 and 65535, got %q", c.Port))
	}

	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			problems = append(problems, "MONGODB_URI is required when STORE=mongo")
		}
		if c.MongoDatabase == "" {
			problems = append(problems, "MONGODB_DATABASE is required when STORE=mongo")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store))
	}

	if c.AIAPIKey == "" {
		problems = append(problems, "AI_API_KEY is required")
	}
	if u, err := url.Parse(c.AIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("AI_BASE_URL must be an absolute URL, got %q", c.AIBaseURL))
	}
	if c.AIModel == "" {
		problems = append(problems, "AI_MODEL is required")
	}

	if c.AuthTokenKey == "" && c.OIDCIssuer == "" {
		problems = append(problems, "at least one of AUTH_TOKEN_KEY or OIDC_ISSUER is required")
	}
	if c.AuthTokenKey != "" {
		if len(c.AuthTokenKey) != 64 {
			problems = append(problems, "AUTH_TOKEN_KEY must be 64 hex characters (32 bytes)")
		} else if _, err := hex.DecodeString(c.AuthTokenKey); err != nil {
			problems = append(problems, "AUTH_TOKEN_KEY must be valid hex")
		}
	}
	if c.AuthTokenTTL <= 0 {
		problems = append(problems, "AUTH_TOKEN_TTL must be positive")
	}
	if c.OIDCIssuer != "" && c.OIDCClientID == "" {
		problems = append(problems, "OIDC_CLIENT_ID is required when OIDC_ISSUER is set")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %s", s)
	}
	return time.Duration(n) * time.Second, nil
}
