package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), nil, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "smartnotes", cfg.MongoDatabase)
	assert.Equal(t, "gemini-2.5-flash", cfg.AIModel)
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Precedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/smartnotes.yaml", []byte(`
port: "4000"
store: memory
ai_model: file-model
log_level: debug
cors_origins:
  - https://notes.example.com
auth_token_ttl: 2h
`), 0o644))

	env := envFrom(map[string]string{
		"PORT":         "5000",
		"AI_API_KEY":   "env-key",
		"CORS_ORIGINS": "https://a.example.com, https://b.example.com",
	})
	cfg, err := Load(fs, []string{"--config", "/etc/smartnotes.yaml", "--port", "6000"}, env)
	require.NoError(t, err)

	assert.Equal(t, "6000", cfg.Port, "flag beats env and file")
	assert.Equal(t, StoreMemory, cfg.Store, "file beats default")
	assert.Equal(t, "file-model", cfg.AIModel)
	assert.Equal(t, "env-key", cfg.AIAPIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins, "env beats file")
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte("mongodb_database: from-file\n"), 0o644))

	cfg, err := Load(fs, nil, envFrom(map[string]string{"CONFIG_FILE": "/cfg.yaml"}))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MongoDatabase)
}

func TestLoad_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("port: [unclosed"), 0o644))

	_, err := Load(fs, []string{"--config", "/missing.yaml"}, envFrom(nil))
	assert.ErrorContains(t, err, "read config file")

	_, err = Load(fs, []string{"--config", "/bad.yaml"}, envFrom(nil))
	assert.ErrorContains(t, err, "parse config file")

	_, err = Load(fs, []string{"--no-such-flag"}, envFrom(nil))
	assert.ErrorContains(t, err, "parse flags")

	_, err = Load(fs, nil, envFrom(map[string]string{"AUTH_TOKEN_TTL": "soon"}))
	assert.ErrorContains(t, err, "AUTH_TOKEN_TTL")
}

func TestParseDuration_AcceptsSeconds(t *testing.T) {
	d, err := parseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func validConfig() *Config {
	cfg := defaults()
	cfg.AIAPIKey = "key"
	cfg.AuthTokenKey = validKey
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	oidcOnly := validConfig()
	oidcOnly.AuthTokenKey = ""
	oidcOnly.OIDCIssuer = "https://accounts.example.com"
	oidcOnly.OIDCClientID = "client"
	assert.NoError(t, oidcOnly.Validate())

	memory := validConfig()
	memory.Store = StoreMemory
	memory.MongoURI = ""
	assert.NoError(t, memory.Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := &Config{
		Port:      "99999",
		Store:     "postgres",
		AIBaseURL: "not a url",
		LogLevel:  "loud",
		LogFormat: "xml",
	}
	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	want := []string{"PORT", "STORE", "AI_API_KEY", "AI_BASE_URL", "AI_MODEL", "AUTH_TOKEN_KEY or OIDC_ISSUER", "AUTH_TOKEN_TTL", "LOG_LEVEL", "LOG_FORMAT"}
	require.Len(t, verr.Errors, len(want))
	for i, key := range want {
		assert.Contains(t, verr.Errors[i], key)
	}
	assert.True(t, strings.HasPrefix(err.Error(), "configuration validation failed:"))
}

func TestValidate_TokenKeyAndOIDC(t *testing.T) {
	short := validConfig()
	short.AuthTokenKey = "abcd"
	assert.ErrorContains(t, short.Validate(), "64 hex characters")

	notHex := validConfig()
	notHex.AuthTokenKey = strings.Repeat("zz", 32)
	assert.ErrorContains(t, notHex.Validate(), "valid hex")

	noClient := validConfig()
	noClient.OIDCIssuer = "https://accounts.example.com"
	assert.ErrorContains(t, noClient.Validate(), "OIDC_CLIENT_ID")

	mongo := validConfig()
	mongo.MongoURI = ""
	assert.ErrorContains(t, mongo.Validate(), "MONGODB_URI")
}
