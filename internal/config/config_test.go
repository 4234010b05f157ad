package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/internal/config"
	"github.com/guihenriquebr/sefra/pkg/domain"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.LeadDelay)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "sefra.yaml", `
server:
  port: 8081
  lead_delay: 50ms
storage:
  queue: sqlite
  redis:
    db: 2
security:
  pii_patterns: ["^email$"]
`)

	cfg, err := config.Load(path, env(map[string]string{
		"PORT":              "9000",
		"SEFRA_LOG_LEVEL":   "debug",
		"SEFRA_REDIS_DB":    "3",
		"SEFRA_MASK_PII":    "true",
		"SEFRA_QUEUE_BOGUS": "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port, "env overrides the file")
	assert.Equal(t, 50*time.Millisecond, cfg.Server.LeadDelay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.BackendSQLite, cfg.Storage.Queue)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr, "untouched nested defaults survive")
	assert.True(t, cfg.Security.MaskPII)
	assert.Equal(t, []string{"^email$"}, cfg.Security.PIIPatterns)
}

func TestLoad_PrefixedPortWins(t *testing.T) {
	cfg, err := config.Load("", env(map[string]string{"PORT": "9000", "SEFRA_SERVER_PORT": "9001"}))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoad_EnvList(t *testing.T) {
	cfg, err := config.Load("", env(map[string]string{"SEFRA_PII_PATTERNS": "^nome$,^cpf$"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"^nome$", "^cpf$"}, cfg.Security.PIIPatterns)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "unknown key", file: "servr:\n  port: 1\n", want: "invalid configuration"},
		{name: "bad port", env: map[string]string{"PORT": "70000"}, want: "server.port"},
		{name: "bad backend", env: map[string]string{"SEFRA_STORAGE_QUEUE": "s3"}, want: "storage.queue"},
		{name: "bad duration", env: map[string]string{"SEFRA_SERVER_LEAD_DELAY": "soon"}, want: "invalid configuration"},
		{name: "short key", env: map[string]string{"SEFRA_ENCRYPTION_KEY": base64.StdEncoding.EncodeToString([]byte("short"))}, want: "security.encryption_key"},
		{name: "fallback without key", env: map[string]string{"SEFRA_FALLBACK_KEYS": "abc"}, want: "fallback_keys"},
		{name: "bad pattern", env: map[string]string{"SEFRA_PII_PATTERNS": "("}, want: "invalid PII pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, "sefra.yaml", tt.file)
			}
			_, err := config.Load(path, env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSecurityKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", 32)))
	old := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("b", 32)))

	cfg, err := config.Load("", env(map[string]string{
		"SEFRA_ENCRYPTION_KEY": active,
		"SEFRA_FALLBACK_KEYS":  old,
	}))
	require.NoError(t, err)

	key, fallback, err := cfg.Security.Keys()
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("a", 32)), key)
	require.Len(t, fallback, 1)
	assert.Equal(t, []byte(strings.Repeat("b", 32)), fallback[0])
}

func TestLoadForm(t *testing.T) {
	form, err := config.LoadForm("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultForm(), form)

	path := writeFile(t, "form.yaml", `
name: short
steps:
  - title: Contato
    fields:
      - name: email
        kind: email
        required: true
  - title: Prazo
    fields:
      - name: prazo
        kind: choice
        required: true
        options: ["120", "180"]
`)
	form, err = config.LoadForm(path)
	require.NoError(t, err)
	assert.Equal(t, 2, form.TotalSteps())
	assert.Equal(t, domain.KindChoice, form.Steps[1].Fields[0].Kind)

	bad := writeFile(t, "bad.yaml", "name: bad\nsteps: []\n")
	_, err = config.LoadForm(bad)
	assert.Error(t, err)
}

func TestLeadEndpoint(t *testing.T) {
	cfg, err := config.Load("", env(map[string]string{"PORT": "4000"}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000/api/leads", cfg.LeadEndpoint())
	assert.Equal(t, "http://localhost:4000", cfg.OfflineOrigin())

	cfg.Server.Port = 4100
	assert.Equal(t, "http://localhost:4100/api/leads", cfg.LeadEndpoint(), "follows a port set after loading")

	cfg, err = config.Load("", env(map[string]string{
		"PORT":                      "4000",
		"SEFRA_SUBMISSION_ENDPOINT": "https://crm.example.com/leads",
		"SEFRA_OFFLINE_ORIGIN":      "https://sefra.example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com/leads", cfg.LeadEndpoint())
	assert.Equal(t, "https://sefra.example.com", cfg.OfflineOrigin())
}
