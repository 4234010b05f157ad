// Package config loads the sefra settings from defaults, an optional YAML
// file and SEFRA_ environment variables, in that order of precedence.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/guihenriquebr/sefra/pkg/domain"
	pii "github.com/guihenriquebr/sefra/pkg/persistence/middleware"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEFRA_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Submission SubmissionConfig `mapstructure:"submission" yaml:"submission"`
	Offline    OfflineConfig    `mapstructure:"offline" yaml:"offline"`
	Security   SecurityConfig   `mapstructure:"security" yaml:"security"`

	// FormFile points to a YAML form definition; empty uses the built-in form.
	FormFile string `mapstructure:"form_file" yaml:"form_file"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Root            string        `mapstructure:"root" yaml:"root"`
	LeadDelay       time.Duration `mapstructure:"lead_delay" yaml:"lead_delay"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File enables rotation through lumberjack; empty logs to stderr.
	File string `mapstructure:"file" yaml:"file"`
}

type StorageConfig struct {
	// Sessions is one of memory, file or redis.
	Sessions string `mapstructure:"sessions" yaml:"sessions"`
	// Queue is one of memory, file, sqlite or redis.
	Queue string `mapstructure:"queue" yaml:"queue"`
	// Cache is one of memory, file or redis.
	Cache string `mapstructure:"cache" yaml:"cache"`

	Dir        string        `mapstructure:"dir" yaml:"dir"`
	SQLitePath string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	Redis      RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

type SubmissionConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"` // empty: local server on server.port
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type OfflineConfig struct {
	Origin  string `mapstructure:"origin" yaml:"origin"` // empty: local server on server.port
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	Version string `mapstructure:"version" yaml:"version"`
}

type SecurityConfig struct {
	// EncryptionKey is a base64 AES-256 key; empty disables session encryption.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	PIIPatterns   []string `mapstructure:"pii_patterns" yaml:"pii_patterns"`
	MaskPII       bool     `mapstructure:"mask_pii" yaml:"mask_pii"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			Root:            ".",
			LeadDelay:       500 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Sessions:   BackendMemory,
			Queue:      BackendFile,
			Cache:      BackendMemory,
			Dir:        ".sefra",
			SQLitePath: ".sefra/pending.db",
			SessionTTL: 24 * time.Hour,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "sefra:",
			},
		},
		Submission: SubmissionConfig{
			Timeout: 10 * time.Second,
		},
		Offline: OfflineConfig{
			Listen:  ":8080",
			Prefix:  "sefra",
			Version: "v1",
		},
		Security: SecurityConfig{
			PIIPatterns: slices.Clone(pii.DefaultPIIPatterns),
		},
	}
}

// envKeys maps environment variables to configuration paths. PORT comes
// before SEFRA_SERVER_PORT so the prefixed variable wins.
var envKeys = []struct {
	env  string
	path string
}{
	{"PORT", "server.port"},
	{EnvPrefix + "SERVER_PORT", "server.port"},
	{EnvPrefix + "SERVER_ROOT", "server.root"},
	{EnvPrefix + "SERVER_LEAD_DELAY", "server.lead_delay"},
	{EnvPrefix + "SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
	{EnvPrefix + "LOG_LEVEL", "log.level"},
	{EnvPrefix + "LOG_FILE", "log.file"},
	{EnvPrefix + "STORAGE_SESSIONS", "storage.sessions"},
	{EnvPrefix + "STORAGE_QUEUE", "storage.queue"},
	{EnvPrefix + "STORAGE_CACHE", "storage.cache"},
	{EnvPrefix + "STORAGE_DIR", "storage.dir"},
	{EnvPrefix + "STORAGE_SQLITE_PATH", "storage.sqlite_path"},
	{EnvPrefix + "STORAGE_SESSION_TTL", "storage.session_ttl"},
	{EnvPrefix + "REDIS_ADDR", "storage.redis.addr"},
	{EnvPrefix + "REDIS_PASSWORD", "storage.redis.password"},
	{EnvPrefix + "REDIS_DB", "storage.redis.db"},
	{EnvPrefix + "REDIS_PREFIX", "storage.redis.prefix"},
	{EnvPrefix + "SUBMISSION_ENDPOINT", "submission.endpoint"},
	{EnvPrefix + "SUBMISSION_TIMEOUT", "submission.timeout"},
	{EnvPrefix + "OFFLINE_ORIGIN", "offline.origin"},
	{EnvPrefix + "OFFLINE_LISTEN", "offline.listen"},
	{EnvPrefix + "OFFLINE_PREFIX", "offline.prefix"},
	{EnvPrefix + "OFFLINE_VERSION", "offline.version"},
	{EnvPrefix + "ENCRYPTION_KEY", "security.encryption_key"},
	{EnvPrefix + "FALLBACK_KEYS", "security.fallback_keys"},
	{EnvPrefix + "PII_PATTERNS", "security.pii_patterns"},
	{EnvPrefix + "MASK_PII", "security.mask_pii"},
	{EnvPrefix + "FORM_FILE", "form_file"},
}

// Load reads path (optional) and applies the environment from lookup.
// A nil lookup uses os.LookupEnv.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for _, k := range envKeys {
		if v, ok := lookup(k.env); ok && v != "" {
			set(raw, k.path, v)
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// set stores value under a dotted path, creating intermediate maps.
func set(raw map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	m := raw
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.LeadDelay < 0 {
		return fmt.Errorf("server.lead_delay must not be negative")
	}
	if err := oneOf("storage.sessions", c.Storage.Sessions, BackendMemory, BackendFile, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("storage.queue", c.Storage.Queue, BackendMemory, BackendFile, BackendSQLite, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("storage.cache", c.Storage.Cache, BackendMemory, BackendFile, BackendRedis); err != nil {
		return err
	}
	if _, _, err := c.Security.Keys(); err != nil {
		return err
	}
	if _, err := pii.CompilePatterns(c.Security.PIIPatterns); err != nil {
		return err
	}
	return nil
}

// LeadEndpoint is submission.endpoint, or the lead endpoint of the local
// server on server.port when unset.
func (c Config) LeadEndpoint() string {
	if c.Submission.Endpoint != "" {
		return c.Submission.Endpoint
	}
	return fmt.Sprintf("%s/api/leads", c.localOrigin())
}

// OfflineOrigin is offline.origin, or the local server on server.port when unset.
func (c Config) OfflineOrigin() string {
	if c.Offline.Origin != "" {
		return c.Offline.Origin
	}
	return c.localOrigin()
}

func (c Config) localOrigin() string {
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown backend %q (want one of %s)", name, value, strings.Join(allowed, ", "))
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s SecurityConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("security.fallback_keys set without security.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("security.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("security.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != pii.KeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", pii.KeySize, len(key))
	}
	return key, nil
}

// LoadForm reads a YAML form definition. An empty path returns the built-in
// form.
func LoadForm(path string) (domain.Form, error) {
	if path == "" {
		return domain.DefaultForm(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Form{}, fmt.Errorf("failed to read form %s: %w", path, err)
	}
	var form domain.Form
	if err := yaml.Unmarshal(data, &form); err != nil {
		return domain.Form{}, fmt.Errorf("failed to parse form %s: %w", path, err)
	}
	if err := form.Check(); err != nil {
		return domain.Form{}, err
	}
	return form, nil
}
