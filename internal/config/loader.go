package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"nlpd/internal/registry"
	"nlpd/pkg/types"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "NLPD_"

// Provider kinds.
const (
	ProviderOffline = "offline"
	ProviderHFAPI   = "hfapi"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr     string         `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	LogLevel string         `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	Provider ProviderConfig `json:"provider" yaml:"provider" toml:"provider" envPrefix:"PROVIDER_"`
	// Tasks overrides built-in task profiles, keyed by task id.
	Tasks map[string]TaskConfig `json:"tasks" yaml:"tasks" toml:"tasks"`
	CORS  CORSConfig            `json:"cors" yaml:"cors" toml:"cors" envPrefix:"CORS_"`

	// ResultCacheTTLSeconds < 0 disables the result cache.
	ResultCacheTTLSeconds int   `json:"result_cache_ttl_seconds" yaml:"result_cache_ttl_seconds" toml:"result_cache_ttl_seconds" env:"RESULT_CACHE_TTL_SECONDS"`
	MaxBodyBytes          int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	InferTimeoutSeconds   int   `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds" env:"INFER_TIMEOUT_SECONDS"`
	QueueDepth            int   `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth" env:"QUEUE_DEPTH"`
}

// ProviderConfig selects and configures the inference provider.
type ProviderConfig struct {
	Kind           string `json:"kind" yaml:"kind" toml:"kind" env:"KIND"`
	Endpoint       string `json:"endpoint" yaml:"endpoint" toml:"endpoint" env:"ENDPOINT"`
	HubURL         string `json:"hub_url" yaml:"hub_url" toml:"hub_url" env:"HUB_URL"`
	Token          string `json:"token" yaml:"token" toml:"token" env:"TOKEN"`
	CacheDir       string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" env:"CACHE_DIR"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// TaskConfig overrides one task profile.
type TaskConfig struct {
	Model     string `json:"model" yaml:"model" toml:"model"`
	Quantized *bool  `json:"quantized" yaml:"quantized" toml:"quantized"`
}

// CORSConfig is passed to httpapi.SetCORSOptions.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins" env:"ORIGINS" envSeparator:","`
	Methods []string `json:"methods" yaml:"methods" toml:"methods" env:"METHODS" envSeparator:","`
	Headers []string `json:"headers" yaml:"headers" toml:"headers" env:"HEADERS" envSeparator:","`
}

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		Addr:                  ":8080",
		LogLevel:              "info",
		Provider:              ProviderConfig{Kind: ProviderOffline, TimeoutSeconds: 60},
		ResultCacheTTLSeconds: 120,
		MaxBodyBytes:          1 << 20,
		InferTimeoutSeconds:   120,
		QueueDepth:            32,
	}
}

// WithDefaults fills unset fields from Defaults.
func (c Config) WithDefaults() Config {
	d := Defaults()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = d.Provider.TimeoutSeconds
	}
	if c.ResultCacheTTLSeconds == 0 {
		c.ResultCacheTTLSeconds = d.ResultCacheTTLSeconds
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.InferTimeoutSeconds == 0 {
		c.InferTimeoutSeconds = d.InferTimeoutSeconds
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = d.QueueDepth
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderOffline, ProviderHFAPI:
	default:
		return fmt.Errorf("provider.kind: unsupported provider %q", c.Provider.Kind)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.MaxBodyBytes < 0 || c.InferTimeoutSeconds < 0 || c.QueueDepth < 0 || c.Provider.TimeoutSeconds < 0 {
		return errors.New("sizes and timeouts must not be negative")
	}
	_, err := c.Overrides()
	return err
}

// Overrides converts Tasks into registry overrides.
func (c Config) Overrides() (map[types.TaskID]registry.Override, error) {
	if len(c.Tasks) == 0 {
		return nil, nil
	}
	out := make(map[types.TaskID]registry.Override, len(c.Tasks))
	for k, tc := range c.Tasks {
		id, err := types.ParseTaskID(k)
		if err != nil {
			return nil, fmt.Errorf("tasks: %w", err)
		}
		out[id] = registry.Override{ModelRef: tc.Model, Quantized: tc.Quantized}
	}
	return out, nil
}

// Registry builds the task registry with the configured overrides.
func (c Config) Registry() (*registry.Registry, error) {
	ov, err := c.Overrides()
	if err != nil {
		return nil, err
	}
	return registry.New(ov)
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. An empty path means
// ".env"; a missing default file is not an error.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// FromEnv overlays NLPD_* environment variables onto cfg. Unset variables
// leave fields untouched.
func FromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// Resolve builds the effective configuration: file (when path is set),
// then .env and environment, then defaults; the result is validated.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := LoadDotEnv(""); err != nil {
		return cfg, err
	}
	if err := FromEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}
