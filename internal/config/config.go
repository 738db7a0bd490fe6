// Package config loads the rubot configuration from ~/.rubot/config.yaml,
// with RUBOT_* environment overrides and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/logging"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Duration is a time.Duration written as "30m" in YAML.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", n.Value, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the full configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    logging.Config   `mapstructure:"logging" yaml:"logging"`
	Transcript TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
	Catalog    CatalogConfig    `mapstructure:"catalog" yaml:"catalog"`
}

// EngineConfig holds the orchestrator settings.
type EngineConfig struct {
	DefaultLanguage     string   `mapstructure:"default_language" yaml:"default_language"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	HistoryLimit        int      `mapstructure:"history_limit" yaml:"history_limit"`
	MultiTurn           bool     `mapstructure:"multi_turn" yaml:"multi_turn"`
	ToolUse             bool     `mapstructure:"tool_use" yaml:"tool_use"`
	Fallback            bool     `mapstructure:"fallback" yaml:"fallback"`
	ToolTimeout         Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
}

// SessionConfig holds the session lifecycle settings.
type SessionConfig struct {
	Timeout       Duration `mapstructure:"timeout" yaml:"timeout"`
	SweepSchedule string   `mapstructure:"sweep_schedule" yaml:"sweep_schedule"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr            string   `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// TranscriptConfig holds the SQLite transcript settings.
type TranscriptConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Path      string `mapstructure:"path" yaml:"path"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size"`
}

// CatalogConfig points at a catalog file overriding the embedded one.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	engine := orchestrator.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			DefaultLanguage:     engine.DefaultLanguage,
			ConfidenceThreshold: engine.ConfidenceThreshold,
			HistoryLimit:        engine.HistoryLimit,
			MultiTurn:           engine.MultiTurn,
			ToolUse:             engine.ToolUse,
			Fallback:            engine.Fallback,
			ToolTimeout:         Duration(engine.ToolTimeout),
		},
		Session: SessionConfig{
			Timeout:       Duration(30 * time.Minute),
			SweepSchedule: "@every 5m",
		},
		Server: ServerConfig{
			Addr:            ":8088",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: logging.DefaultConfig(),
		Transcript: TranscriptConfig{
			Enabled:   false,
			Path:      "~/.rubot/transcript.db",
			QueueSize: 256,
		},
	}
}

// Orchestrator converts the engine section.
func (e EngineConfig) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		DefaultLanguage:     e.DefaultLanguage,
		ConfidenceThreshold: e.ConfidenceThreshold,
		HistoryLimit:        e.HistoryLimit,
		MultiTurn:           e.MultiTurn,
		ToolUse:             e.ToolUse,
		Fallback:            e.Fallback,
		ToolTimeout:         e.ToolTimeout.Std(),
	}
}

// DataDir returns ~/.rubot.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rubot"
	}
	return filepath.Join(home, ".rubot")
}

// DefaultPath returns ~/.rubot/config.yaml.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// LoadEnv loads ~/.rubot/.env and ./.env into the process environment.
// Variables already set are not overridden and missing files are ignored.
func LoadEnv() {
	for _, p := range []string{filepath.Join(DataDir(), ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath reads the configuration at path, creating it with defaults
// when missing, and applies RUBOT_* environment overrides such as
// RUBOT_ENGINE_CONFIDENCE_THRESHOLD.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RUBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v, "", reflect.TypeOf(Config{}))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(durationHook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Transcript.Path = expandPath(cfg.Transcript.Path)
	cfg.Logging.FilePath = expandPath(cfg.Logging.FilePath)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path)
	return cfg, nil
}

// bindKeys registers every leaf key so environment variables override keys
// that are absent from the file too.
func bindKeys(v *viper.Viper, prefix string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct {
			bindKeys(v, key, f.Type)
			continue
		}
		_ = v.BindEnv(key)
	}
}

var durationType = reflect.TypeOf(Duration(0))

// durationHook decodes "30m" strings and integer nanoseconds into Duration.
// Comma-separated env values are split for string slices.
func durationHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String && from.Kind() == reflect.String {
		s := data.(string)
		if s == "" {
			return []string{}, nil
		}
		return strings.Split(s, ","), nil
	}
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", v, err)
		}
		return Duration(d), nil
	case int:
		return Duration(v), nil
	case int64:
		return Duration(v), nil
	case float64:
		return Duration(int64(v)), nil
	}
	return data, nil
}

// SaveToPath writes the configuration to path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Engine.Orchestrator().Validate(); err != nil {
		return fmt.Errorf("%w: engine: %v", ErrInvalid, err)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("%w: session.timeout must be positive", ErrInvalid)
	}
	if strings.TrimSpace(c.Session.SweepSchedule) == "" {
		return fmt.Errorf("%w: session.sweep_schedule cannot be empty", ErrInvalid)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr cannot be empty", ErrInvalid)
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: logging.format %q must be console or json", ErrInvalid, c.Logging.Format)
	}
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("%w: invalid log level %q", ErrInvalid, c.Logging.Level)
	}
	if c.Transcript.Enabled {
		if c.Transcript.Path == "" {
			return fmt.Errorf("%w: transcript.path cannot be empty when enabled", ErrInvalid)
		}
		if c.Transcript.QueueSize <= 0 {
			return fmt.Errorf("%w: transcript.queue_size must be positive", ErrInvalid)
		}
	}
	return nil
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
