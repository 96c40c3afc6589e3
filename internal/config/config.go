package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingToken is returned when no bot token was configured.
var ErrMissingToken = errors.New("no TELEGRAM_BOT_TOKEN environment variable found")

// Environment variables that override file values.
const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvPort     = "PORT"
	EnvLogoURL  = "LOGO_URL"
	EnvLogoPath = "LOGO_PATH"
	EnvLogLevel = "LOG_LEVEL"
)

// Config is the root configuration for relaybot.
type Config struct {
	General  GeneralConfig  `json:"general" yaml:"general"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Logo     LogoConfig     `json:"logo" yaml:"logo"`
	Photo    PhotoConfig    `json:"photo" yaml:"photo"`
	Brand    BrandConfig    `json:"brand" yaml:"brand"`
	Liveness LivenessConfig `json:"liveness" yaml:"liveness"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"` // debug | info | warn | error
}

type TelegramConfig struct {
	Token       string `json:"token" yaml:"token"`
	PollTimeout int    `json:"pollTimeout" yaml:"pollTimeout"` // long-poll seconds
	Debug       bool   `json:"debug,omitempty" yaml:"debug,omitempty"`
}

type LogoConfig struct {
	URL             string `json:"url" yaml:"url"`
	Path            string `json:"path" yaml:"path"`
	DownloadTimeout int    `json:"downloadTimeout" yaml:"downloadTimeout"` // seconds
}

type PhotoConfig struct {
	MaxWidth int `json:"maxWidth" yaml:"maxWidth"` // photos wider than this are scaled down; 0 disables
}

// BrandConfig overrides pieces of the caption template. Empty fields keep the default.
type BrandConfig struct {
	Header    string `json:"header,omitempty" yaml:"header,omitempty"`
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Connector string `json:"connector,omitempty" yaml:"connector,omitempty"`
	Footer    string `json:"footer,omitempty" yaml:"footer,omitempty"`
}

type LivenessConfig struct {
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
	Message string `json:"message" yaml:"message"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LoadDotEnv reads KEY=VALUE pairs from path (".env" when empty) into the
// process environment. A missing file is not an error; variables that are
// already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional file at path and
// the environment, in that order of precedence (environment wins).
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}

		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))

		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Logo.Path = ExpandPath(cfg.Logo.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// ApplyEnv copies well-known environment variables over cfg.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvBotToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Liveness.Port = port
	}
	if v := os.Getenv(EnvLogoURL); v != "" {
		cfg.Logo.URL = v
	}
	if v := os.Getenv(EnvLogoPath); v != "" {
		cfg.Logo.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.General.LogLevel = v
	}
	return nil
}

// RequireToken fails when the bot cannot authenticate.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes cfg as JSON, or YAML when path ends in .yaml/.yml.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has usable values. The bot token is
// checked separately by RequireToken so offline commands work without it.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.Telegram.PollTimeout < 0 || cfg.Telegram.PollTimeout > 600 {
		errs = append(errs, "telegram.pollTimeout must be between 0 and 600")
	}
	if cfg.Logo.Path == "" {
		errs = append(errs, "logo.path is required")
	}
	if cfg.Logo.DownloadTimeout < 1 {
		errs = append(errs, "logo.downloadTimeout must be >= 1")
	}
	if cfg.Photo.MaxWidth < 0 {
		errs = append(errs, "photo.maxWidth must be >= 0")
	}
	if cfg.Liveness.Port < 0 || cfg.Liveness.Port > 65535 {
		errs = append(errs, "liveness.port must be between 0 and 65535")
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be between 0 and 65535")
		}
		if cfg.Metrics.Port != 0 && cfg.Metrics.Port == cfg.Liveness.Port && cfg.Metrics.Host == cfg.Liveness.Host {
			errs = append(errs, "metrics must not share the liveness listener")
		}
		if !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
			errs = append(errs, "metrics.endpoint must start with /")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
