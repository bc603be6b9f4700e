package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config represents the lens configuration.
type Config struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	Format         string        `json:"format"`
	ContextLines   int           `json:"contextLines"`
	Include        []string      `json:"include"`
	Exclude        []string      `json:"exclude"`
	MaxFileBytes   int           `json:"maxFileBytes"`
	PolicyFile     string        `json:"policyFile,omitempty"`
	Framework      string        `json:"framework,omitempty"`
	ValidateIssues bool          `json:"validateIssues"`
	Concurrency    int           `json:"concurrency"`
	Log            LogConfig     `json:"log"`
	Privacy        PrivacyConfig `json:"privacy"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:       "anthropic",
		Model:          "claude-sonnet-4-20250514",
		Format:         "text",
		ContextLines:   3,
		Include:        []string{"**/*"},
		Exclude:        []string{"vendor/**", "**/dist/**", "**/node_modules/**"},
		MaxFileBytes:   200000,
		ValidateIssues: true,
		Concurrency:    4,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for lens.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "lens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "lens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "lens"), nil
	default:
		return filepath.Join(home, ".config", "lens"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil
// error if the file doesn't exist.
func LoadFile() (Config, error) {
	var cfg Config
	if _, err := decodeFile(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFileWithDefaults decodes the config file over Default(), ignoring the
// environment. It is the starting point for edits that are saved back.
func LoadFileWithDefaults() (Config, error) {
	cfg := Default()
	if _, err := decodeFile(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeFile decodes the config file over cfg, so keys missing from the file
// keep their current values. It reports whether the file exists.
func decodeFile(cfg *Config) (bool, error) {
	path, err := ConfigPath()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return true, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return true, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	if _, err := decodeFile(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys understood by SetField.
var envKeys = []struct {
	env, key string
}{
	{"LENS_PROVIDER", "provider"},
	{"LENS_MODEL", "model"},
	{"LENS_FORMAT", "format"},
	{"LENS_CONTEXT_LINES", "contextLines"},
	{"LENS_MAX_FILE_BYTES", "maxFileBytes"},
	{"LENS_POLICY_FILE", "policyFile"},
	{"LENS_FRAMEWORK", "framework"},
	{"LENS_CONCURRENCY", "concurrency"},
	{"LENS_LOG_LEVEL", "log.level"},
	{"LENS_LOG_FORMAT", "log.format"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists the keys accepted by SetField.
var Keys = []string{
	"provider", "model", "format", "contextLines", "maxFileBytes",
	"policyFile", "framework", "validateIssues", "concurrency",
	"log.level", "log.format", "privacy.redactSecrets", "privacy.redactPaths",
	"include", "exclude",
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "contextLines":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("contextLines must be a non-negative integer: %q", value)
		}
		cfg.ContextLines = n
	case "maxFileBytes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("maxFileBytes must be a non-negative integer: %q", value)
		}
		cfg.MaxFileBytes = n
	case "policyFile":
		cfg.PolicyFile = value
	case "framework":
		cfg.Framework = value
	case "validateIssues":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("validateIssues must be true or false: %w", err)
		}
		cfg.ValidateIssues = b
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer: %q", value)
		}
		cfg.Concurrency = n
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "privacy.redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSecrets must be true or false: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
