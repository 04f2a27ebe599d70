package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for lotbot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Telegram TelegramConfig `json:"telegram"`
	Sheet    SheetConfig    `json:"sheet"`
	Ledger   LedgerConfig   `json:"ledger"`
	Sections SectionsConfig `json:"sections"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	Timezone string `json:"timezone"` // row timestamps are rendered in this zone
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chatId"` // the single group this bot listens to
}

type SheetConfig struct {
	SpreadsheetID   string `json:"spreadsheetId"`
	SheetName       string `json:"sheetName"`
	CredentialsFile string `json:"credentialsFile,omitempty"` // empty = application default credentials
}

type LedgerConfig struct {
	Driver string `json:"driver"` // "jsonl" | "sqlite"
	Path   string `json:"path"`
}

type SectionsConfig struct {
	MappingFile   string `json:"mappingFile"`
	Authoritative string `json:"authoritative"` // section whose messages carry trusted categories
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// DefaultConfigDir returns the default config directory (~/.lotbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lotbot"
	}
	return filepath.Join(home, ".lotbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Ledger.Path = ExpandPath(cfg.Ledger.Path)
	cfg.Sections.MappingFile = ExpandPath(cfg.Sections.MappingFile)
	cfg.Sheet.CredentialsFile = ExpandPath(cfg.Sheet.CredentialsFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. Credentials are checked
// separately at startup because doctor must be able to load a config whose
// secrets are not yet filled in.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.Timezone == "" {
		errs = append(errs, "general.timezone must not be empty")
	}

	switch cfg.Ledger.Driver {
	case "jsonl", "sqlite":
		// valid
	default:
		errs = append(errs, "ledger.driver must be one of: jsonl, sqlite")
	}
	if cfg.Ledger.Path == "" {
		errs = append(errs, "ledger.path must not be empty")
	}

	if cfg.Sections.MappingFile == "" {
		errs = append(errs, "sections.mappingFile must not be empty")
	}
	if cfg.Sections.Authoritative == "" {
		errs = append(errs, "sections.authoritative must not be empty")
	}

	if cfg.Sheet.SheetName == "" {
		errs = append(errs, "sheet.sheetName must not be empty")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr must be set when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateRuntime checks the values that only the run command needs.
func ValidateRuntime(cfg *Config) error {
	var errs []string
	if cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if cfg.Telegram.ChatID == 0 {
		errs = append(errs, "telegram.chatId is required")
	}
	if cfg.Sheet.SpreadsheetID == "" {
		errs = append(errs, "sheet.spreadsheetId is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config is not runnable:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
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
