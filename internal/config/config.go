// Package config holds the JSON configuration: loading with environment
// variable expansion, validation, and dot-path access for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for seekbot.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Store     StoreConfig     `json:"store"`
	Retrieval RetrievalConfig `json:"retrieval"`
	MRC       MRCConfig       `json:"mrc"`
	Speech    SpeechConfig    `json:"speech"`
	Channels  ChannelsConfig  `json:"channels"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel       string `json:"logLevel"`
	LogFile        string `json:"logFile,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // shared deadline for one dispatch round
	Strict         bool   `json:"strict"`         // abort on defects instead of degrading
}

// StoreConfig configures interaction persistence and the history window.
type StoreConfig struct {
	DBPath             string `json:"dbPath"`
	HistoryMaxAgeMins  int    `json:"historyMaxAgeMinutes"`
	HistoryMaxMessages int    `json:"historyMaxMessages"`
}

// RetrievalConfig selects and tunes the document retrieval engine.
type RetrievalConfig struct {
	Engine           string   `json:"engine"` // "sqlite" | "duckduckgo"
	IndexPath        string   `json:"indexPath,omitempty"`
	CorpusPaths      []string `json:"corpusPaths,omitempty"` // YAML files or directories indexed at startup
	ResultsRequested int      `json:"resultsRequested"`
	HistoryTurns     int      `json:"historyTurns"` // past turns folded into the query
}

// MRCConfig configures the machine reading comprehension service client.
type MRCConfig struct {
	Enabled          bool   `json:"enabled"`
	Endpoint         string `json:"endpoint,omitempty"`
	ResultsRequested int    `json:"resultsRequested"`
}

// SpeechConfig configures voice input/output for channels that support it.
type SpeechConfig struct {
	Enabled  bool   `json:"enabled"`
	APIBase  string `json:"apiBase,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	ASRModel string `json:"asrModel,omitempty"`
	TTSModel string `json:"ttsModel,omitempty"`
	TTSVoice string `json:"ttsVoice,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Stdio    StdioConfig    `json:"stdio"`
	Fileio   FileioConfig   `json:"fileio"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type StdioConfig struct {
	Enabled bool `json:"enabled"`
}

// FileioConfig configures the offline batch channel.
type FileioConfig struct {
	Enabled      bool   `json:"enabled"`
	InputPath    string `json:"inputPath,omitempty"`
	OutputPath   string `json:"outputPath,omitempty"`
	OutputFormat string `json:"outputFormat"` // "text" | "trec"
	RunID        string `json:"runId,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.seekbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".seekbot"
	}
	return filepath.Join(home, ".seekbot")
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

	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.Retrieval.IndexPath = ExpandPath(cfg.Retrieval.IndexPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	for i, p := range cfg.Retrieval.CorpusPaths {
		cfg.Retrieval.CorpusPaths[i] = ExpandPath(p)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
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
			return match
		}
		return val
	})
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

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.TimeoutSeconds < 1 || cfg.General.TimeoutSeconds > 600 {
		errs = append(errs, "general.timeoutSeconds must be between 1 and 600")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Store.HistoryMaxAgeMins < 1 {
		errs = append(errs, "store.historyMaxAgeMinutes must be >= 1")
	}
	if cfg.Store.HistoryMaxMessages < 1 {
		errs = append(errs, "store.historyMaxMessages must be >= 1")
	}

	switch cfg.Retrieval.Engine {
	case "sqlite", "duckduckgo":
	default:
		errs = append(errs, "retrieval.engine must be one of: sqlite, duckduckgo")
	}
	if cfg.Retrieval.Engine == "sqlite" && cfg.Retrieval.IndexPath == "" {
		errs = append(errs, "retrieval.indexPath is required for the sqlite engine")
	}
	if cfg.Retrieval.ResultsRequested < 1 {
		errs = append(errs, "retrieval.resultsRequested must be >= 1")
	}

	if cfg.MRC.Enabled && cfg.MRC.Endpoint == "" {
		errs = append(errs, "mrc.endpoint is required when mrc is enabled")
	}

	if cfg.Channels.Fileio.Enabled {
		switch cfg.Channels.Fileio.OutputFormat {
		case "text", "trec":
		default:
			errs = append(errs, "channels.fileio.outputFormat must be one of: text, trec")
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
