// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/vachat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the local vachat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Language is the last language chosen in the language picker.
	Language string `toml:"language" json:"language"`

	// Client locates the deployment documents.
	Client ClientSourceConfig `toml:"client" json:"client"`

	// Orchestrator transport settings
	Orchestrator OrchestratorConfig `toml:"orchestrator" json:"orchestrator"`

	// Speech input and playback
	Speech SpeechConfig `toml:"speech" json:"speech"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// ClientSourceConfig points at the client document and language strings.
// Both accept a file path or an http(s) URL.
type ClientSourceConfig struct {
	// ConfigSource is the client configuration document (client.config.json).
	ConfigSource string `toml:"config_source" json:"config_source"`
	// StringsSource is the language strings document (config.json).
	StringsSource string `toml:"strings_source" json:"strings_source"`
}

// OrchestratorConfig contains request settings for the orchestrator backend.
type OrchestratorConfig struct {
	// TimeoutSecs bounds a single /message exchange.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxResponseMB caps the response body size.
	MaxResponseMB int `toml:"max_response_mb" json:"max_response_mb"`
	// Debug appends the orchestrator's showAllMessages trail to the log.
	Debug bool `toml:"debug" json:"debug"`
	// FeedbackPerSecond throttles feedback posts.
	FeedbackPerSecond float64 `toml:"feedback_per_second" json:"feedback_per_second"`
}

// SpeechConfig configures speech synthesis, playback and dictation.
type SpeechConfig struct {
	// Key and Region override the client document's Azure speech credentials.
	Key    string `toml:"key" json:"key"`
	Region string `toml:"region" json:"region"`
	// PlayerCommand receives synthesized audio on stdin (e.g. "ffplay -nodisp -autoexit -").
	PlayerCommand string `toml:"player_command" json:"player_command"`
	// RecognizerCommand prints one recognized utterance per line on stdout.
	RecognizerCommand string `toml:"recognizer_command" json:"recognizer_command"`
	// AutoPlayDelayMs is the debounce before auto-playing a new bot message.
	AutoPlayDelayMs int `toml:"auto_play_delay_ms" json:"auto_play_delay_ms"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// DisplayMode is "instant" or "incremental" (typing effect).
	DisplayMode string `toml:"display_mode" json:"display_mode"`
	// RevealRunesPerTick is how many runes the typing effect reveals per tick.
	RevealRunesPerTick int `toml:"reveal_runes_per_tick" json:"reveal_runes_per_tick"`
	// RevealTickMs is the typing effect tick interval.
	RevealTickMs int `toml:"reveal_tick_ms" json:"reveal_tick_ms"`
	// ExportDir receives /export transcripts (empty = current directory).
	ExportDir string `toml:"export_dir" json:"export_dir"`
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format: text or json
	Format string `toml:"format" json:"format"`
	// File is the log path for the TUI (empty = ~/.vachat/vachat.log).
	File string `toml:"file" json:"file"`
}

// Display modes.
const (
	DisplayInstant     = "instant"
	DisplayIncremental = "incremental"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Client: ClientSourceConfig{
			ConfigSource:  "client.config.json",
			StringsSource: "config.json",
		},
		Orchestrator: OrchestratorConfig{
			TimeoutSecs:       60,
			MaxResponseMB:     10,
			FeedbackPerSecond: 2,
		},
		Speech: SpeechConfig{
			PlayerCommand:   "ffplay -nodisp -autoexit -loglevel quiet -",
			AutoPlayDelayMs: 500,
		},
		UI: UIConfig{
			Theme:              "auto",
			DisplayMode:        DisplayInstant,
			RevealRunesPerTick: 3,
			RevealTickMs:       20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the vachat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("VACHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vachat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the configured log file, or the default under ConfigDir.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vachat.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	for _, candidate := range []struct {
		pathFn func() (string, error)
		load   func(*Config, string) error
		kind   string
	}{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
	} {
		path, err := candidate.pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", candidate.kind, err)
			cfg = Default()
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	// Defaults are returned with the load error for informational purposes.
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Client.ConfigSource == "" {
		cfg.Client.ConfigSource = defaults.Client.ConfigSource
	}
	if cfg.Client.StringsSource == "" {
		cfg.Client.StringsSource = defaults.Client.StringsSource
	}
	if cfg.Orchestrator.TimeoutSecs <= 0 {
		cfg.Orchestrator.TimeoutSecs = defaults.Orchestrator.TimeoutSecs
	}
	if cfg.Orchestrator.MaxResponseMB <= 0 {
		cfg.Orchestrator.MaxResponseMB = defaults.Orchestrator.MaxResponseMB
	}
	if cfg.Orchestrator.FeedbackPerSecond <= 0 {
		cfg.Orchestrator.FeedbackPerSecond = defaults.Orchestrator.FeedbackPerSecond
	}
	if cfg.Speech.PlayerCommand == "" {
		cfg.Speech.PlayerCommand = defaults.Speech.PlayerCommand
	}
	if cfg.Speech.AutoPlayDelayMs <= 0 {
		cfg.Speech.AutoPlayDelayMs = defaults.Speech.AutoPlayDelayMs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.DisplayMode == "" {
		cfg.UI.DisplayMode = defaults.UI.DisplayMode
	}
	if cfg.UI.RevealRunesPerTick <= 0 {
		cfg.UI.RevealRunesPerTick = defaults.UI.RevealRunesPerTick
	}
	if cfg.UI.RevealTickMs <= 0 {
		cfg.UI.RevealTickMs = defaults.UI.RevealTickMs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with owner-only permissions.
// SECURITY: The file can carry a speech subscription key.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# vachat configuration file\n")
	sb.WriteString("# Generated by vachat - edit with care\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	switch strings.ToLower(c.UI.DisplayMode) {
	case DisplayInstant, DisplayIncremental:
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.display_mode",
			Message: fmt.Sprintf("invalid display mode '%s', must be one of: instant, incremental", c.UI.DisplayMode),
		})
	}

	if c.Orchestrator.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "orchestrator.timeout_secs",
			Message: fmt.Sprintf("timeout %d exceeds maximum of 3600 seconds", c.Orchestrator.TimeoutSecs),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Incremental reports whether the typing effect is enabled.
func (c *Config) Incremental() bool {
	return strings.EqualFold(c.UI.DisplayMode, DisplayIncremental)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - VACHAT_CLIENT_CONFIG: overrides client.config_source
//   - VACHAT_STRINGS: overrides client.strings_source
//   - VACHAT_LANGUAGE: overrides language
//   - VACHAT_DISPLAY_MODE: overrides ui.display_mode
//   - VACHAT_THEME: overrides ui.theme
//   - VACHAT_LOG_LEVEL: overrides logging.level
//   - VACHAT_LOG_FORMAT: overrides logging.format
//   - VACHAT_SPEECH_KEY / VACHAT_SPEECH_REGION: override speech credentials
//   - VACHAT_DEBUG: overrides orchestrator.debug
//   - VACHAT_TIMEOUT: overrides orchestrator.timeout_secs
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VACHAT_CLIENT_CONFIG"); v != "" {
		c.Client.ConfigSource = v
	}
	if v := os.Getenv("VACHAT_STRINGS"); v != "" {
		c.Client.StringsSource = v
	}
	if v := os.Getenv("VACHAT_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("VACHAT_DISPLAY_MODE"); v != "" {
		c.UI.DisplayMode = v
	}
	if v := os.Getenv("VACHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("VACHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VACHAT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("VACHAT_SPEECH_KEY"); v != "" {
		c.Speech.Key = v
	}
	if v := os.Getenv("VACHAT_SPEECH_REGION"); v != "" {
		c.Speech.Region = v
	}
	if v := os.Getenv("VACHAT_DEBUG"); v != "" {
		c.Orchestrator.Debug = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("VACHAT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Orchestrator.TimeoutSecs = secs
		}
	}
}
