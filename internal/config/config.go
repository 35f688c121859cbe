// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages nemoshell configuration.
//
// Configuration lives in ~/.nemoshell/config.toml. Loading never fails hard:
// a missing file yields defaults, and environment variables override
// whatever was loaded so scripted use works without a config file at all.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/nemoshell/internal/backend"
	"github.com/jeranaias/nemoshell/internal/util"
)

// =============================================================================
// TYPES
// =============================================================================

// Config is the root configuration structure.
type Config struct {
	// Backend selects the active inference profile
	Backend BackendConfig `toml:"backend"`

	// Sampling holds model sampling parameters
	Sampling SamplingConfig `toml:"sampling"`

	// Chat holds interactive session settings
	Chat ChatConfig `toml:"chat"`

	// Tools holds agentic tool settings
	Tools ToolsConfig `toml:"tools"`
}

// BackendConfig selects and optionally overrides an inference profile.
type BackendConfig struct {
	// Profile names a built-in backend (vllm_local, ollama_local,
	// nvidia_cloud). Empty means the default local server.
	Profile string `toml:"profile"`

	// BaseURL overrides the profile's endpoint when set
	BaseURL string `toml:"base_url"`

	// Model overrides the profile's model when set
	Model string `toml:"model"`

	// APIKey overrides the profile's key when set
	APIKey string `toml:"api_key"`
}

// SamplingConfig holds model sampling parameters.
type SamplingConfig struct {
	Temperature float64 `toml:"temperature"`
	TopP        float64 `toml:"top_p"`
	MaxTokens   int     `toml:"max_tokens"`
}

// ChatConfig holds interactive session settings.
type ChatConfig struct {
	// HistoryDays is how long conversation history is kept
	HistoryDays int `toml:"history_days"`

	// Markdown enables glamour rendering of responses on a TTY
	Markdown bool `toml:"markdown"`
}

// ToolsConfig holds agentic tool settings.
type ToolsConfig struct {
	// MaxIterations bounds the agentic tool loop
	MaxIterations int `toml:"max_iterations"`

	// AutoExecute allows allowlisted read-only commands to run without a
	// confirmation prompt
	AutoExecute bool `toml:"auto_execute"`
}

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Profile: "vllm_local",
		},
		Sampling: SamplingConfig{
			Temperature: backend.DefaultTemperature,
			TopP:        backend.DefaultTopP,
			MaxTokens:   backend.DefaultMaxTokens,
		},
		Chat: ChatConfig{
			HistoryDays: 30,
			Markdown:    true,
		},
		Tools: ToolsConfig{
			MaxIterations: 10,
			AutoExecute:   false,
		},
	}
}

// ConfigDir returns the nemoshell config directory (~/.nemoshell).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nemoshell"), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when it does not
// exist. A malformed file is an error; silently ignoring it would mask typos.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Decoding into a defaults-initialized struct keeps defaults for keys
	// the file omits while preserving explicit zero values (temperature 0,
	// history_days 0) exactly as written.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config atomically with owner-only permissions. The file
// can hold an API key, hence 0600.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	buf.WriteString("# nemoshell configuration\n")
	buf.WriteString("# Generated by nemoshell; edit freely.\n\n")

	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Backend.Profile != "" {
		if _, err := backend.Get(c.Backend.Profile); err != nil {
			return &ValidationError{Field: "backend.profile", Message: err.Error()}
		}
	}
	if c.Sampling.Temperature < 0 || c.Sampling.Temperature > 2 {
		return &ValidationError{Field: "sampling.temperature", Message: "must be between 0 and 2"}
	}
	if c.Sampling.TopP < 0 || c.Sampling.TopP > 1 {
		return &ValidationError{Field: "sampling.top_p", Message: "must be between 0 and 1"}
	}
	if c.Sampling.MaxTokens < 1 {
		return &ValidationError{Field: "sampling.max_tokens", Message: "must be positive"}
	}
	if c.Tools.MaxIterations < 1 {
		return &ValidationError{Field: "tools.max_iterations", Message: "must be positive"}
	}
	return nil
}

// =============================================================================
// BACKEND RESOLUTION
// =============================================================================

// ResolveBackend produces the effective backend for this config: profile,
// then config-level overrides, then environment overrides (applied inside
// backend.Resolve, so env always wins).
func (c *Config) ResolveBackend() (backend.Backend, error) {
	b, err := backend.Resolve(c.Backend.Profile)
	if err != nil {
		return backend.Backend{}, err
	}

	if c.Backend.BaseURL != "" && os.Getenv(backend.EnvBaseURL) == "" {
		b.BaseURL = c.Backend.BaseURL
	}
	if c.Backend.Model != "" && os.Getenv(backend.EnvModel) == "" {
		b.Model = c.Backend.Model
	}
	if c.Backend.APIKey != "" && os.Getenv(backend.EnvAPIKey) == "" {
		b.APIKey = c.Backend.APIKey
	}
	return b, nil
}

// =============================================================================
// KEY ACCESS (config command)
// =============================================================================

// GetKey returns a dotted config key as a display string.
func (c *Config) GetKey(key string) (string, error) {
	switch key {
	case "backend.profile":
		return c.Backend.Profile, nil
	case "backend.base_url":
		return c.Backend.BaseURL, nil
	case "backend.model":
		return c.Backend.Model, nil
	case "sampling.temperature":
		return strconv.FormatFloat(c.Sampling.Temperature, 'f', -1, 64), nil
	case "sampling.top_p":
		return strconv.FormatFloat(c.Sampling.TopP, 'f', -1, 64), nil
	case "sampling.max_tokens":
		return strconv.Itoa(c.Sampling.MaxTokens), nil
	case "chat.history_days":
		return strconv.Itoa(c.Chat.HistoryDays), nil
	case "chat.markdown":
		return strconv.FormatBool(c.Chat.Markdown), nil
	case "tools.max_iterations":
		return strconv.Itoa(c.Tools.MaxIterations), nil
	case "tools.auto_execute":
		return strconv.FormatBool(c.Tools.AutoExecute), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// SetKey assigns a dotted config key from a string value and validates the
// result.
func (c *Config) SetKey(key, value string) error {
	switch key {
	case "backend.profile":
		c.Backend.Profile = value
	case "backend.base_url":
		c.Backend.BaseURL = value
	case "backend.model":
		c.Backend.Model = value
	case "backend.api_key":
		c.Backend.APIKey = value
	case "sampling.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ValidationError{Field: key, Message: "not a number"}
		}
		c.Sampling.Temperature = f
	case "sampling.top_p":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ValidationError{Field: key, Message: "not a number"}
		}
		c.Sampling.TopP = f
	case "sampling.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{Field: key, Message: "not an integer"}
		}
		c.Sampling.MaxTokens = n
	case "chat.history_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{Field: key, Message: "not an integer"}
		}
		c.Chat.HistoryDays = n
	case "chat.markdown":
		c.Chat.Markdown = strings.EqualFold(value, "true")
	case "tools.max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{Field: key, Message: "not an integer"}
		}
		c.Tools.MaxIterations = n
	case "tools.auto_execute":
		c.Tools.AutoExecute = strings.EqualFold(value, "true")
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return c.Validate()
}
