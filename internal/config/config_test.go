// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Backend.Profile != "vllm_local" {
		t.Errorf("Profile = %q, want vllm_local", cfg.Backend.Profile)
	}
	if cfg.Sampling.Temperature != 0.6 {
		t.Errorf("Temperature = %v, want 0.6", cfg.Sampling.Temperature)
	}
	if cfg.Sampling.TopP != 0.95 {
		t.Errorf("TopP = %v, want 0.95", cfg.Sampling.TopP)
	}
	if cfg.Sampling.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %v, want 4096", cfg.Sampling.MaxTokens)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.Profile = "ollama_local"
	cfg.Sampling.Temperature = 0.9
	cfg.Tools.AutoExecute = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Backend.Profile != "ollama_local" {
		t.Errorf("Profile = %q", loaded.Backend.Profile)
	}
	if loaded.Sampling.Temperature != 0.9 {
		t.Errorf("Temperature = %v", loaded.Sampling.Temperature)
	}
	if !loaded.Tools.AutoExecute {
		t.Error("AutoExecute not preserved")
	}
}

func TestSaveTo_OwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Default().SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions = %o, want 0600", perm)
	}
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("Expected error for malformed config")
	}
}

func TestLoadFrom_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[backend]\nprofile = \"nvidia_cloud\"\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Backend.Profile != "nvidia_cloud" {
		t.Errorf("Profile = %q", cfg.Backend.Profile)
	}
	if cfg.Sampling.MaxTokens != 4096 {
		t.Errorf("MaxTokens not defaulted: %d", cfg.Sampling.MaxTokens)
	}
	if cfg.Tools.MaxIterations != 10 {
		t.Errorf("MaxIterations not defaulted: %d", cfg.Tools.MaxIterations)
	}
}

func TestLoadFrom_ExplicitZeroValuesSurvive(t *testing.T) {
	// history_days = 0 disables pruning and temperature 0 means greedy
	// decoding; both are deliberate settings, not gaps to repair.
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[sampling]\ntemperature = 0.0\n\n[chat]\nhistory_days = 0\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Chat.HistoryDays != 0 {
		t.Errorf("HistoryDays = %d after load, want 0", cfg.Chat.HistoryDays)
	}
	if cfg.Sampling.Temperature != 0 {
		t.Errorf("Temperature = %v after load, want 0", cfg.Sampling.Temperature)
	}
	// Keys the file omits still come from defaults.
	if cfg.Sampling.TopP != 0.95 {
		t.Errorf("TopP = %v, want 0.95", cfg.Sampling.TopP)
	}
}

func TestSaveAndLoad_HistoryDaysZeroRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	if err := cfg.SetKey("chat.history_days", "0"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Chat.HistoryDays != 0 {
		t.Errorf("HistoryDays = %d after round-trip, want 0", loaded.Chat.HistoryDays)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_Ranges(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad profile", func(c *Config) { c.Backend.Profile = "bogus" }},
		{"temperature too high", func(c *Config) { c.Sampling.Temperature = 3 }},
		{"negative temperature", func(c *Config) { c.Sampling.Temperature = -1 }},
		{"top_p too high", func(c *Config) { c.Sampling.TopP = 1.5 }},
		{"zero max_tokens", func(c *Config) { c.Sampling.MaxTokens = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// =============================================================================
// KEY ACCESS TESTS
// =============================================================================

func TestGetSetKey(t *testing.T) {
	cfg := Default()

	if err := cfg.SetKey("backend.profile", "ollama_local"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	got, err := cfg.GetKey("backend.profile")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if got != "ollama_local" {
		t.Errorf("GetKey = %q", got)
	}

	if err := cfg.SetKey("sampling.temperature", "0.3"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	if cfg.Sampling.Temperature != 0.3 {
		t.Errorf("Temperature = %v", cfg.Sampling.Temperature)
	}

	if err := cfg.SetKey("sampling.temperature", "abc"); err == nil {
		t.Error("Expected error for non-numeric temperature")
	}
	if err := cfg.SetKey("no.such.key", "x"); err == nil {
		t.Error("Expected error for unknown key")
	}
	if _, err := cfg.GetKey("no.such.key"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

// =============================================================================
// BACKEND RESOLUTION TESTS
// =============================================================================

func TestResolveBackend_ConfigOverride(t *testing.T) {
	os.Unsetenv("LLM_BASE_URL")
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("LLM_MODEL")

	cfg := Default()
	cfg.Backend.Profile = "vllm_local"
	cfg.Backend.BaseURL = "http://gpubox:8000/v1"

	b, err := cfg.ResolveBackend()
	if err != nil {
		t.Fatalf("ResolveBackend failed: %v", err)
	}
	if b.BaseURL != "http://gpubox:8000/v1" {
		t.Errorf("BaseURL = %q", b.BaseURL)
	}
	if b.Model != "nvidia/Llama-3.1-Nemotron-Nano-8B-v1" {
		t.Errorf("Model = %q", b.Model)
	}
}

func TestResolveBackend_EnvBeatsConfig(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "http://env-wins:9000/v1")

	cfg := Default()
	cfg.Backend.BaseURL = "http://config:8000/v1"

	b, err := cfg.ResolveBackend()
	if err != nil {
		t.Fatalf("ResolveBackend failed: %v", err)
	}
	if b.BaseURL != "http://env-wins:9000/v1" {
		t.Errorf("BaseURL = %q, env should win", b.BaseURL)
	}
}
