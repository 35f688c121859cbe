// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestGet_KnownProfiles(t *testing.T) {
	testCases := []struct {
		name    string
		baseURL string
		model   string
	}{
		{"vllm_local", "http://localhost:8000/v1", "nvidia/Llama-3.1-Nemotron-Nano-8B-v1"},
		{"ollama_local", "http://localhost:11434/v1", "nemotron-mini"},
		{"nvidia_cloud", "https://integrate.api.nvidia.com/v1", "nvidia/nvidia-nemotron-nano-9b-v2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Get(tc.name)
			if err != nil {
				t.Fatalf("Get(%q) failed: %v", tc.name, err)
			}
			if b.BaseURL != tc.baseURL {
				t.Errorf("BaseURL = %q, want %q", b.BaseURL, tc.baseURL)
			}
			if b.Model != tc.model {
				t.Errorf("Model = %q, want %q", b.Model, tc.model)
			}
		})
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("llamacpp"); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func TestNames_StableOrder(t *testing.T) {
	want := []string{"nvidia_cloud", "ollama_local", "vllm_local"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestResolve_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://10.0.0.5:8000/v1")
	t.Setenv(EnvAPIKey, "nvapi-test")
	t.Setenv(EnvModel, "custom-model")

	b, err := Resolve("vllm_local")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.BaseURL != "http://10.0.0.5:8000/v1" {
		t.Errorf("BaseURL override not applied: %q", b.BaseURL)
	}
	if b.APIKey != "nvapi-test" {
		t.Errorf("APIKey override not applied: %q", b.APIKey)
	}
	if b.Model != "custom-model" {
		t.Errorf("Model override not applied: %q", b.Model)
	}
}

func TestResolve_EmptyNameUsesDefaults(t *testing.T) {
	os.Unsetenv(EnvBaseURL)
	os.Unsetenv(EnvAPIKey)
	os.Unsetenv(EnvModel)

	b, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", b.BaseURL, DefaultBaseURL)
	}
}

func TestNeedsAPIKey(t *testing.T) {
	cloud, _ := Get("nvidia_cloud")
	if !cloud.NeedsAPIKey() {
		t.Error("nvidia_cloud without key should need an API key")
	}

	local, _ := Get("vllm_local")
	if local.NeedsAPIKey() {
		t.Error("vllm_local should not need an API key")
	}
}

// =============================================================================
// SERVE COMMAND TESTS
// =============================================================================

func TestVLLMServeCommands(t *testing.T) {
	cmds := VLLMServeCommands()
	if len(cmds) != 2 {
		t.Fatalf("Expected 2 serve commands, got %d", len(cmds))
	}

	for i, cmd := range cmds {
		if !strings.Contains(cmd, "nvidia/Llama-3.1-Nemotron-Nano-8B-v1") {
			t.Errorf("Command %d missing model: %q", i, cmd)
		}
		if !strings.Contains(cmd, "--port 8000") {
			t.Errorf("Command %d missing port: %q", i, cmd)
		}
	}

	if strings.Contains(cmds[0], "--gpu-memory-utilization") {
		t.Errorf("First command should not cap GPU memory: %q", cmds[0])
	}
	if !strings.Contains(cmds[1], "--gpu-memory-utilization") {
		t.Errorf("Second command should cap GPU memory: %q", cmds[1])
	}
}

func TestOllamaServeCommand(t *testing.T) {
	if got := OllamaServeCommand(); got != "ollama serve" {
		t.Errorf("OllamaServeCommand = %q", got)
	}
}

// =============================================================================
// INSTALL SCRIPT FETCH TESTS
// =============================================================================

func TestFetchInstallScript_WritesTempFile(t *testing.T) {
	// Point the fetch at a local stand-in for the upstream script.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#!/bin/sh\necho installed\n"))
	}))
	defer server.Close()

	path, err := fetchScriptFrom(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fetched script: %v", err)
	}
	if !strings.Contains(string(content), "echo installed") {
		t.Errorf("Unexpected script content: %q", string(content))
	}
}

func TestFetchInstallScript_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := fetchScriptFrom(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
}
