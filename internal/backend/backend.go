// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines the inference backend profiles nemoshell can talk
// to and the install routines that set them up.
//
// A backend is any OpenAI-compatible server that loads a Nemotron model and
// serves chat completions on a local or remote port. Three profiles are
// built in: a local vLLM server, a local Ollama server, and the hosted
// NVIDIA API endpoint.
package backend

import (
	"fmt"
	"os"
	"sort"
)

// =============================================================================
// PROFILES
// =============================================================================

// Backend describes one inference endpoint profile.
type Backend struct {
	// Name is the registry key (e.g. "vllm_local")
	Name string

	// BaseURL is the OpenAI-compatible API root, including the /v1 suffix
	BaseURL string

	// Model is the identifier passed in chat requests
	Model string

	// APIKey is the bearer token. Local servers ignore it but the OpenAI
	// wire format requires one to be present.
	APIKey string
}

// DefaultBaseURL is used when neither config nor environment selects a
// backend.
const DefaultBaseURL = "http://localhost:8000/v1"

// Sampling defaults shared by every backend profile.
const (
	DefaultTemperature = 0.6
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 4096
)

// Environment variables that override the active profile field by field.
const (
	EnvBaseURL = "LLM_BASE_URL"
	EnvAPIKey  = "LLM_API_KEY"
	EnvModel   = "LLM_MODEL"
)

// registry holds the built-in backend profiles.
var registry = map[string]Backend{
	"vllm_local": {
		Name:    "vllm_local",
		BaseURL: "http://localhost:8000/v1",
		Model:   "nvidia/Llama-3.1-Nemotron-Nano-8B-v1",
		APIKey:  "not-needed",
	},
	"ollama_local": {
		Name:    "ollama_local",
		BaseURL: "http://localhost:11434/v1",
		Model:   "nemotron-mini",
		APIKey:  "ollama",
	},
	"nvidia_cloud": {
		Name:    "nvidia_cloud",
		BaseURL: "https://integrate.api.nvidia.com/v1",
		Model:   "nvidia/nvidia-nemotron-nano-9b-v2",
		// Key comes from the environment; there is no meaningful default.
	},
}

// Get returns the named profile.
func Get(name string) (Backend, error) {
	b, ok := registry[name]
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend %q (available: %v)", name, Names())
	}
	return b, nil
}

// Names returns the registry keys in stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve produces the effective backend: start from the named profile
// (or a bare default when name is empty), then apply LLM_BASE_URL,
// LLM_API_KEY and LLM_MODEL overrides from the environment.
func Resolve(name string) (Backend, error) {
	var b Backend
	if name == "" {
		b = Backend{Name: "custom", BaseURL: DefaultBaseURL, APIKey: "not-needed"}
		b.Model = registry["vllm_local"].Model
	} else {
		var err error
		b, err = Get(name)
		if err != nil {
			return Backend{}, err
		}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		b.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		b.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		b.Model = v
	}

	return b, nil
}

// NeedsAPIKey reports whether the profile requires a real key. Only the
// hosted NVIDIA endpoint does; a missing key there is a setup problem worth
// telling the user about (keys are free at https://build.nvidia.com).
func (b Backend) NeedsAPIKey() bool {
	return b.Name == "nvidia_cloud" && b.APIKey == ""
}
