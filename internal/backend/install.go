// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines the inference backend profiles nemoshell can talk
// to and the install routines that set them up.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// =============================================================================
// VLLM INSTALL (routine A)
// =============================================================================

// VLLMPort is the port the printed vLLM serve commands bind to.
const VLLMPort = 8000

// ollamaInstallScriptURL is the upstream installer for Ollama.
const ollamaInstallScriptURL = "https://ollama.com/install.sh"

// InstallVLLM installs the vLLM serving package with pip. Output is piped
// through so the user sees pip's own progress. The exit status is
// deliberately not surfaced: setup reports nothing on downstream tool
// failure and lets the printed instructions stand.
func InstallVLLM(ctx context.Context, stdout, stderr io.Writer) {
	cmd := exec.CommandContext(ctx, "pip", "install", "vllm")
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	_ = cmd.Run()
}

// VLLMServeCommands returns the example server-start invocations printed
// (never executed) after the vLLM install. Both reference the fixed model
// and port; the second caps GPU memory for cards shared with a desktop.
func VLLMServeCommands() []string {
	model := registry["vllm_local"].Model
	return []string{
		fmt.Sprintf("vllm serve %s --port %d", model, VLLMPort),
		fmt.Sprintf("vllm serve %s --port %d --gpu-memory-utilization 0.95", model, VLLMPort),
	}
}

// =============================================================================
// OLLAMA INSTALL (routine B)
// =============================================================================

// FetchInstallScript downloads the Ollama install script to a temp file and
// returns its path. The script is fetched and executed as two separate,
// auditable steps; piping the fetch straight into a shell hides what runs.
func FetchInstallScript(ctx context.Context) (string, error) {
	return fetchScriptFrom(ctx, ollamaInstallScriptURL)
}

func fetchScriptFrom(ctx context.Context, url string) (string, error) {
	client := &http.Client{Timeout: 60 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch install script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("install script fetch returned %s", resp.Status)
	}

	f, err := os.CreateTemp("", "ollama-install-*.sh")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write install script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close install script: %w", err)
	}

	return f.Name(), nil
}

// RunInstallScript executes a previously fetched install script with sh.
// As with pip, the exit status is not surfaced.
func RunInstallScript(ctx context.Context, path string, stdout, stderr io.Writer) {
	cmd := exec.CommandContext(ctx, "sh", path)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	_ = cmd.Run()
}

// PullModel downloads a model's weights into Ollama's local cache.
func PullModel(ctx context.Context, model string, stdout, stderr io.Writer) {
	cmd := exec.CommandContext(ctx, "ollama", "pull", model)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	_ = cmd.Run()
}

// OllamaModel is the model pulled by the guided Ollama install.
func OllamaModel() string {
	return registry["ollama_local"].Model
}

// OllamaServeCommand returns the single server-start command printed after
// the Ollama install.
func OllamaServeCommand() string {
	return "ollama serve"
}
