// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
// setup.go implements the guided backend install flow.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/nemoshell/internal/backend"
	"github.com/jeranaias/nemoshell/internal/detect"
)

// =============================================================================
// SETUP COLLABORATORS
// =============================================================================

// minFreeDiskGB is the advisory threshold before a model pull.
const minFreeDiskGB = 5

// setupDeps bundles every external collaborator of the setup flow so tests
// can run it against fakes. All fields are required.
type setupDeps struct {
	in  io.Reader
	out io.Writer

	hasNvidiaSmi func() bool
	rawGPUQuery  func(ctx context.Context) (string, error)

	installVLLM   func(ctx context.Context, stdout, stderr io.Writer)
	fetchScript   func(ctx context.Context) (string, error)
	runScript     func(ctx context.Context, path string, stdout, stderr io.Writer)
	pullModel     func(ctx context.Context, model string, stdout, stderr io.Writer)
	freeDiskSpace func(path string) (uint64, error)
}

func defaultSetupDeps() *setupDeps {
	return &setupDeps{
		in:            os.Stdin,
		out:           os.Stdout,
		hasNvidiaSmi:  detect.HasNvidiaSmi,
		rawGPUQuery:   detect.RawQuery,
		installVLLM:   backend.InstallVLLM,
		fetchScript:   backend.FetchInstallScript,
		runScript:     backend.RunInstallScript,
		pullModel:     backend.PullModel,
		freeDiskSpace: backend.FreeDiskSpace,
	}
}

// =============================================================================
// SETUP COMMAND
// =============================================================================

// HandleSetup runs the guided backend install.
func HandleSetup(args *Args) error {
	return runSetup(context.Background(), defaultSetupDeps())
}

// runSetup is one linear pass: GPU tooling gate, GPU display, a two-option
// menu, and dispatch to one of the two install routines.
//
// Downstream tool failures (pip, the install script, the model pull) are
// deliberately not checked: setup prints the follow-up instructions either
// way and lets the user rerun the failing step by hand.
func runSetup(ctx context.Context, deps *setupDeps) error {
	// Precondition gate: without the GPU management tool nothing below can
	// work. This is the only hard failure path, and it happens before any
	// output or prompt.
	if !deps.hasNvidiaSmi() {
		return &MissingGPUToolingError{}
	}

	// Show the detected devices, verbatim as nvidia-smi reports them.
	if raw, err := deps.rawGPUQuery(ctx); err == nil {
		fmt.Fprint(deps.out, raw)
	}

	fmt.Fprintln(deps.out)
	fmt.Fprintln(deps.out, "Select an inference backend:")
	fmt.Fprintln(deps.out, "  1) vLLM   (fastest, needs ~16GB VRAM)")
	fmt.Fprintln(deps.out, "  2) Ollama (easiest, auto memory management)")
	fmt.Fprint(deps.out, "Choice [1/2]: ")

	choice := readLine(deps.in)

	switch choice {
	case "1":
		installRoutineVLLM(ctx, deps)
	case "2":
		installRoutineOllama(ctx, deps)
	default:
		fmt.Fprintln(deps.out, "Invalid choice")
	}
	return nil
}

// readLine reads a single trimmed line from the reader. EOF yields "".
func readLine(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

// =============================================================================
// ROUTINE A: VLLM
// =============================================================================

// installRoutineVLLM installs the vLLM package and prints (never runs) the
// example serve commands.
func installRoutineVLLM(ctx context.Context, deps *setupDeps) {
	fmt.Fprintln(deps.out)
	fmt.Fprintln(deps.out, "Installing vLLM...")
	deps.installVLLM(ctx, deps.out, deps.out)

	fmt.Fprintln(deps.out)
	fmt.Fprintln(deps.out, "Start the server with:")
	for _, cmd := range backend.VLLMServeCommands() {
		fmt.Fprintf(deps.out, "  %s\n", cmd)
	}
}

// =============================================================================
// ROUTINE B: OLLAMA
// =============================================================================

// installRoutineOllama fetches the install script, executes it as a
// separate auditable step, pulls the default model, and prints the serve
// command.
func installRoutineOllama(ctx context.Context, deps *setupDeps) {
	fmt.Fprintln(deps.out)
	fmt.Fprintln(deps.out, "Installing Ollama...")

	// The script is downloaded to disk first and then executed explicitly.
	// Piping the fetch into a shell would leave no record of what ran.
	if script, err := deps.fetchScript(ctx); err == nil {
		deps.runScript(ctx, script, deps.out, deps.out)
		os.Remove(script)
	}

	// Multi-gigabyte download ahead: warn when disk space looks tight.
	if home, err := os.UserHomeDir(); err == nil {
		if free, err := deps.freeDiskSpace(home); err == nil && free < minFreeDiskGB*1024*1024*1024 {
			fmt.Fprintf(deps.out, "Warning: less than %d GB free on disk; the model download may fail.\n", minFreeDiskGB)
		}
	}

	fmt.Fprintf(deps.out, "Pulling %s...\n", backend.OllamaModel())
	deps.pullModel(ctx, backend.OllamaModel(), deps.out, deps.out)

	fmt.Fprintln(deps.out)
	fmt.Fprintln(deps.out, "Start the server with:")
	fmt.Fprintf(deps.out, "  %s\n", backend.OllamaServeCommand())
}
