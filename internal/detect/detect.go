// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect provides GPU hardware detection for backend selection.
//
// Detection shells out to nvidia-smi, the vendor query tool, and parses its
// CSV output. The raw query text is also exposed unmodified because the
// setup flow prints it verbatim to the user.
package detect

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TYPES
// =============================================================================

// GPU describes a single detected NVIDIA device.
type GPU struct {
	// Name is the marketing name reported by the driver (e.g. "NVIDIA GeForce RTX 4090")
	Name string

	// MemoryMiB is the total device memory in MiB
	MemoryMiB uint32
}

// VramGB returns total memory rounded to whole gigabytes.
func (g GPU) VramGB() uint32 {
	return uint32((float64(g.MemoryMiB) + 512) / 1024)
}

func (g GPU) String() string {
	return fmt.Sprintf("%s (%d GB)", g.Name, g.VramGB())
}

// =============================================================================
// NVIDIA-SMI DISCOVERY
// =============================================================================

// queryArgs asks for name and total memory as header-less CSV, one line per
// device. This exact shape is printed verbatim by the setup flow.
var queryArgs = []string{"--query-gpu=name,memory.total", "--format=csv,noheader"}

// NvidiaSmiPath returns the path to nvidia-smi, or an error if the tool is
// not installed. On Windows the tool is often present but not on PATH, so
// the standard driver install locations are probed as a fallback.
func NvidiaSmiPath() (string, error) {
	if path, err := exec.LookPath("nvidia-smi"); err == nil {
		return path, nil
	}

	if runtime.GOOS == "windows" {
		candidates := []string{
			filepath.Join(os.Getenv("ProgramFiles"), "NVIDIA Corporation", "NVSMI", "nvidia-smi.exe"),
			filepath.Join(os.Getenv("SystemRoot"), "System32", "nvidia-smi.exe"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
	}

	return "", fmt.Errorf("nvidia-smi not found in PATH")
}

// HasNvidiaSmi reports whether the NVIDIA management tool is available.
func HasNvidiaSmi() bool {
	_, err := NvidiaSmiPath()
	return err == nil
}

// =============================================================================
// GPU QUERY
// =============================================================================

// RawQuery runs the nvidia-smi device query and returns its stdout
// unmodified. One CSV line per device, no header.
func RawQuery(ctx context.Context) (string, error) {
	path, err := NvidiaSmiPath()
	if err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, path, queryArgs...).Output()
	if err != nil {
		return "", fmt.Errorf("nvidia-smi query failed: %w", err)
	}
	return string(out), nil
}

// QueryGPUs runs the device query and parses one GPU per output line.
// Machines without a working driver return an error, not an empty slice.
func QueryGPUs(ctx context.Context) ([]GPU, error) {
	raw, err := RawQuery(ctx)
	if err != nil {
		return nil, err
	}

	gpus := ParseQueryOutput(raw)
	if len(gpus) == 0 {
		return nil, fmt.Errorf("nvidia-smi returned no devices")
	}
	return gpus, nil
}

// ParseQueryOutput parses "name, memory.total" CSV lines from nvidia-smi.
// Malformed lines are skipped rather than failing the whole query.
func ParseQueryOutput(raw string) []GPU {
	var gpus []GPU
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// nvidia-smi separates fields with ", " and device names never
		// contain commas, so a single split is safe.
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		mem := strings.TrimSpace(parts[1])
		// memory.total renders as "24564 MiB"
		mem = strings.TrimSuffix(mem, "MiB")
		mem = strings.TrimSpace(mem)

		mib, err := strconv.ParseUint(mem, 10, 32)
		if err != nil {
			continue
		}

		gpus = append(gpus, GPU{Name: name, MemoryMiB: uint32(mib)})
	}
	return gpus
}

// MaxVramGB returns the largest VRAM across the detected devices, or 0 when
// the slice is empty.
func MaxVramGB(gpus []GPU) uint32 {
	var max uint32
	for _, g := range gpus {
		if v := g.VramGB(); v > max {
			max = v
		}
	}
	return max
}

// =============================================================================
// OLLAMA CHECKS
// =============================================================================

// CheckOllamaAvailable reports whether the ollama binary is installed.
func CheckOllamaAvailable() bool {
	cmd := exec.Command("ollama", "--version")
	return cmd.Run() == nil
}

// CheckOllamaRunning reports whether an Ollama server answers on its
// default port. Uses the explicit IPv4 address to avoid IPv6 resolution
// issues on Windows.
func CheckOllamaRunning() bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://127.0.0.1:11434")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
