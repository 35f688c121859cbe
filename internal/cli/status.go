// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend and GPU status report.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/detect"
)

// HandleStatus reports GPU hardware, the resolved backend, and whether the
// inference endpoint is reachable.
func HandleStatus(args *Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := newClientFor(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reachErr := client.CheckReachable(ctx)

	gpus, gpuErr := detect.QueryGPUs(ctx)
	ollamaInstalled := detect.CheckOllamaAvailable()
	ollamaRunning := detect.CheckOllamaRunning()

	if args.JSON {
		payload := map[string]any{
			"backend": map[string]any{
				"profile":   cfg.Backend.Profile,
				"base_url":  client.GetConfig().BaseURL,
				"model":     client.DefaultModel(),
				"reachable": reachErr == nil,
			},
			"ollama": map[string]bool{
				"installed": ollamaInstalled,
				"running":   ollamaRunning,
			},
		}
		if gpuErr == nil {
			devices := make([]map[string]any, 0, len(gpus))
			for _, g := range gpus {
				devices = append(devices, map[string]any{
					"name":       g.Name,
					"memory_mib": g.MemoryMiB,
				})
			}
			payload["gpus"] = devices
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Println(headerStyle.Render("nemoshell status"))
	fmt.Println()

	// Backend
	fmt.Printf("%s %s\n", infoStyle.Render("Backend:"), commandStyle.Render(cfg.Backend.Profile))
	fmt.Printf("%s %s\n", infoStyle.Render("Endpoint:"), client.GetConfig().BaseURL)
	fmt.Printf("%s %s\n", infoStyle.Render("Model:"), client.DefaultModel())
	if reachErr == nil {
		fmt.Printf("%s %s\n", infoStyle.Render("Reachable:"), okStyle.Render("yes"))
	} else {
		fmt.Printf("%s %s\n", infoStyle.Render("Reachable:"), errorStyle.Render("no"))
		if args.Verbose {
			fmt.Printf("  %s\n", infoStyle.Render(reachErr.Error()))
		}
	}
	fmt.Println()

	// Hardware
	if gpuErr != nil {
		fmt.Println(warningStyle.Render("No NVIDIA GPU detected (nvidia-smi unavailable)"))
	} else {
		for _, g := range gpus {
			fmt.Printf("%s %s (%d GB)\n", infoStyle.Render("GPU:"), g.Name, g.VramGB())
		}
	}

	// Ollama
	switch {
	case ollamaRunning:
		fmt.Printf("%s %s\n", infoStyle.Render("Ollama:"), okStyle.Render("running"))
	case ollamaInstalled:
		fmt.Printf("%s installed, not running (start with: ollama serve)\n", infoStyle.Render("Ollama:"))
	default:
		fmt.Printf("%s %s\n", infoStyle.Render("Ollama:"), infoStyle.Render("not installed"))
	}

	return nil
}
