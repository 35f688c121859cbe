// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/nemoshell/internal/backend"
	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/llm"
)

// newClientFor builds an LLM client from config plus command-line overrides.
// Flag overrides beat config, which beats profile defaults.
func newClientFor(cfg *config.Config, args *Args) (*llm.Client, error) {
	var (
		b   backend.Backend
		err error
	)
	if args.Backend != "" {
		b, err = backend.Resolve(args.Backend)
	} else {
		b, err = cfg.ResolveBackend()
	}
	if err != nil {
		return nil, err
	}

	// Warn up front rather than letting the first request 401.
	if warning := missingKeyWarning(b); warning != "" {
		fmt.Fprintln(os.Stderr, warningStyle.Render(warning))
	}

	cc := llm.ConfigForBackend(b)
	cc.Temperature = cfg.Sampling.Temperature
	cc.TopP = cfg.Sampling.TopP
	cc.MaxTokens = cfg.Sampling.MaxTokens
	if args.Model != "" {
		cc.DefaultModel = args.Model
	}

	return llm.NewClient(cc), nil
}

// missingKeyWarning returns the advisory for a hosted backend with no key,
// or "" when the backend is usable as configured.
func missingKeyWarning(b backend.Backend) string {
	if !b.NeedsAPIKey() {
		return ""
	}
	return fmt.Sprintf("Warning: no API key set for %s. Set %s (get a free key at https://build.nvidia.com).",
		b.Name, backend.EnvAPIKey)
}
