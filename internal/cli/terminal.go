// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

// IsTerminal reports whether stdout is an interactive terminal. Markdown
// rendering and styling are disabled when output is piped.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInputTerminal reports whether stdin is interactive.
func IsInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	mdRenderer     *glamour.TermRenderer
	mdRendererOnce sync.Once
)

// renderMarkdown renders model output as terminal markdown. Falls back to
// the raw text when the renderer cannot be built or fails.
func renderMarkdown(text string) string {
	mdRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			mdRenderer = r
		}
	})

	if mdRenderer == nil {
		return text
	}

	rendered, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

// displayResponse prints a model response, rendered as markdown on a TTY
// and raw otherwise.
func displayResponse(text string, raw bool) {
	if raw || !IsTerminal() {
		fmt.Println(text)
		return
	}
	fmt.Print(renderMarkdown(text))
}
