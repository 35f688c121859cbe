// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// STYLES
// =============================================================================

// Shared lipgloss styles. Lipgloss degrades colors through termenv, so these
// render sensibly on dumb terminals too.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")). // Bright blue
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")). // Bright green
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")). // Bright red
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))
)

// colorEnabled reports whether the terminal supports color output at all.
func colorEnabled() bool {
	return termenv.DefaultOutput().Profile != termenv.Ascii
}
