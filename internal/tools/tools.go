// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the agentic tool system for nemoshell.
package tools

import (
	"time"

	"github.com/jeranaias/nemoshell/internal/llm"
)

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a tool execution.
type Result struct {
	// Success indicates the tool ran without error
	Success bool

	// Output is the tool's stdout/stderr text, fed back to the model
	Output string

	// Error describes why the tool failed or was refused
	Error string

	// Duration is how long the execution took
	Duration time.Duration

	// Truncated indicates the output was cut at the size limit
	Truncated bool
}

// DeclinedOutput is returned to the model when the user refuses a command.
// The JSON shape matters: the model treats it as a structured tool error
// rather than command output.
const DeclinedOutput = `{"error": "The user declined the execution of this command."}`

// EmptyOutputPlaceholder stands in for commands that succeed silently, so
// the model does not mistake an empty result for a failure.
const EmptyOutputPlaceholder = "Command executed successfully, without any output"

// =============================================================================
// DEFINITIONS
// =============================================================================

// BashToolName is the function name advertised to the model.
const BashToolName = "run_bash_command"

// Definitions returns the tool schemas advertised in chat requests.
func Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.ToolSchema{
				Name:        BashToolName,
				Description: "Run a bash command on the user's machine and return its output. The working directory persists between calls.",
				Parameters: llm.ToolParameters{
					Type: "object",
					Properties: map[string]llm.ToolProperty{
						"command": {
							Type:        "string",
							Description: "The bash command to execute",
						},
					},
					Required: []string{"command"},
				},
			},
		},
	}
}
