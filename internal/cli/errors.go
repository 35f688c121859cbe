// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
package cli

import (
	"errors"

	"github.com/jeranaias/nemoshell/internal/llm"
)

// =============================================================================
// EXIT CODES
// =============================================================================

// Exit codes for the nemoshell binary.
const (
	ExitOK            = 0
	ExitError         = 1 // generic failure, including missing GPU tooling
	ExitUsage         = 2
	ExitNotReachable  = 3 // inference server unreachable
	ExitUnauthorized  = 4 // API key rejected
)

// MissingGPUToolingError is the setup precondition failure: nvidia-smi is
// not installed. It always maps to exit status 1.
type MissingGPUToolingError struct {
	Cause error
}

func (e *MissingGPUToolingError) Error() string {
	return "nvidia-smi not found. Install the NVIDIA driver first."
}

func (e *MissingGPUToolingError) Unwrap() error {
	return e.Cause
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var missing *MissingGPUToolingError
	if errors.As(err, &missing) {
		return ExitError
	}

	if llm.IsNotRunning(err) || llm.IsTimeout(err) {
		return ExitNotReachable
	}

	var clientErr *llm.ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case llm.ErrTypeConnection:
			return ExitNotReachable
		case llm.ErrTypeUnauthorized:
			return ExitUnauthorized
		}
	}

	return ExitError
}
