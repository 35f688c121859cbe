// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the agentic tool system for nemoshell.
// bash.go implements shell command execution with an allowlist policy.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/nemoshell/internal/util"
)

// =============================================================================
// ALLOWLIST
// =============================================================================

// AllowedCommands are simple, mostly read-only commands the model may run
// without an interactive confirmation when auto-execute is enabled.
var AllowedCommands = []string{
	"ls", "cd", "pwd", "find", "tree",
	"cat", "head", "tail", "wc",
	"grep", "awk", "sed", "sort", "uniq", "cut", "tr",
	"touch", "mkdir", "cp", "echo",
	"df", "du", "free", "uname", "whoami", "date", "hostname",
	"ps", "ping", "curl", "wget", "ip",
	"tar", "zip", "unzip", "gzip", "gunzip",
	"which", "whereis", "file", "stat", "basename", "dirname",
}

// =============================================================================
// COMMAND SEGMENTATION
// =============================================================================

// segmentSplitRegex breaks a compound command at every operator that can
// start a new command: pipes, separators, chaining, and command
// substitution. Each resulting segment is validated independently.
var segmentSplitRegex = regexp.MustCompile(`\|\||&&|[|;&]|\$\(`)

// redirectionRegex strips redirections so "ls > out.txt" validates as "ls".
var redirectionRegex = regexp.MustCompile(`\d?>>?\s*\S+|<\s*\S+`)

// normalizeCommand normalizes unicode to NFKC form so lookalike characters
// cannot smuggle a non-allowlisted command past validation.
func normalizeCommand(cmd string) string {
	return norm.NFKC.String(cmd)
}

// ExtractCommands returns the base command of every segment in a compound
// command line, with redirections removed. "cat a.txt | grep x > out" yields
// ["cat", "grep"].
func ExtractCommands(command string) []string {
	command = normalizeCommand(command)

	var bases []string
	for _, segment := range segmentSplitRegex.Split(command, -1) {
		segment = redirectionRegex.ReplaceAllString(segment, " ")
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		bases = append(bases, strings.ToLower(filepath.Base(fields[0])))
	}
	return bases
}

// IsAllowlisted reports whether every segment of the command starts with an
// allowlisted base command. Backticks fail outright: they execute in any
// context, including inside quotes, and the splitter cannot see into them.
func IsAllowlisted(command string) bool {
	if strings.Contains(command, "`") {
		return false
	}

	bases := ExtractCommands(command)
	if len(bases) == 0 {
		return false
	}

	for _, base := range bases {
		allowed := false
		for _, a := range AllowedCommands {
			if base == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// =============================================================================
// SESSION
// =============================================================================

// endMarker separates command output from the trailing pwd used to track
// directory changes across calls.
const endMarker = "__END__"

// ConfirmFunc asks the user to approve a command. Returns true to run it.
type ConfirmFunc func(command string) bool

// BashSession executes shell commands for the agentic loop, carrying the
// working directory from one call to the next so "cd" behaves the way the
// model expects.
type BashSession struct {
	// WorkDir is the current working directory, updated after every run
	WorkDir string

	// Timeout bounds a single command (default: 60s)
	Timeout time.Duration

	// MaxOutputRunes caps output fed back to the model (default: 4000)
	MaxOutputRunes int

	// AutoExecute runs allowlisted commands without confirmation
	AutoExecute bool

	// Confirm is consulted for anything not auto-executed. A nil Confirm
	// declines everything that is not auto-executed.
	Confirm ConfirmFunc
}

// NewBashSession creates a session rooted at the given directory.
func NewBashSession(workDir string) *BashSession {
	return &BashSession{
		WorkDir:        workDir,
		Timeout:        60 * time.Second,
		MaxOutputRunes: 4000,
	}
}

// Execute validates, confirms and runs one command, returning its output.
// Refusals are results, not errors: they flow back to the model as tool
// output so the conversation can continue.
func (s *BashSession) Execute(ctx context.Context, command string) Result {
	start := time.Now()

	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Success: false, Error: "command is required", Duration: time.Since(start)}
	}

	if !s.approved(command) {
		return Result{
			Success:  false,
			Output:   DeclinedOutput,
			Error:    "user declined execution",
			Duration: time.Since(start),
		}
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Append a marker and pwd so directory changes made by the command
	// survive into the next call.
	wrapped := fmt.Sprintf("%s;echo %s;pwd", command, endMarker)
	cmd := exec.CommandContext(cmdCtx, "bash", "-c", wrapped)
	cmd.Dir = s.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("command timed out after %s", timeout),
			Duration: duration,
		}
	}

	output, newDir := splitMarker(stdout.String())
	if newDir != "" {
		s.WorkDir = newDir
	}

	combined := output
	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += errText
	}

	maxRunes := s.MaxOutputRunes
	if maxRunes == 0 {
		maxRunes = 4000
	}
	truncated := util.RuneLen(combined) > maxRunes
	combined = util.TruncateRunesNoEllipsis(combined, maxRunes)

	if runErr != nil {
		errorMsg := "command failed"
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			errorMsg = fmt.Sprintf("command exited with code %d", exitErr.ExitCode())
		}
		return Result{
			Success:   false,
			Error:     errorMsg,
			Output:    combined,
			Duration:  duration,
			Truncated: truncated,
		}
	}

	if combined == "" {
		combined = EmptyOutputPlaceholder
	}

	return Result{
		Success:   true,
		Output:    combined,
		Duration:  duration,
		Truncated: truncated,
	}
}

// approved decides whether the command may run: allowlisted commands pass
// under auto-execute, everything else goes through the confirmation prompt.
func (s *BashSession) approved(command string) bool {
	if s.AutoExecute && IsAllowlisted(command) {
		return true
	}
	if s.Confirm == nil {
		return false
	}
	return s.Confirm(command)
}

// splitMarker separates command output from the trailing pwd line.
func splitMarker(raw string) (output, dir string) {
	idx := strings.LastIndex(raw, endMarker)
	if idx < 0 {
		return strings.TrimRight(raw, "\n"), ""
	}

	output = strings.TrimRight(raw[:idx], "\n")
	dir = strings.TrimSpace(raw[idx+len(endMarker):])
	return output, dir
}
