// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/nemoshell/internal/backend"
	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/llm"
)

func TestParseDefaultsToChat(t *testing.T) {
	args, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if args.Command != CmdChat {
		t.Errorf("default command = %v, want CmdChat", args.Command)
	}
	if args.MaxIter != 0 {
		t.Errorf("default MaxIter = %d, want 0 (config decides)", args.MaxIter)
	}
}

func TestMaxIterFlagBeatsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.MaxIterations = 25

	args, err := Parse([]string{"ask", "q"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := effectiveMaxIter(args, cfg); got != 25 {
		t.Errorf("without --max-iter: bound = %d, want config value 25", got)
	}

	args, err = Parse([]string{"ask", "q", "--max-iter", "3"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := effectiveMaxIter(args, cfg); got != 3 {
		t.Errorf("with --max-iter 3: bound = %d, want 3", got)
	}
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"setup"}, CmdSetup},
		{[]string{"chat"}, CmdChat},
		{[]string{"ask", "hello"}, CmdAsk},
		{[]string{"status"}, CmdStatus},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"-h"}, CmdHelp},
	}

	for _, tt := range tests {
		args, err := Parse(tt.argv)
		if err != nil {
			t.Errorf("Parse(%v) error: %v", tt.argv, err)
			continue
		}
		if args.Command != tt.want {
			t.Errorf("Parse(%v) command = %v, want %v", tt.argv, args.Command, tt.want)
		}
	}
}

func TestParseAskQueryAndFlags(t *testing.T) {
	args, err := Parse([]string{"ask", "how", "much", "disk", "--agentic", "--max-iter", "3", "--model", "foo"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if args.Query != "how much disk" {
		t.Errorf("Query = %q", args.Query)
	}
	if !args.Agentic {
		t.Error("Agentic not set")
	}
	if args.MaxIter != 3 {
		t.Errorf("MaxIter = %d, want 3", args.MaxIter)
	}
	if args.Model != "foo" {
		t.Errorf("Model = %q, want foo", args.Model)
	}
}

func TestParseAskRequiresQuery(t *testing.T) {
	if _, err := Parse([]string{"ask"}); err == nil {
		t.Error("expected error for ask without a question")
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, argv := range [][]string{
		{"frobnicate"},
		{"ask", "q", "--bogus"},
		{"ask", "q", "--max-iter", "zero"},
		{"ask", "q", "--max-iter", "0"},
		{"config"},
		{"config", "get"},
		{"config", "set", "key"},
		{"history", "show"},
		{"history", "bogus"},
	} {
		if _, err := Parse(argv); err == nil {
			t.Errorf("Parse(%v) expected error", argv)
		}
	}
}

func TestParseConfigSubcommands(t *testing.T) {
	args, err := Parse([]string{"config", "set", "backend.profile", "ollama_local"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if args.Subcommand != "set" || args.ConfigKey != "backend.profile" || args.ConfigVal != "ollama_local" {
		t.Errorf("config set parsed as %+v", args)
	}

	args, err = Parse([]string{"config", "get", "chat.markdown"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if args.Subcommand != "get" || args.ConfigKey != "chat.markdown" {
		t.Errorf("config get parsed as %+v", args)
	}
}

func TestParseHistorySubcommands(t *testing.T) {
	args, err := Parse([]string{"history"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if args.Subcommand != "list" {
		t.Errorf("bare history Subcommand = %q, want list", args.Subcommand)
	}

	args, err = Parse([]string{"history", "delete", "abc123"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if args.Subcommand != "delete" || args.SessionID != "abc123" {
		t.Errorf("history delete parsed as %+v", args)
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"missing gpu tooling", &MissingGPUToolingError{}, ExitError},
		{"server not running", &llm.ClientError{Type: llm.ErrTypeNotRunning}, ExitNotReachable},
		{"timeout", &llm.ClientError{Type: llm.ErrTypeTimeout}, ExitNotReachable},
		{"connection", &llm.ClientError{Type: llm.ErrTypeConnection}, ExitNotReachable},
		{"unauthorized", &llm.ClientError{Type: llm.ErrTypeUnauthorized}, ExitUnauthorized},
		{"wrapped timeout", fmt.Errorf("request: %w", &llm.ClientError{Type: llm.ErrTypeTimeout}), ExitNotReachable},
		{"generic", errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: ExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMissingKeyWarning(t *testing.T) {
	hosted := backend.Backend{Name: "nvidia_cloud"}
	warning := missingKeyWarning(hosted)
	if !strings.Contains(warning, "build.nvidia.com") {
		t.Errorf("hosted backend without key: warning = %q, want key hint", warning)
	}

	tests := []backend.Backend{
		{Name: "nvidia_cloud", APIKey: "nvapi-xyz"},
		{Name: "vllm_local", APIKey: "not-needed"},
		{Name: "ollama_local", APIKey: "ollama"},
	}
	for _, b := range tests {
		if w := missingKeyWarning(b); w != "" {
			t.Errorf("%s: unexpected warning %q", b.Name, w)
		}
	}
}

func TestUsageMentionsEveryCommand(t *testing.T) {
	for _, cmd := range []string{"setup", "chat", "ask", "status", "config", "history", "version"} {
		if !strings.Contains(usageText, cmd) {
			t.Errorf("usage text missing command %q", cmd)
		}
	}
}
