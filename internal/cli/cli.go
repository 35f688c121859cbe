// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// VERSION INFO
// =============================================================================

// Version information (set via ldflags at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMAND TYPES
// =============================================================================

// Command represents the parsed CLI command.
type Command int

const (
	CmdChat Command = iota // Default: interactive chat
	CmdSetup
	CmdAsk
	CmdStatus
	CmdConfig
	CmdHistory
	CmdVersion
	CmdHelp
)

// Args holds parsed command-line arguments.
type Args struct {
	Command Command

	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Model   string
	Backend string

	// Ask flags
	Query   string
	Agentic bool
	MaxIter int
	Raw     bool

	// Config subcommand args
	ConfigKey string
	ConfigVal string

	// History subcommand ("list", "show", "delete", "prune")
	Subcommand string
	SessionID  string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `nemoshell - terminal assistant for NVIDIA Nemotron models

USAGE:
    nemoshell [COMMAND] [OPTIONS]

COMMANDS:
    setup              Guided inference backend install
    chat               Interactive chat session (default)
    ask <question>     One-shot question
    status             Backend and GPU status
    config get <key>   Read a config value
    config set <k> <v> Write a config value
    history [list|show <id>|delete <id>|prune]
                       Manage saved conversations
    version            Show version information
    help               Show this help

OPTIONS:
    --model <name>     Override the model for this invocation
    --backend <name>   Backend profile (vllm_local, ollama_local, nvidia_cloud)
    --agentic          Allow the model to run shell commands (ask)
    --max-iter <n>     Tool loop iteration cap (default: 10)
    --raw              Print the raw response without markdown rendering
    --json             Machine-readable output
    -q, --quiet        Suppress non-essential output
    -v, --verbose      Verbose output

ENVIRONMENT:
    LLM_BASE_URL       Override the API endpoint
    LLM_API_KEY        API key for hosted endpoints
    LLM_MODEL          Override the model

EXAMPLES:
    nemoshell setup
    nemoshell ask "how much free disk space do I have?" --agentic
    nemoshell config set backend.profile ollama_local
`

// Usage prints the help text.
func Usage() {
	fmt.Print(usageText)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse interprets command-line arguments. It returns an error for unknown
// commands or malformed flags; the caller prints usage and exits.
func Parse(argv []string) (*Args, error) {
	// MaxIter stays 0 unless --max-iter is given, so the config value
	// (tools.max_iterations) applies when the flag is absent.
	args := &Args{Command: CmdChat}

	if len(argv) == 0 {
		return args, nil
	}

	rest := argv
	switch argv[0] {
	case "setup":
		args.Command = CmdSetup
		rest = argv[1:]
	case "chat":
		args.Command = CmdChat
		rest = argv[1:]
	case "ask":
		args.Command = CmdAsk
		rest = argv[1:]
	case "status":
		args.Command = CmdStatus
		rest = argv[1:]
	case "config":
		args.Command = CmdConfig
		return parseConfigArgs(args, argv[1:])
	case "history":
		args.Command = CmdHistory
		return parseHistoryArgs(args, argv[1:])
	case "version", "--version":
		args.Command = CmdVersion
		return args, nil
	case "help", "--help", "-h":
		args.Command = CmdHelp
		return args, nil
	default:
		if strings.HasPrefix(argv[0], "-") {
			// Bare flags fall through to the default chat command.
		} else {
			return nil, fmt.Errorf("unknown command: %s", argv[0])
		}
	}

	return parseFlags(args, rest)
}

// parseFlags handles global and per-command flags plus the ask query text.
func parseFlags(args *Args, argv []string) (*Args, error) {
	var queryParts []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--agentic":
			args.Agentic = true
		case "--raw":
			args.Raw = true
		case "--model":
			i++
			if i >= len(argv) {
				return nil, fmt.Errorf("--model requires a value")
			}
			args.Model = argv[i]
		case "--backend":
			i++
			if i >= len(argv) {
				return nil, fmt.Errorf("--backend requires a value")
			}
			args.Backend = argv[i]
		case "--max-iter":
			i++
			if i >= len(argv) {
				return nil, fmt.Errorf("--max-iter requires a value")
			}
			n, err := strconv.Atoi(argv[i])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("--max-iter requires a positive integer")
			}
			args.MaxIter = n
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
			queryParts = append(queryParts, arg)
		}
	}

	args.Query = strings.Join(queryParts, " ")
	if args.Command == CmdAsk && args.Query == "" {
		return nil, fmt.Errorf("ask requires a question")
	}
	return args, nil
}

func parseConfigArgs(args *Args, argv []string) (*Args, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("config requires a subcommand: get, set, path")
	}
	args.Subcommand = argv[0]

	switch argv[0] {
	case "get":
		if len(argv) < 2 {
			return nil, fmt.Errorf("config get requires a key")
		}
		args.ConfigKey = argv[1]
	case "set":
		if len(argv) < 3 {
			return nil, fmt.Errorf("config set requires a key and a value")
		}
		args.ConfigKey = argv[1]
		args.ConfigVal = strings.Join(argv[2:], " ")
	case "path":
		// No further arguments.
	default:
		return nil, fmt.Errorf("unknown config subcommand: %s", argv[0])
	}
	return args, nil
}

func parseHistoryArgs(args *Args, argv []string) (*Args, error) {
	if len(argv) == 0 {
		args.Subcommand = "list"
		return args, nil
	}
	args.Subcommand = argv[0]

	switch argv[0] {
	case "list", "prune":
	case "show", "delete":
		if len(argv) < 2 {
			return nil, fmt.Errorf("history %s requires a session id", argv[0])
		}
		args.SessionID = argv[1]
	default:
		return nil, fmt.Errorf("unknown history subcommand: %s", argv[0])
	}
	return args, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes the parsed command and returns a process exit code.
func Run(args *Args) int {
	var err error

	switch args.Command {
	case CmdSetup:
		err = HandleSetup(args)
	case CmdChat:
		err = HandleChat(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdStatus:
		err = HandleStatus(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdHistory:
		err = HandleHistory(args)
	case CmdVersion:
		fmt.Printf("nemoshell %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case CmdHelp:
		Usage()
	}

	if err != nil {
		printError(err)
		return ExitCode(err)
	}
	return 0
}

// printError writes a styled error line to stderr.
func printError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
}
