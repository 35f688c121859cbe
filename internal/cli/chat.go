// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Handles the "nemoshell chat" command (also the default when no command is
// given). Provides readline-style input with history, markdown rendering on
// a TTY, and persistence of the conversation to the local history database.
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear conversation context
//   /model [name]       Show or switch model
//   /status, /s         Show session statistics
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/llm"
	"github.com/jeranaias/nemoshell/internal/storage"
	"github.com/jeranaias/nemoshell/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// inputReader provides line editing and persistent input history.
// USABILITY: Supports arrow keys for history navigation.
type inputReader struct {
	line        *liner.State
	historyFile string
}

func newInputReader() *inputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	r := &inputReader{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput reads one line with the given prompt, recording non-empty input
// in the history.
func (r *inputReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history (0600, the file may contain sensitive queries) and
// releases the terminal.
func (r *inputReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state for one interactive chat.
type chatSession struct {
	Messages []llm.Message

	Config *config.Config
	Client *llm.Client
	Quiet  bool

	StartTime   time.Time
	Turns       int
	TotalTokens int

	// Persistence; nil when the history database could not be opened.
	Store  *storage.HistoryStore
	Stored *storage.Session

	// cancelFn is written by the REPL goroutine and invoked by the signal
	// goroutine, hence the mutex.
	cancelMu sync.Mutex
	cancelFn context.CancelFunc

	Input *inputReader
}

// setCancel installs (or clears, with nil) the cancel for the in-flight
// request.
func (s *chatSession) setCancel(fn context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancelFn = fn
	s.cancelMu.Unlock()
}

// cancelInFlight cancels the in-flight request, if any, and reports whether
// one was cancelled.
func (s *chatSession) cancelInFlight() bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelFn == nil {
		return false
	}
	s.cancelFn()
	s.cancelFn = nil
	return true
}

// newChatSession wires up the client, persistence, and input handling.
func newChatSession(args *Args) (*chatSession, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	client, err := newClientFor(cfg, args)
	if err != nil {
		return nil, err
	}

	s := &chatSession{
		Messages:  []llm.Message{llm.NewSystemMessage(systemPrompt)},
		Config:    cfg,
		Client:    client,
		Quiet:     args.Quiet,
		StartTime: time.Now(),
		Input:     newInputReader(),
	}

	// History persistence is best effort; chat works without it.
	if dir, err := config.ConfigDir(); err == nil {
		if store, err := storage.Open(filepath.Join(dir, "history.db")); err == nil {
			s.Store = store
			backendName := args.Backend
			if backendName == "" {
				backendName = cfg.Backend.Profile
			}
			if sess, err := store.CreateSession(client.DefaultModel(), backendName); err == nil {
				s.Stored = sess
			}
		}
	}

	return s, nil
}

// persist appends one turn to the history database, if available.
func (s *chatSession) persist(role, content string) {
	if s.Store == nil || s.Stored == nil {
		return
	}
	_ = s.Store.AppendMessage(s.Stored.ID, role, content)
}

func (s *chatSession) close() {
	s.Input.Close()
	if s.Store != nil {
		// First user line doubles as the session summary in history listings.
		if s.Stored != nil && s.Stored.Summary == "" {
			for _, m := range s.Messages {
				if m.Role == "user" {
					_ = s.Store.SetSummary(s.Stored.ID, util.TruncateRunes(m.Content, 80))
					break
				}
			}
		}
		if days := s.Config.Chat.HistoryDays; days > 0 {
			_, _ = s.Store.PruneOlderThan(days)
		}
		s.Store.Close()
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args *Args) error {
	session, err := newChatSession(args)
	if err != nil {
		return err
	}
	defer session.close()

	ctx := context.Background()
	if err := session.Client.CheckReachable(ctx); err != nil {
		return err
	}

	if !session.Quiet {
		printWelcome(session)
	}

	// First Ctrl+C during generation cancels the stream instead of killing
	// the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if session.cancelInFlight() {
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.Input.ReadInput(promptStyle.Render("nemoshell> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and EOF (Ctrl+D) both exit.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(input, session)
			if err != nil {
				printError(err)
			}
			if !keepGoing {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := processTurn(session, input); err != nil {
			printError(err)
		}
	}
}

// =============================================================================
// TURN PROCESSING
// =============================================================================

// processTurn sends one user message and streams the response.
func processTurn(session *chatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	session.setCancel(cancel)
	defer func() {
		session.setCancel(nil)
		cancel()
	}()

	session.Messages = append(session.Messages, llm.NewUserMessage(input))

	// On a TTY the full response is collected and rendered as markdown;
	// piped output streams raw chunks as they arrive.
	useMarkdown := IsTerminal() && session.Config.Chat.Markdown
	acc := llm.NewStreamAccumulator()

	fmt.Println()

	// Streaming display holds back reasoning tokens: nothing is printed
	// while a thinking block is open, then the visible answer streams out.
	var printed int
	err := session.Client.ChatStream(ctx, "", session.Messages, func(chunk llm.StreamChunk) {
		if chunk.Error != nil {
			return
		}
		acc.Add(chunk)
		if useMarkdown {
			return
		}
		raw := acc.RawContent()
		if llm.HasOpenThinking(raw) {
			return
		}
		visible := llm.StripThinking(raw)
		if len(visible) > printed {
			fmt.Print(visible[printed:])
			printed = len(visible)
		}
	})
	if err != nil {
		// Drop the user message so a retry does not duplicate it.
		session.Messages = session.Messages[:len(session.Messages)-1]
		return err
	}
	if err := acc.Err(); err != nil {
		session.Messages = session.Messages[:len(session.Messages)-1]
		return err
	}

	response := acc.Content()
	if useMarkdown {
		displayResponse(response, false)
	}
	fmt.Println()

	session.Messages = append(session.Messages, llm.NewAssistantMessage(response))
	session.persist("user", input)
	session.persist("assistant", response)

	session.Turns++
	usage := acc.Usage()
	session.TotalTokens += usage.PromptTokens + usage.CompletionTokens

	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func handleSlashCommand(cmd string, session *chatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	rest := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		session.Messages = session.Messages[:1] // keep the system prompt
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/model", "/m":
		if len(rest) == 0 {
			fmt.Printf("%s %s\n",
				infoStyle.Render("[Model]"),
				commandStyle.Render(session.Client.DefaultModel()))
			return true, nil
		}
		session.Client.SetModel(rest[0])
		fmt.Printf("%s Switched to model: %s\n", okStyle.Render("[OK]"), rest[0])
		return true, nil

	case "/status", "/s":
		printChatStatus(session)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(session *chatSession) {
	fmt.Println()
	fmt.Println(headerStyle.Render("nemoshell interactive chat"))
	if colorEnabled() {
		fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	}
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(session.Client.DefaultModel()))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Endpoint:"),
		commandStyle.Render(session.Client.GetConfig().BaseURL))
	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func printChatHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear conversation context"},
		{"/model [name]", "Show or switch model"},
		{"/status, /s", "Show session statistics"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Println()
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Println()
}

func printChatStatus(session *chatSession) {
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Session Status"))
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(session.Client.DefaultModel()))
	fmt.Printf("  %s %s\n", infoStyle.Render("Duration:"), elapsed.String())
	fmt.Printf("  %s %d\n", infoStyle.Render("Turns:"), session.Turns)
	fmt.Printf("  %s %d\n", infoStyle.Render("Tokens:"), session.TotalTokens)
	if session.Stored != nil {
		fmt.Printf("  %s %s\n", infoStyle.Render("Session ID:"), session.Stored.ID)
	}
	fmt.Println()
}

func printExitSummary(session *chatSession) {
	if session.Turns == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Session Summary"))
	fmt.Printf("  %s %d\n", infoStyle.Render("Turns:"), session.Turns)
	fmt.Printf("  %s %d\n", infoStyle.Render("Tokens:"), session.TotalTokens)
	fmt.Printf("  %s %s\n", infoStyle.Render("Duration:"), elapsed.String())
	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
