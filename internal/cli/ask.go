// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nemoshell command line interface.
// ask.go implements one-shot questions, with optional agentic tool use.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/llm"
	"github.com/jeranaias/nemoshell/internal/tools"
)

// systemPrompt frames the model as a local machine assistant. The tool
// contract (one bash command per call, persistent cwd) mirrors what the
// executor actually provides.
const systemPrompt = `You are nemoshell, a helpful assistant running in the user's terminal.
You can run bash commands on the user's machine with the run_bash_command tool.
The working directory persists between commands. Prefer simple, read-only
commands, and explain what you find concisely.`

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk answers a single question, optionally letting the model run
// shell commands first.
func HandleAsk(args *Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := newClientFor(cfg, args)
	if err != nil {
		return err
	}

	// Ctrl+C cancels the in-flight request rather than killing the process
	// mid-line.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	query := args.Query

	// Piped stdin becomes context for the question.
	if !IsInputTerminal() {
		if piped := readAllStdin(); piped != "" {
			query = query + "\n\nInput:\n" + piped
		}
	}

	messages := []llm.Message{
		llm.NewSystemMessage(systemPrompt),
		llm.NewUserMessage(query),
	}

	if args.Agentic {
		return runAgenticLoop(ctx, client, cfg, args, messages)
	}

	acc := llm.NewStreamAccumulator()
	if err := client.ChatStream(ctx, args.Model, messages, acc.Add); err != nil {
		return err
	}

	return emitAnswer(args, client, acc)
}

// emitAnswer prints the final accumulated answer in the requested format.
func emitAnswer(args *Args, client *llm.Client, acc *llm.StreamAccumulator) error {
	if err := acc.Err(); err != nil {
		return err
	}

	if args.JSON {
		payload := map[string]any{
			"response": acc.Content(),
			"model":    client.DefaultModel(),
			"usage": map[string]int{
				"prompt_tokens":     acc.Usage().PromptTokens,
				"completion_tokens": acc.Usage().CompletionTokens,
			},
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	displayResponse(acc.Content(), args.Raw)
	return nil
}

// readAllStdin drains piped standard input.
func readAllStdin() string {
	var b strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// =============================================================================
// AGENTIC LOOP
// =============================================================================

// runAgenticLoop lets the model alternate between tool calls and text until
// it produces a final answer or the iteration cap is hit.
func runAgenticLoop(ctx context.Context, client *llm.Client, cfg *config.Config, args *Args, messages []llm.Message) error {
	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	session := tools.NewBashSession(workDir)
	session.AutoExecute = cfg.Tools.AutoExecute
	session.Confirm = confirmCommand

	for iter := 0; iter < effectiveMaxIter(args, cfg); iter++ {
		acc := llm.NewStreamAccumulator()
		err := client.ChatStreamWithTools(ctx, args.Model, messages, tools.Definitions(), acc.Add)
		if err != nil {
			return err
		}
		if err := acc.Err(); err != nil {
			return err
		}

		calls := acc.ToolCalls()
		if len(calls) == 0 {
			return emitAnswer(args, client, acc)
		}

		// Record the assistant turn with its calls, then answer each call.
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   acc.RawContent(),
			ToolCalls: calls,
		})

		for _, call := range calls {
			result := executeToolCall(ctx, session, call)
			messages = append(messages, llm.NewToolResultMessage(call.ID, result))
		}
	}

	fmt.Fprintln(os.Stderr, warningStyle.Render("Reached tool iteration limit without a final answer."))
	return nil
}

// effectiveMaxIter picks the tool loop bound: the --max-iter flag when
// given, otherwise tools.max_iterations from config.
func effectiveMaxIter(args *Args, cfg *config.Config) int {
	if args.MaxIter > 0 {
		return args.MaxIter
	}
	return cfg.Tools.MaxIterations
}

// executeToolCall dispatches one model tool call and formats the result for
// the conversation.
func executeToolCall(ctx context.Context, session *tools.BashSession, call llm.ToolCall) string {
	if call.Function.Name != tools.BashToolName {
		return fmt.Sprintf(`{"error": "unknown tool: %s"}`, call.Function.Name)
	}

	params, err := call.Function.DecodeArguments()
	if err != nil {
		return `{"error": "malformed tool arguments"}`
	}
	command, _ := params["command"].(string)

	res := session.Execute(ctx, command)
	if !res.Success && res.Output == "" {
		return fmt.Sprintf(`{"error": %q}`, res.Error)
	}
	return res.Output
}

// confirmCommand asks the user to approve a command the model wants to run.
func confirmCommand(command string) bool {
	fmt.Printf("%s %s? [y/N]: ", promptStyle.Render("Execute"), commandStyle.Render("'"+command+"'"))

	answer := readLine(os.Stdin)
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}
