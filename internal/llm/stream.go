// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the HTTP client for OpenAI-compatible chat APIs.
package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
)

// =============================================================================
// SSE STREAM READER
// =============================================================================

// StreamReader parses server-sent-event lines from a streaming completion:
// each payload line is "data: {json}", and "data: [DONE]" ends the stream.
type StreamReader struct {
	reader *bufio.Reader

	model        string
	finishReason string
	usage        Usage

	// Tool call argument fragments arrive spread across chunks, keyed by
	// choice-local index. They are assembled when the stream ends.
	toolCalls map[int]*ToolCall
}

// NewStreamReader creates a stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader:    bufio.NewReader(r),
		toolCalls: make(map[int]*ToolCall),
	}
}

// streamEvent mirrors one SSE payload from /chat/completions.
type streamEvent struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					// Server closed without [DONE]; still deliver what we
					// assembled so tool calls are not lost.
					callback(s.finalChunk())
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single SSE line. Returns (nil, nil) for
// lines that carry no chunk (keep-alives, malformed payloads).
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		if len(line) == 0 {
			return nil, err
		}
	}

	text := strings.TrimSpace(string(line))
	if text == "" || strings.HasPrefix(text, ":") {
		return nil, nil
	}

	payload, ok := strings.CutPrefix(text, "data:")
	if !ok {
		return nil, nil
	}
	payload = strings.TrimSpace(payload)

	if payload == "[DONE]" {
		return s.finalChunkPtr(), nil
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if event.Model != "" {
		s.model = event.Model
	}
	if event.Usage != nil {
		s.usage = *event.Usage
	}

	if len(event.Choices) == 0 {
		return nil, nil
	}
	choice := event.Choices[0]

	if choice.FinishReason != "" {
		s.finishReason = choice.FinishReason
	}

	// Merge tool call fragments by index.
	for _, tc := range choice.Delta.ToolCalls {
		existing, ok := s.toolCalls[tc.Index]
		if !ok {
			existing = &ToolCall{Type: "function"}
			s.toolCalls[tc.Index] = existing
		}
		if tc.ID != "" {
			existing.ID = tc.ID
		}
		if tc.Function.Name != "" {
			existing.Function.Name = tc.Function.Name
		}
		existing.Function.Arguments += tc.Function.Arguments
	}

	content := choice.Delta.Content
	if content == "" {
		return nil, nil
	}
	return &StreamChunk{Content: content, Model: s.model}, nil
}

// finalChunk assembles the terminal chunk with completed tool calls.
func (s *StreamReader) finalChunk() StreamChunk {
	return StreamChunk{
		Done:         true,
		FinishReason: s.finishReason,
		Model:        s.model,
		Usage:        s.usage,
		ToolCalls:    s.assembledToolCalls(),
	}
}

func (s *StreamReader) finalChunkPtr() *StreamChunk {
	c := s.finalChunk()
	return &c
}

// assembledToolCalls returns merged tool calls in index order.
func (s *StreamReader) assembledToolCalls() []ToolCall {
	if len(s.toolCalls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(s.toolCalls))
	for i := range s.toolCalls {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	calls := make([]ToolCall, 0, len(indices))
	for _, i := range indices {
		calls = append(calls, *s.toolCalls[i])
	}
	return calls
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks into a final answer.
type StreamAccumulator struct {
	content      strings.Builder
	toolCalls    []ToolCall
	finishReason string
	usage        Usage
	done         bool
	err          error
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Error != nil {
		a.err = chunk.Error
		a.done = true
		return
	}

	a.content.WriteString(chunk.Content)

	if chunk.Done {
		a.done = true
		a.finishReason = chunk.FinishReason
		a.toolCalls = chunk.ToolCalls
		a.usage = chunk.Usage
	}
}

// Content returns the accumulated text with any reasoning prelude removed.
func (a *StreamAccumulator) Content() string {
	return StripThinking(a.content.String())
}

// RawContent returns the accumulated text including reasoning.
func (a *StreamAccumulator) RawContent() string {
	return a.content.String()
}

// ToolCalls returns the assembled tool calls from the final chunk.
func (a *StreamAccumulator) ToolCalls() []ToolCall {
	return a.toolCalls
}

// FinishReason returns the final chunk's finish reason.
func (a *StreamAccumulator) FinishReason() string {
	return a.finishReason
}

// Usage returns the token accounting from the final chunk.
func (a *StreamAccumulator) Usage() Usage {
	return a.usage
}

// IsDone returns whether streaming is complete.
func (a *StreamAccumulator) IsDone() bool {
	return a.done
}

// Err returns any error that occurred.
func (a *StreamAccumulator) Err() error {
	return a.err
}
