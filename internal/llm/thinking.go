// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the HTTP client for OpenAI-compatible chat APIs.
package llm

import "strings"

// thinkingCloseTag ends a Nemotron reasoning block. Reasoning models emit
// their chain of thought before the answer, closed by this tag.
const thinkingCloseTag = "</think>"

// StripThinking removes a leading reasoning block from model output: the
// answer is everything after the last close tag. Text without the tag is
// returned unchanged.
func StripThinking(s string) string {
	idx := strings.LastIndex(s, thinkingCloseTag)
	if idx < 0 {
		return s
	}
	return strings.TrimLeft(s[idx+len(thinkingCloseTag):], "\n ")
}

// HasOpenThinking reports whether text currently ends inside an unclosed
// reasoning block. Used by streaming display to hold back chain-of-thought
// tokens.
func HasOpenThinking(s string) bool {
	open := strings.LastIndex(s, "<think>")
	if open < 0 {
		return false
	}
	return strings.LastIndex(s, thinkingCloseTag) < open
}
