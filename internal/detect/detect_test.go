// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import "testing"

// =============================================================================
// QUERY OUTPUT PARSING TESTS
// =============================================================================

func TestParseQueryOutput_SingleDevice(t *testing.T) {
	raw := "NVIDIA GeForce RTX 4090, 24564 MiB\n"

	gpus := ParseQueryOutput(raw)
	if len(gpus) != 1 {
		t.Fatalf("Expected 1 GPU, got %d", len(gpus))
	}
	if gpus[0].Name != "NVIDIA GeForce RTX 4090" {
		t.Errorf("Name = %q", gpus[0].Name)
	}
	if gpus[0].MemoryMiB != 24564 {
		t.Errorf("MemoryMiB = %d, want 24564", gpus[0].MemoryMiB)
	}
	if gpus[0].VramGB() != 24 {
		t.Errorf("VramGB = %d, want 24", gpus[0].VramGB())
	}
}

func TestParseQueryOutput_MultiDevice(t *testing.T) {
	raw := "NVIDIA A100-SXM4-80GB, 81920 MiB\nNVIDIA A100-SXM4-80GB, 81920 MiB\n"

	gpus := ParseQueryOutput(raw)
	if len(gpus) != 2 {
		t.Fatalf("Expected 2 GPUs, got %d", len(gpus))
	}
	if MaxVramGB(gpus) != 80 {
		t.Errorf("MaxVramGB = %d, want 80", MaxVramGB(gpus))
	}
}

func TestParseQueryOutput_SkipsMalformedLines(t *testing.T) {
	raw := "garbage line without comma\nNVIDIA RTX A6000, 49140 MiB\n, not a number MiB\n"

	gpus := ParseQueryOutput(raw)
	if len(gpus) != 1 {
		t.Fatalf("Expected 1 GPU, got %d", len(gpus))
	}
	if gpus[0].Name != "NVIDIA RTX A6000" {
		t.Errorf("Name = %q", gpus[0].Name)
	}
}

func TestParseQueryOutput_Empty(t *testing.T) {
	if gpus := ParseQueryOutput(""); len(gpus) != 0 {
		t.Errorf("Expected no GPUs from empty input, got %d", len(gpus))
	}
	if gpus := ParseQueryOutput("\n\n"); len(gpus) != 0 {
		t.Errorf("Expected no GPUs from blank input, got %d", len(gpus))
	}
}

func TestVramGB_Rounding(t *testing.T) {
	testCases := []struct {
		mib  uint32
		want uint32
	}{
		{24564, 24}, // RTX 4090 reports just under 24 GiB
		{81920, 80},
		{12288, 12},
		{8192, 8},
		{16376, 16}, // rounds up across the .5 boundary
	}

	for _, tc := range testCases {
		g := GPU{Name: "test", MemoryMiB: tc.mib}
		if got := g.VramGB(); got != tc.want {
			t.Errorf("VramGB(%d MiB) = %d, want %d", tc.mib, got, tc.want)
		}
	}
}

func TestMaxVramGB_Empty(t *testing.T) {
	if got := MaxVramGB(nil); got != 0 {
		t.Errorf("MaxVramGB(nil) = %d, want 0", got)
	}
}
