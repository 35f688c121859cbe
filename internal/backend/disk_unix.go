// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package backend

import "golang.org/x/sys/unix"

// FreeDiskSpace returns the free disk space in bytes for the given path.
// Model pulls are multi-gigabyte downloads, so setup warns when space is
// tight before starting one.
func FreeDiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}

	// Bavail is what non-root users can actually use, unlike Bfree.
	return stat.Bavail * uint64(stat.Bsize), nil
}
