// nemoshell - a terminal assistant for NVIDIA Nemotron models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/nemoshell/internal/cli"
)

func main() {
	args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprintln(os.Stderr)
		cli.Usage()
		os.Exit(cli.ExitUsage)
	}

	os.Exit(cli.Run(args))
}
