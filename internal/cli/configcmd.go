// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// configcmd.go - config get/set/path subcommands.
package cli

import (
	"fmt"

	"github.com/jeranaias/nemoshell/internal/config"
)

// HandleConfig reads or writes a single configuration key.
func HandleConfig(args *Args) error {
	switch args.Subcommand {
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "get":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		value, err := cfg.GetKey(args.ConfigKey)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	case "set":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.SetKey(args.ConfigKey, args.ConfigVal); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("%s %s = %s\n", okStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}
