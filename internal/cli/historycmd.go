// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// historycmd.go - saved conversation management.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/nemoshell/internal/config"
	"github.com/jeranaias/nemoshell/internal/storage"
	"github.com/jeranaias/nemoshell/internal/util"
)

// historyListLimit caps the list view; older sessions stay queryable by id.
const historyListLimit = 20

func openHistoryStore() (*storage.HistoryStore, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return storage.Open(filepath.Join(dir, "history.db"))
}

// HandleHistory lists, shows, deletes, or prunes saved conversations.
func HandleHistory(args *Args) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	switch args.Subcommand {
	case "list":
		return historyList(store)
	case "show":
		return historyShow(store, args.SessionID)
	case "delete":
		if err := store.DeleteSession(args.SessionID); err != nil {
			return err
		}
		fmt.Printf("%s Deleted session %s\n", okStyle.Render("[OK]"), args.SessionID)
		return nil
	case "prune":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pruned, err := store.PruneOlderThan(cfg.Chat.HistoryDays)
		if err != nil {
			return err
		}
		fmt.Printf("%s Pruned %d sessions older than %d days\n",
			okStyle.Render("[OK]"), pruned, cfg.Chat.HistoryDays)
		return nil
	default:
		return fmt.Errorf("unknown history subcommand: %s", args.Subcommand)
	}
}

func historyList(store *storage.HistoryStore) error {
	sessions, err := store.ListSessions(historyListLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("No saved conversations."))
		return nil
	}

	for _, s := range sessions {
		summary := s.Summary
		if summary == "" {
			summary = "(no summary)"
		}
		// Width-aware truncation keeps the columns aligned for CJK summaries.
		fmt.Printf("%s  %s  %s\n",
			commandStyle.Render(shortID(s.ID)),
			infoStyle.Render(s.UpdatedAt.Format("2006-01-02 15:04")),
			util.TruncateWidth(summary, 60))
	}
	return nil
}

func historyShow(store *storage.HistoryStore, id string) error {
	session, err := resolveSession(store, id)
	if err != nil {
		return err
	}

	messages, err := store.Messages(session.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (%s, %s)\n\n",
		headerStyle.Render("Session"),
		session.ID,
		session.Model,
		session.CreatedAt.Format("2006-01-02 15:04"))

	for _, m := range messages {
		switch m.Role {
		case "user":
			fmt.Printf("%s %s\n", promptStyle.Render("You:"), m.Content)
		case "assistant":
			fmt.Printf("%s %s\n", okStyle.Render("AI:"), m.Content)
		default:
			continue // system and tool turns are noise here
		}
		fmt.Println()
	}
	return nil
}

// resolveSession accepts a full session id or an unambiguous prefix.
func resolveSession(store *storage.HistoryStore, id string) (*storage.Session, error) {
	if s, err := store.GetSession(id); err == nil {
		return s, nil
	}

	sessions, err := store.ListSessions(0)
	if err != nil {
		return nil, err
	}

	var match *storage.Session
	for i := range sessions {
		if strings.HasPrefix(sessions[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous session id prefix: %s", id)
			}
			match = &sessions[i]
		}
	}
	if match == nil {
		return nil, storage.ErrSessionNotFound
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
