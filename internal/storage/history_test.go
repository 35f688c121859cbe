// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.CreateSession("nemotron-mini", "ollama_local")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	loaded, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, "nemotron-mini", loaded.Model)
	require.Equal(t, "ollama_local", loaded.Backend)
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession("no-such-id")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions_NewestFirst(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)
	second, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)

	// Push the first session firmly ahead of the second.
	_, err = store.db.Exec(`UPDATE sessions SET updated_at = updated_at + 60 WHERE id = ?`, first.ID)
	require.NoError(t, err)

	sessions, err := store.ListSessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, first.ID, sessions[0].ID)
	require.Equal(t, second.ID, sessions[1].ID)
}

func TestListSessions_Limit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := store.CreateSession("m", "vllm_local")
		require.NoError(t, err)
	}

	sessions, err := store.ListSessions(3)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
}

func TestDeleteSession_CascadesMessages(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(sess.ID, "user", "hi"))
	require.NoError(t, store.AppendMessage(sess.ID, "assistant", "hello"))

	require.NoError(t, store.DeleteSession(sess.ID))

	_, err = store.GetSession(sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	msgs, err := store.Messages(sess.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestDeleteSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	require.ErrorIs(t, store.DeleteSession("missing"), ErrSessionNotFound)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestAppendAndLoadMessages(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(sess.ID, "user", "what is vram?"))
	require.NoError(t, store.AppendMessage(sess.ID, "assistant", "GPU memory."))

	msgs, err := store.Messages(sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "what is vram?", msgs[0].Content)
	require.Equal(t, "assistant", msgs[1].Role)
}

func TestSetSummary(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)
	require.NoError(t, store.SetSummary(sess.ID, "vram question"))

	loaded, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, "vram question", loaded.Summary)
}

// =============================================================================
// PRUNE TESTS
// =============================================================================

func TestPruneOlderThan(t *testing.T) {
	store := newTestStore(t)

	old, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)
	fresh, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)

	// Backdate the old session past the retention window.
	cutoff := time.Now().UTC().AddDate(0, 0, -60).Unix()
	_, err = store.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, cutoff, old.ID)
	require.NoError(t, err)

	n, err := store.PruneOlderThan(30)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = store.GetSession(old.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetSession(fresh.ID)
	require.NoError(t, err)
}

func TestPruneOlderThan_ZeroDaysIsNoop(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateSession("m", "vllm_local")
	require.NoError(t, err)

	n, err := store.PruneOlderThan(0)
	require.NoError(t, err)
	require.Zero(t, n)
}
