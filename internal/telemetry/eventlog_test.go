package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabledIsNoop(t *testing.T) {
	el, err := Open(t.TempDir(), "20260730-000000", false, zerolog.Nop())
	require.NoError(t, err)
	el.Append(KindServerStart, nil)
	el.Close() // must not block
}

func TestAppendAndReadSession(t *testing.T) {
	dir := t.TempDir()
	el, err := Open(dir, "20260730-000000", true, zerolog.Nop())
	require.NoError(t, err)

	el.Append(KindServerStart, map[string]any{"port": 5500})
	el.Append(KindWSConnect, map[string]any{"client": "c1"})
	el.Close()

	records, err := ReadSession(dir, "20260730-000000")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, KindServerStart, records[0].Kind)
	assert.Equal(t, "20260730-000000", records[0].Session)
	assert.Equal(t, KindWSConnect, records[1].Kind)
}

func TestListSessionsSortedOldestFirst(t *testing.T) {
	dir := t.TempDir()
	for _, s := range []string{"20260730-000300", "20260730-000100", "20260730-000200"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "events-"+s+".jsonl"), nil, 0o644))
	}

	sessions, err := ListSessions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260730-000100", "20260730-000200", "20260730-000300"}, sessions)
}

func TestPruneKeepsOnlyMostRecentSessions(t *testing.T) {
	dir := t.TempDir()

	for i := 1; i <= 11; i++ {
		session := NewSessionID(time.Date(2026, 7, i, 0, 0, 0, 0, time.UTC))
		el, err := Open(dir, session, true, zerolog.Nop())
		require.NoError(t, err)
		el.Close()
	}

	sessions, err := ListSessions(dir)
	require.NoError(t, err)
	assert.Len(t, sessions, maxSessionFiles)
	// The oldest (day 1) session was pruned when the 11th was opened.
	for _, s := range sessions {
		assert.NotContains(t, s, "20260701")
	}
}

func TestReadAllSessionsConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()

	el1, err := Open(dir, "20260730-000100", true, zerolog.Nop())
	require.NoError(t, err)
	el1.Append(KindServerStart, nil)
	el1.Close()

	el2, err := Open(dir, "20260730-000200", true, zerolog.Nop())
	require.NoError(t, err)
	el2.Append(KindServerStop, nil)
	el2.Close()

	records, err := ReadAllSessions(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, KindServerStart, records[0].Kind)
	assert.Equal(t, KindServerStop, records[1].Kind)
}
