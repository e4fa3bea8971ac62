package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "data", "history.jsonl"), time.UTC)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_MissingFileThenAppend(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	first, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.Identified{ID: 42, DisplayName: "alice"},
		StartedAt: start,
		EndsAt:    start.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)

	second, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "bob"},
		StartedAt: start.Add(time.Hour),
		EndsAt:    start.Add(time.Hour + 2*time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	reloaded, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 2)

	assert.Equal(t, roulette.Identified{ID: 42, DisplayName: "alice"}, reloaded[0].Member)
	assert.True(t, reloaded[0].StartedAt.Equal(start))
	assert.True(t, reloaded[0].EndsAt.Equal(start.Add(2*time.Minute)))
	assert.Equal(t, roulette.LegacyNamedOnly{DisplayName: "bob"}, reloaded[1].Member)
	assert.Equal(t, int64(2), reloaded[1].Seq)
}

func TestFileStore_AppendWithoutLoadContinuesSequence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `{"member":"alice","time":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T09:02:00Z"}`+"\n")

	entry, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "bob"},
		StartedAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 3, 10, 10, 2, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Seq)
}

func TestFileStore_LegacyArrayIsRewritten(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `[
  {"member": "alice", "time": "2024-05-01T12:00:00.123456", "ends_at": "2024-05-01T12:02:00.123456"},
  {"member": "bob", "member_id": "77", "time": "2024-05-02T08:00:00", "ends_at": "2024-05-02T08:02:00"}
]`)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, roulette.LegacyNamedOnly{DisplayName: "alice"}, entries[0].Member)
	assert.True(t, entries[0].StartedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)))
	assert.Equal(t, roulette.Identified{ID: 77, DisplayName: "bob"}, entries[1].Member)

	lines := strings.Split(strings.TrimSpace(readFile(t, store.Path())), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	// the naive timestamps survive the rewrite untouched
	assert.Contains(t, lines[0], `"time":"2024-05-01T12:00:00.123456"`)
}

func TestFileStore_TornTrailingLine(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	good := `{"member":"alice","time":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T09:02:00Z"}` + "\n"
	writeFile(t, store.Path(), good+`{"member":"bo`)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, good, readFile(t, store.Path()))

	entry, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "bob"},
		StartedAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 3, 10, 10, 2, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Seq)

	reloaded, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded, 2)
}

func TestFileStore_UnterminatedValidLine(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `{"member":"alice","time":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T09:02:00Z"}`)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "bob"},
		StartedAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 3, 10, 10, 2, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	reloaded, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded, 2)
}

func TestFileStore_CorruptFileIsMovedAside(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `{"member":"alice","time":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T09:02:00Z"}
not json at all
{"member":"bob","time":"2025-03-10T10:00:00Z","ends_at":"2025-03-10T10:02:00Z"}
`)

	entries, err := store.Load(ctx)
	require.Error(t, err)
	assert.Empty(t, entries)

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))

	moved, err := filepath.Glob(store.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, moved, 1)

	entry, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "carol"},
		StartedAt: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 3, 10, 11, 2, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Seq)
}

func TestFileStore_UnparsableTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `{"member":"alice","time":"yesterday-ish","ends_at":""}`+"\n")

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.True(t, entries[0].StartedAt.IsZero())
	_, ok := entries[0].Duration()
	assert.False(t, ok)
	assert.False(t, entries[0].Active(time.Now()))
}

func TestFileStore_AssignIdentities(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store.Path(), `{"member":"alice","time":"2025-03-10T09:00:00Z","ends_at":"2025-03-10T09:02:00Z"}
{"member":"bob","time":"2025-03-10T10:00:00Z","ends_at":"2025-03-10T10:02:00Z"}
{"member":"carol","member_id":"12","time":"2025-03-10T11:00:00Z","ends_at":"2025-03-10T11:02:00Z"}
`)

	_, err := store.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, store.AssignIdentities(ctx, map[int64]roulette.Identified{
		1:  {ID: 10, DisplayName: "somebody else"},
		2:  {ID: 11, DisplayName: "bob"},
		3:  {ID: 99, DisplayName: "carol"},
		17: {ID: 5, DisplayName: "ghost"},
	}))

	entries, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, roulette.LegacyNamedOnly{DisplayName: "alice"}, entries[0].Member)
	assert.Equal(t, roulette.Identified{ID: 11, DisplayName: "bob"}, entries[1].Member)
	assert.Equal(t, roulette.Identified{ID: 12, DisplayName: "carol"}, entries[2].Member)
}

// faultyFile fails an append after part of the line reached the disk.
type faultyFile struct {
	*os.File
	writeLimit int
	syncErr    error
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.writeLimit >= 0 && f.writeLimit < len(p) {
		n, _ := f.File.Write(p[:f.writeLimit])
		return n, errors.New("file too large")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return f.File.Sync()
}

func TestFileStore_FailedAppendLeavesLogIntact(t *testing.T) {
	tests := []struct {
		name       string
		writeLimit int
		syncErr    error
	}{
		{name: "short write", writeLimit: 20},
		{name: "sync fails after full write", writeLimit: -1, syncErr: errors.New("input/output error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
			spinAt := func(i int, name string) roulette.HistoryEntry {
				at := start.Add(time.Duration(i) * time.Hour)
				return roulette.HistoryEntry{
					Member:    roulette.LegacyNamedOnly{DisplayName: name},
					StartedAt: at,
					EndsAt:    at.Add(2 * time.Minute),
				}
			}

			for i, name := range []string{"m1", "m2", "m3"} {
				_, err := store.Append(ctx, spinAt(i, name))
				require.NoError(t, err)
			}
			before := readFile(t, store.Path())

			store.openAppend = func(path string) (appendFile, error) {
				f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					return nil, err
				}
				return &faultyFile{File: f, writeLimit: tt.writeLimit, syncErr: tt.syncErr}, nil
			}
			_, err := store.Append(ctx, spinAt(3, "lost"))
			require.Error(t, err)
			assert.Equal(t, before, readFile(t, store.Path()))

			store.openAppend = openAppendFile
			next, err := store.Append(ctx, spinAt(4, "m4"))
			require.NoError(t, err)
			assert.Equal(t, int64(4), next.Seq)

			entries, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 4)
			assert.Equal(t, roulette.LegacyNamedOnly{DisplayName: "m4"}, entries[3].Member)
			assert.Equal(t, int64(4), entries[3].Seq)
		})
	}
}

func TestFileStore_AppendRepairsUncutFragment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "m1"},
		StartedAt: start,
		EndsAt:    start.Add(2 * time.Minute),
	})
	require.NoError(t, err)

	// A fragment the rollback could not cut is left behind.
	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"member":"m2","membe`)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	store.loaded = false

	next, err := store.Append(ctx, roulette.HistoryEntry{
		Member:    roulette.LegacyNamedOnly{DisplayName: "m3"},
		StartedAt: start.Add(time.Hour),
		EndsAt:    start.Add(time.Hour + 2*time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Seq)

	entries, err := NewFileStore(store.Path(), time.UTC).Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, roulette.LegacyNamedOnly{DisplayName: "m3"}, entries[1].Member)
}
