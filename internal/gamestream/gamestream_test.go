package gamestream_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/stretchr/testify/require"
)

func rawLog(id int64, date int64) string {
	return fmt.Sprintf(`{"id": %d, "length": 600, "teams": {"Red": {"score": 1}, "Blue": {"score": 0}},
 "players": {"[U:1:1]": {"team": "Red", "class_stats": [{"type": "scout", "total_time": 600}]}},
 "info": {"map": "cp_process_final", "date": %d}}`, id, date)
}

func writeStore(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "game_logs.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	return path
}

func collect(t *testing.T, stream gamestream.Stream) ([]int64, int) {
	t.Helper()

	var (
		ids    []int64
		errors int
	)

	for game, err := range stream.Games() {
		if err != nil {
			errors++

			continue
		}

		ids = append(ids, game.ID)
	}

	return ids, errors
}

func oneLine(raw string) string {
	return strings.ReplaceAll(raw, "\n", "")
}

func TestStoreOrdering(t *testing.T) {
	path := writeStore(t,
		oneLine(rawLog(3, 3000)),
		oneLine(rawLog(1, 1000)),
		oneLine(rawLog(20, 2000)),
		oneLine(rawLog(10, 2000)),
	)

	store, errOpen := gamestream.Open(path)
	require.NoError(t, errOpen)
	require.Equal(t, 4, store.Len())
	require.True(t, store.Has(20))
	require.False(t, store.Has(99))

	ids, failures := collect(t, store)
	require.Zero(t, failures)
	require.Equal(t, []int64{1, 20, 10, 3}, ids)

	// restartable
	again, _ := collect(t, store)
	require.Equal(t, ids, again)
}

func TestStoreMalformedRecord(t *testing.T) {
	path := writeStore(t,
		oneLine(rawLog(2, 2000)),
		`{"id": 5, "info": {"date": 1500}, "players": "broken"}`,
		"",
		`not json at all`,
		oneLine(rawLog(1, 1000)),
	)

	store, errOpen := gamestream.Open(path)
	require.NoError(t, errOpen)
	require.Equal(t, 4, store.Len())

	ids, failures := collect(t, store)
	require.Equal(t, 2, failures)
	require.Equal(t, []int64{1, 2}, ids)
}

func TestStoreMissingFile(t *testing.T) {
	store, errOpen := gamestream.Open(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, errOpen)
	require.Zero(t, store.Len())

	ids, failures := collect(t, store)
	require.Empty(t, ids)
	require.Zero(t, failures)
}

func TestStoreAppend(t *testing.T) {
	path := writeStore(t, oneLine(rawLog(2, 2000)))

	store, errOpen := gamestream.Open(path)
	require.NoError(t, errOpen)

	require.NoError(t, store.Append([]byte(rawLog(3, 1000))))
	require.NoError(t, store.Append([]byte(rawLog(4, 2000))))
	require.ErrorIs(t, store.Append([]byte(rawLog(3, 5000))), gamestream.ErrDuplicate)
	require.ErrorIs(t, store.Append([]byte(`{"id": 9}`)), gamestream.ErrInvalidRaw)
	require.ErrorIs(t, store.Append([]byte(`{`)), gamestream.ErrInvalidRaw)
	require.True(t, store.Has(4))

	ids, failures := collect(t, store)
	require.Zero(t, failures)
	require.Equal(t, []int64{3, 2, 4}, ids)

	reopened, errReopen := gamestream.Open(path)
	require.NoError(t, errReopen)
	require.Equal(t, 3, reopened.Len())

	reopenedIDs, _ := collect(t, reopened)
	require.Equal(t, ids, reopenedIDs)
}

func TestStoreAppendUnterminated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_logs.json")
	require.NoError(t, os.WriteFile(path, []byte(oneLine(rawLog(1, 1000))), 0o600))

	store, errOpen := gamestream.Open(path)
	require.NoError(t, errOpen)
	require.NoError(t, store.Append([]byte(rawLog(2, 2000))))

	ids, failures := collect(t, store)
	require.Zero(t, failures)
	require.Equal(t, []int64{1, 2}, ids)

	reopened, errReopen := gamestream.Open(path)
	require.NoError(t, errReopen)
	require.True(t, reopened.Has(1))
	require.True(t, reopened.Has(2))

	reopenedIDs, reopenFailures := collect(t, reopened)
	require.Zero(t, reopenFailures)
	require.Equal(t, []int64{1, 2}, reopenedIDs)

	require.NoError(t, reopened.Append([]byte(rawLog(3, 3000))))

	content, errRead := os.ReadFile(path)
	require.NoError(t, errRead)
	require.Equal(t, 3, strings.Count(string(content), "\n"))
}

func TestStoreEarlyStop(t *testing.T) {
	store, errOpen := gamestream.Open(writeStore(t, oneLine(rawLog(1, 1000)), oneLine(rawLog(2, 2000))))
	require.NoError(t, errOpen)

	count := 0
	for range store.Games() {
		count++

		break
	}

	require.Equal(t, 1, count)
}

func TestFromSlice(t *testing.T) {
	logs := []gamelog.GameLog{
		{ID: 1, Info: gamelog.Info{Date: 300}},
		{ID: 2, Info: gamelog.Info{Date: 100}},
		{ID: 3, Info: gamelog.Info{Date: 300}},
		{ID: 4, Info: gamelog.Info{Date: 200}},
	}

	ids, failures := collect(t, gamestream.FromSlice(logs))
	require.Zero(t, failures)
	require.Equal(t, []int64{2, 4, 1, 3}, ids)
	require.Equal(t, int64(1), logs[0].ID)
}
