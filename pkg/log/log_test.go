package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/stretchr/testify/require"
)

func TestToSlogLevel(t *testing.T) {
	for _, tc := range []struct {
		level    log.Level
		expected slog.Level
	}{
		{log.Debug, slog.LevelDebug},
		{log.Info, slog.LevelInfo},
		{log.Warn, slog.LevelWarn},
		{log.Error, slog.LevelError},
		{"bogus", slog.LevelError},
	} {
		require.Equal(t, tc.expected, log.ToSlogLevel(tc.level))
	}
}

func TestSetupFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var (
		console = &bytes.Buffer{}
		logPath = filepath.Join(t.TempDir(), "rglstats.log")
	)

	require.NoError(t, os.WriteFile(logPath, []byte("{\"msg\":\"previous run\"}\n"), 0o600))

	closer, errSetup := log.Setup(context.Background(), log.Options{
		Level:   log.Info,
		File:    logPath,
		Console: console,
		Release: "test",
	})
	require.NoError(t, errSetup)

	slog.Info("written to file", log.ErrAttr(errors.New("boom")))
	slog.Debug("below level")
	closer()

	body, errRead := os.ReadFile(logPath)
	require.NoError(t, errRead)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "previous run")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &record))
	require.Equal(t, "written to file", record["msg"])
	require.Equal(t, "boom", record["reason"])
	require.Equal(t, "test", record["release"])

	require.Contains(t, console.String(), "written to file")
	require.NotContains(t, console.String(), "below level")
}

func TestSetupFileError(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	_, errSetup := log.Setup(context.Background(), log.Options{
		File:    filepath.Join(t.TempDir(), "missing", "rglstats.log"),
		Console: &bytes.Buffer{},
	})
	require.ErrorIs(t, errSetup, log.ErrLogFile)
}
