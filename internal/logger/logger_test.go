package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityToLevel(t *testing.T) {
	cases := []struct {
		sev  string
		want slog.Level
	}{
		{Trace, LevelTrace},
		{Debug, slog.LevelDebug},
		{Info, slog.LevelInfo},
		{Warning, slog.LevelWarn},
		{Error, slog.LevelError},
		{Off, LevelOff},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, severityToLevel(c.sev), "severity %q", c.sev)
	}
}

func TestNewTextHandlerRendersTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelTrace, ReplaceAttr: replaceLevel})
	log := slog.New(h)
	log.Log(context.Background(), LevelTrace, "tracing")

	require.Contains(t, buf.String(), "TRACE")
	require.Contains(t, buf.String(), "tracing")
}

func TestNewAttachesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unixfs.log")
	log := New(Config{Format: "json", FilePath: path})
	log.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "run_id"))
}
