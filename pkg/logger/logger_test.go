package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerWritesThroughHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Info("refinement started", "threats", 12)
	log.Debug("cache hit", "cve", "CVE-2024-0001")

	out := buf.String()
	assert.Contains(t, out, "refinement started")
	assert.Contains(t, out, "threats=12")
	assert.Contains(t, out, "cache hit")
}

func TestSlogLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(slog.NewTextHandler(&buf, nil))

	log.With("run_id", "abc").Warn("feed unavailable")

	out := buf.String()
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "feed unavailable")
}

func TestGlobalLoggerSwap(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	mock := NewMockLogger()
	SetGlobalLogger(mock)

	Info("hello from global")
	assert.True(t, mock.HasMessage("INFO", "hello from global"))
}

func TestMockLoggerRecordsLevels(t *testing.T) {
	mock := NewMockLogger()

	mock.Debug("d")
	mock.Info("i")
	mock.Warn("w")
	mock.Error("e")

	require.Len(t, *mock.Messages, 4)
	assert.True(t, mock.HasMessage("DEBUG", "d"))
	assert.True(t, mock.HasMessage("ERROR", "e"))
	assert.False(t, mock.HasMessage("INFO", "missing"))
}

func TestMockLoggerWithSharesMessages(t *testing.T) {
	mock := NewMockLogger()

	child := mock.With("component", "standardizer")
	child.Info("matched")

	assert.True(t, mock.HasMessage("INFO", "matched"), "child messages visible on parent")

	require.Len(t, *mock.Messages, 1)
	assert.Equal(t, []any{"component", "standardizer"}, (*mock.Messages)[0].Args)
}

func TestMockLoggerHasMessageContaining(t *testing.T) {
	mock := NewMockLogger()
	mock.Warn("lookup failed for CVE-2024-0001")

	assert.True(t, mock.HasMessageContaining("WARN", "CVE-2024-0001"))
	assert.False(t, mock.HasMessageContaining("INFO", "CVE-2024-0001"))
}
