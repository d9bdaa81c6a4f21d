package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "")
	require.Error(t, err)
}

func TestWrapWritesKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core)).With("Service", "test")

	l.Debug("signature rejected", "reason", "bad hex")
	l.Info("challenge issued")
	l.Error("store failed", "error", "boom")

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "signature rejected", first.Message)
	assert.Equal(t, "test", first.ContextMap()["Service"])
	assert.Equal(t, "bad hex", first.ContextMap()["reason"])
	assert.Equal(t, zap.ErrorLevel, logs.All()[2].Level)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siwb.log")
	l, err := New("info", path)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("visible", "k", "v")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
	assert.NotContains(t, string(data), "hidden")
}
