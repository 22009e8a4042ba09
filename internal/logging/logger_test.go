package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cardiacam/cardiacam/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		entries = append(entries, m)
	}
	return entries
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	logger.Info("loaded samples", "samples", 1000, "span_s", 33.3)
	logger.Warn("irregular sampling", "error", errors.New("gap"), "index", 500)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "loaded samples", entries[0]["message"])
	assert.EqualValues(t, 1000, entries[0]["samples"])

	assert.Equal(t, "warn", entries[1]["level"])
	assert.Equal(t, "gap", entries[1]["error"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, zerolog.InfoLevel)
	child := base.With("stage", "trim")

	child.Info("child")
	base.Info("base")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "trim", entries[0]["stage"])
	_, ok := entries[1]["stage"]
	assert.False(t, ok, "parent logger must not inherit child fields")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRunID(ctx, "run-1")
	ctx = WithRegion(ctx, "forehead")

	Ctx(ctx).Info("unmixed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0]["run_id"])
	assert.Equal(t, "forehead", entries[0]["region"])
	assert.Equal(t, "run-1", RunID(ctx))
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, Global(), FromContext(context.Background()))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestNewFromConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := NewFromConfig(config.LoggingConfig{
		Level:      "debug",
		Format:     "json",
		OutputPath: path,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}
