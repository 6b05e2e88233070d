package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xgate/pkg/context/xctx"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer) LoggerWithLevel {
	t.Helper()
	logger, cleanup, err := New().SetOutput(buf).SetFormat("json").SetLevel(LevelDebug).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	return m
}

func TestLogger_JSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf)

	logger.Info(context.Background(), "policy evaluated", slog.String("outcome", "apply"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "policy evaluated", m["msg"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "apply", m["outcome"])
}

func TestLogger_EnrichFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf)

	ctx, err := xctx.WithRequestID(context.Background(), "req-42")
	require.NoError(t, err)
	logger.Warn(ctx, "rate limit exceeded")

	m := decodeLine(t, &buf)
	assert.Equal(t, "req-42", m[xctx.KeyRequestID])
}

func TestLogger_DynamicLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf)

	logger.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, logger.GetLevel())
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))

	logger.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	// 派生 logger 共享级别
	child := logger.With(slog.String("policy", "rate-limiting"))
	logger.SetLevel(LevelDebug)
	child.Debug(context.Background(), "kept")
	m := decodeLine(t, &buf)
	assert.Equal(t, "rate-limiting", m["policy"])
}

func TestLogger_ErrAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(t, &buf)

	logger.Error(context.Background(), "backend failed", Err(errors.New("connection refused")), Err(nil))
	m := decodeLine(t, &buf)
	assert.Equal(t, "connection refused", m[KeyError])
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := New().SetFormat("xml").Build()
	assert.Error(t, err)

	_, _, err = New().SetLevelString("verbose").Build()
	assert.Error(t, err)

	_, _, err = New().SetRotation("  ").Build()
	assert.Error(t, err)
}

func TestBuilder_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	logger, cleanup, err := New().SetRotation(path, WithMaxSize(1), WithMaxBackups(1), WithMaxAge(1), WithCompress(false)).Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "hello")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, "WARN", l.String())
}

func TestDiscard(t *testing.T) {
	logger := OrDiscard(nil)
	assert.NotPanics(t, func() {
		//nolint:staticcheck // nil context 应被容忍
		logger.Error(nil, "nothing")
	})
	assert.Zero(t, ErrorCount(logger))
}
