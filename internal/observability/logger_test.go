package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "region_id", "MUPL")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "MUPL", line["region_id"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "TEXT").Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warn "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn+2, parseLevel("WARN+2"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewLogger_LevelGate(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, "error", "json")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestRecordMerge(t *testing.T) {
	m := NewMetricsForTesting()
	m.RecordMerge(2, 0, 1, 0, 0, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegionsDropped.WithLabelValues("invalid_score")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegionsDropped.WithLabelValues("duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RegionsDropped.WithLabelValues("truncated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RegionsDropped.WithLabelValues("missing_geometry")))
}
