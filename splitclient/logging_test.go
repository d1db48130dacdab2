package splitclient

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitLoggerWithNilUsesDefault(t *testing.T) {
	logger := NewSplitLogger(nil)

	require.NotNil(t, logger)
	assert.NotNil(t, logger.logger)
}

func TestSplitLoggerLevels(t *testing.T) {
	tests := []struct {
		name          string
		logFunc       func(*SplitLogger, ...any)
		expectedLevel string
	}{
		{name: "Error", logFunc: (*SplitLogger).Error, expectedLevel: "ERROR"},
		{name: "Warning", logFunc: (*SplitLogger).Warning, expectedLevel: "WARN"},
		{name: "Info", logFunc: (*SplitLogger).Info, expectedLevel: "INFO"},
		{name: "Debug", logFunc: (*SplitLogger).Debug, expectedLevel: "DEBUG"},
		{name: "Verbose maps to Debug", logFunc: (*SplitLogger).Verbose, expectedLevel: "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewSplitLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

			tt.logFunc(logger, "split message")

			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, tt.expectedLevel, record["level"])
			assert.Equal(t, "split message", record["msg"])
			assert.Equal(t, "split-sdk", record["source"])
		})
	}
}

func TestSplitLoggerDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSplitLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Info("fetching splits", "since", 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "fetching splits", record["msg"])
	assert.Equal(t, []any{"since", float64(42)}, record["details"])
}

func TestSplitLoggerEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSplitLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Warning()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "", record["msg"])
}
