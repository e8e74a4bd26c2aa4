package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func TestTestLoggerCapturesLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message")
	testLogger.Error("error message", fmt.Errorf("boom"), StageKey, "write")

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "boom"))
	assert.True(t, testLogger.ContainsField(StageKey, "write"))
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	testLogger.Debug("hidden debug")
	testLogger.Info("hidden info")
	testLogger.Warn("visible warn")

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.False(t, testLogger.Enabled(context.Background(), LevelInfo))
	assert.True(t, testLogger.Enabled(context.Background(), LevelError))
}

func TestTestLoggerWithSharesBuffer(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	child := testLogger.With(RunIDKey, "run-1", ModelNameKey, "ColumnEncoder")

	child.Info("fit completed", SamplesKey, 3)

	assert.True(t, testLogger.ContainsField(RunIDKey, "run-1"))
	assert.True(t, testLogger.ContainsField(ModelNameKey, "ColumnEncoder"))
	assert.True(t, testLogger.ContainsField(SamplesKey, 3.0))
}

func TestTestLoggerConcurrentWrites(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			testLogger.With(ColumnKey, fmt.Sprintf("c%d", i)).Info("column encoded")
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestTestLoggerProvider(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("Runner").Info("named logger message")

	out := buffer.String()
	assert.Contains(t, out, "provider test message")
	assert.Contains(t, out, `"ml.component":"Runner"`)
}

func TestZerologProviderWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelInfo, &buf)

	logger := provider.GetLoggerWithName("Pipeline").With(RunIDKey, "abc")
	logger.Debug("not emitted")
	logger.Info("prepare completed",
		SamplesKey, 1460,
		ColumnsKey, []string{"Bath", "PorchArea"},
		R2ScoreKey, 0.85,
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "prepare completed", entry["message"])
	assert.Equal(t, "Pipeline", entry[ComponentKey])
	assert.Equal(t, "abc", entry[RunIDKey])
	assert.Equal(t, 1460.0, entry[SamplesKey])
	assert.Equal(t, []interface{}{"Bath", "PorchArea"}, entry[ColumnsKey])
}

func TestZerologProviderLeadingError(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelDebug, &buf)

	provider.GetLogger().Error("write failed", errors.NewValueError("SavePredictions", "disk full"), StageKey, "write")

	out := buf.String()
	assert.Contains(t, out, `"error":"houseprice: SavePredictions: disk full"`)
	assert.Contains(t, out, `"pipeline.stage":"write"`)
}

func TestZerologLoggerEnabled(t *testing.T) {
	provider := NewZerologProvider(LevelWarn, &bytes.Buffer{})
	logger := provider.GetLogger()

	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))

	provider.SetLevel(LevelDebug)
	assert.True(t, provider.GetLogger().Enabled(context.Background(), LevelDebug))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Panics(t, func() { ToLogLevel("loud") })
}

func TestSetupWritesLogFileAndRoutesWarnings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "logs.log")

	var console bytes.Buffer
	closer, err := Setup(Options{Level: "info", File: file, Console: true, ConsoleOut: &console})
	require.NoError(t, err)
	defer func() {
		errors.SetZerologWarnFunc(nil)
		SetProvider(NewZerologProvider(LevelInfo))
	}()

	GetLoggerWithName("Runner").Info("run started", RunIDKey, "r-1")
	errors.Warn(errors.NewEmptyColumnWarning("FillAllRemainingMissing", "PoolQC", 2))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run.id":"r-1"`)
	assert.Contains(t, string(data), `"column":"PoolQC"`)
	assert.Contains(t, console.String(), "run started")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}
