package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger records every entry as one JSON line in memory. Loggers
// derived through With share the buffer and its lock, so stages logging from
// several goroutines can be inspected safely.
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  Level
	fields map[string]any
}

// NewTestLogger returns a TestLogger capturing entries at level and above,
// and the buffer it writes to.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	p := pipeline.New(schema.Default(), pipeline.WithLogger(logger))
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  level,
		fields: map[string]any{},
	}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.log(LevelError, msg, fields) }

// With returns a logger sharing the buffer with fields added to every entry.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	addPairs(merged, fields)
	return &TestLogger{mu: t.mu, buffer: t.buffer, level: t.level, fields: merged}
}

// Enabled implements Logger.Enabled.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) log(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{"level": level.String(), "message": msg}
	for k, v := range t.fields {
		entry[k] = v
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			entry["error"] = err.Error()
			fields = fields[1:]
		}
	}
	addPairs(entry, fields)

	line, err := json.Marshal(entry)
	if err != nil {
		// NaN scores and similar values are not valid JSON
		line, _ = json.Marshal(map[string]any{
			"level":   level.String(),
			"message": msg,
			"marshal": err.Error(),
		})
	}
	t.mu.Lock()
	t.buffer.Write(line)
	t.buffer.WriteByte('\n')
	t.mu.Unlock()
}

func addPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// GetBuffer returns the buffer entries are written to.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return t.buffer
}

// String returns everything captured so far.
func (t *TestLogger) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.String()
}

// GetLogEntries parses the captured lines in write order.
func (t *TestLogger) GetLogEntries() ([]map[string]any, error) {
	var entries []map[string]any
	sc := bufio.NewScanner(strings.NewReader(t.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// ContainsMessage reports whether any captured output contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.String(), message)
}

// ContainsField reports whether an entry has key set to value. Numbers
// decode as float64.
//
//	logger.ContainsField(log.StageKey, "encode")
func (t *TestLogger) ContainsField(key string, value any) bool {
	return len(t.EntriesWith(key, value)) > 0
}

// EntriesWith returns the entries whose key equals value.
func (t *TestLogger) EntriesWith(key string, value any) []map[string]any {
	entries, err := t.GetLogEntries()
	if err != nil {
		return nil
	}
	var out []map[string]any
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			out = append(out, e)
		}
	}
	return out
}

// Stages returns the pipeline.stage values in the order they were logged.
func (t *TestLogger) Stages() []string {
	entries, err := t.GetLogEntries()
	if err != nil {
		return nil
	}
	var stages []string
	for _, e := range entries {
		if s, ok := e[StageKey].(string); ok {
			stages = append(stages, s)
		}
	}
	return stages
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Reset()
}

// TestLoggerProvider hands out TestLoggers sharing one buffer.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider returns a provider capturing at level and its buffer.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buffer
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

// GetLoggerWithName tags entries with the component name.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

// SetLevel changes the level of loggers handed out afterwards.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.level = level
}

// GetBuffer returns the shared buffer.
func (p *TestLoggerProvider) GetBuffer() *bytes.Buffer {
	return p.logger.buffer
}
