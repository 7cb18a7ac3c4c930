package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput collects entries for assertions.
type captureOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (c *captureOutput) Write(e LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureOutput) Sync() error  { return nil }
func (c *captureOutput) Close() error { return nil }

func (c *captureOutput) all() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

func TestLoggerSeverityFiltering(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: WARN, Outputs: []Output{out}})

	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped too")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept as well")

	entries := out.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, ERROR, entries[1].Severity)
}

func TestLoggerContextFields(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	ctx := WithPhase(WithRunID(context.Background(), "run-42"), "training")
	logger.Info(ctx, "resolving %s", "problem")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].RunID)
	assert.Equal(t, "training", entries[0].Phase)
	assert.Equal(t, "resolving problem", entries[0].Message)
}

func TestLoggerDefaultFields(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{
		Severity:      DEBUG,
		Outputs:       []Output{out},
		DefaultFields: map[string]interface{}{"component": "resolver"},
	})

	logger.Info(context.Background(), "hello")

	entries := out.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "resolver", entries[0].Fields["component"])
}

func TestGetAndSetLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	custom := NewLogger(Config{Severity: ERROR})
	SetLogger(custom)
	assert.Same(t, custom, GetLogger())
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, DEBUG, ParseSeverity("DEBUG"))
	assert.Equal(t, FATAL, ParseSeverity("FATAL"))
	assert.Equal(t, INFO, ParseSeverity("not-a-level"))
}

func TestFormatFieldsDeterministic(t *testing.T) {
	fields := map[string]interface{}{"b": 2, "a": 1, "c": 3}
	first := formatFields(fields)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, formatFields(fields))
	}
	assert.Equal(t, "a=1 b=2 c=3 ", first)
}
