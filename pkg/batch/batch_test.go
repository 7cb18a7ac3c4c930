package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainforge/trainforge/internal/testutil"
	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/errors"
	"github.com/trainforge/trainforge/pkg/logging"
	"github.com/trainforge/trainforge/pkg/store"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Severity: logging.FATAL})
}

func newTestRunner(t *testing.T, opts ...RunnerOption) *Runner {
	t.Helper()
	resolver, err := config.NewResolver(config.WithLogger(quietLogger()))
	require.NoError(t, err)
	opts = append(opts, WithResolver(resolver), WithLogger(quietLogger()))
	b, err := NewRunner(opts...)
	require.NoError(t, err)
	return b
}

func TestRunPreservesInputOrder(t *testing.T) {
	b := newTestRunner(t, WithWorkers(8))

	docs := make([]Document, 20)
	for i := range docs {
		docs[i] = Document{Name: fmt.Sprintf("exp-%02d", i), Text: testutil.SampleExperiment}
	}

	results, err := b.Run(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	seen := make(map[string]bool, len(docs))
	for i, res := range results {
		assert.Equal(t, docs[i].Name, res.Name)
		require.NoError(t, res.Err)
		require.NotNil(t, res.Config)
		assert.False(t, seen[res.RunID], "run IDs must be unique")
		seen[res.RunID] = true
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	b := newTestRunner(t)

	docs := []Document{
		{Name: "good", Text: testutil.SampleExperiment},
		{Name: "bad", Text: "training: [broken"},
		{Name: "incomplete", Text: "testing:\n  problem:\n    name: MNIST\n    batch_size: 64\nmodel:\n  name: RelationalNetwork\n"},
	}

	results, err := b.Run(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Config)

	require.Error(t, results[1].Err)
	assert.Equal(t, errors.ParseFailed, errors.CodeOf(results[1].Err))
	assert.Nil(t, results[1].Config)

	require.Error(t, results[2].Err)
	assert.Equal(t, errors.IncompleteConfig, errors.CodeOf(results[2].Err))
}

func TestRunRecordsToStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"), store.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer s.Close()

	b := newTestRunner(t, WithStore(s))
	ctx := context.Background()

	results, err := b.Run(ctx, []Document{
		{Name: "exp-a", Text: testutil.SampleExperiment},
		{Name: "exp-b", Text: testutil.SampleExperiment},
	})
	require.NoError(t, err)

	for _, res := range results {
		require.NoError(t, res.Err)
		run, err := s.Get(ctx, res.RunID)
		require.NoError(t, err)
		assert.Equal(t, res.Name, run.Experiment)
	}
}

func TestRunCanceledContext(t *testing.T) {
	b := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx, []Document{{Name: "exp", Text: testutil.SampleExperiment}})
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestRunEmptyBatch(t *testing.T) {
	b := newTestRunner(t)

	results, err := b.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWithWorkersRejectsZero(t *testing.T) {
	_, err := NewRunner(WithWorkers(0))
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}
