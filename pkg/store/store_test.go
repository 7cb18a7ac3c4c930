package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainforge/trainforge/internal/testutil"
	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/errors"
	"github.com/trainforge/trainforge/pkg/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"),
		WithLogger(logging.NewLogger(logging.Config{Severity: logging.FATAL})))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func resolveSample(t *testing.T) *config.ResolvedConfig {
	t.Helper()
	r, err := config.NewResolver(
		config.WithLogger(logging.NewLogger(logging.Config{Severity: logging.FATAL})))
	require.NoError(t, err)
	resolved, err := r.Resolve(context.Background(), testutil.SampleExperiment)
	require.NoError(t, err)
	return resolved
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	resolved := resolveSample(t)

	require.NoError(t, s.Record(ctx, "mnist-baseline", resolved))

	run, err := s.Get(ctx, resolved.RunID())
	require.NoError(t, err)
	assert.Equal(t, resolved.RunID(), run.ID)
	assert.Equal(t, "mnist-baseline", run.Experiment)
	assert.Equal(t, "SimpleConvNet", run.Model)
	assert.Equal(t, []string{"training", "validation", "testing"}, run.Phases)
	assert.Contains(t, run.Resolved, "MNIST")
	assert.False(t, run.CreatedAt.IsZero())
}

func TestGetUnknownRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestRecordNilConfig(t *testing.T) {
	s := openTestStore(t)

	err := s.Record(context.Background(), "mnist-baseline", nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestRecordDuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	resolved := resolveSample(t)

	require.NoError(t, s.Record(ctx, "mnist-baseline", resolved))
	err := s.Record(ctx, "mnist-baseline", resolved)
	require.Error(t, err)
	assert.Equal(t, errors.StoreFailed, errors.CodeOf(err))
}

func TestListByExperiment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := resolveSample(t)
	second := resolveSample(t)
	require.NoError(t, s.Record(ctx, "mnist-baseline", first))
	require.NoError(t, s.Record(ctx, "mnist-baseline", second))
	require.NoError(t, s.Record(ctx, "other", resolveSample(t)))

	runs, err := s.List(ctx, "mnist-baseline")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.ElementsMatch(t, []string{first.RunID(), second.RunID()}, ids)

	empty, err := s.List(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Record(ctx, "mnist-baseline", resolveSample(t))
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}
