// Package batch resolves many experiment documents concurrently, the way a
// grid run resolves every configuration before any training starts.
package batch

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/errors"
	"github.com/trainforge/trainforge/pkg/logging"
	"github.com/trainforge/trainforge/pkg/store"
)

// Document is one named experiment definition to resolve.
type Document struct {
	Name string
	Text string
}

// Result pairs a document with its resolution outcome. Exactly one of
// Config and Err is set.
type Result struct {
	Name   string
	RunID  string
	Config *config.ResolvedConfig
	Err    error
}

// Runner resolves batches of experiment documents with bounded concurrency.
type Runner struct {
	resolver *config.Resolver
	registry *store.Store
	logger   *logging.Logger
	workers  int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner) error

// WithResolver supplies the resolver to run each document through.
func WithResolver(r *config.Resolver) RunnerOption {
	return func(b *Runner) error {
		b.resolver = r
		return nil
	}
}

// WithWorkers bounds the number of documents resolved concurrently.
func WithWorkers(n int) RunnerOption {
	return func(b *Runner) error {
		if n < 1 {
			return errors.New(errors.InvalidInput, "worker count must be at least 1")
		}
		b.workers = n
		return nil
	}
}

// WithStore records every successful resolution in a run registry.
func WithStore(s *store.Store) RunnerOption {
	return func(b *Runner) error {
		b.registry = s
		return nil
	}
}

// WithLogger supplies a custom logger.
func WithLogger(logger *logging.Logger) RunnerOption {
	return func(b *Runner) error {
		b.logger = logger
		return nil
	}
}

// NewRunner creates a Runner. Without options it resolves against the
// built-in schema registry with four workers.
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	b := &Runner{workers: 4}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.resolver == nil {
		r, err := config.NewResolver()
		if err != nil {
			return nil, err
		}
		b.resolver = r
	}
	if b.logger == nil {
		b.logger = logging.GetLogger()
	}
	return b, nil
}

// Run resolves every document and returns one result per document, in input
// order. A failed document never stops the others; its failure is carried in
// its result. Run itself fails only when the whole batch is aborted, such as
// a canceled context.
func (b *Runner) Run(ctx context.Context, docs []Document) ([]Result, error) {
	if err := errors.CheckContext(ctx, "batch resolve"); err != nil {
		return nil, err
	}

	results := make([]Result, len(docs))

	p := pool.New().WithMaxGoroutines(b.workers)
	for i, doc := range docs {
		i, doc := i, doc
		p.Go(func() {
			results[i] = b.runOne(ctx, doc)
		})
	}
	p.Wait()

	if err := errors.CheckContext(ctx, "batch resolve"); err != nil {
		return nil, err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	b.logger.Info(ctx, "resolved batch of %d document(s), %d failed", len(docs), failed)
	return results, nil
}

func (b *Runner) runOne(ctx context.Context, doc Document) Result {
	resolved, err := b.resolver.Resolve(ctx, doc.Text)
	if err != nil {
		b.logger.Warn(ctx, "document %s failed to resolve: %v", doc.Name, err)
		return Result{Name: doc.Name, Err: err}
	}

	if b.registry != nil {
		if err := b.registry.Record(ctx, doc.Name, resolved); err != nil {
			return Result{Name: doc.Name, RunID: resolved.RunID(), Err: err}
		}
	}

	return Result{Name: doc.Name, RunID: resolved.RunID(), Config: resolved}
}
