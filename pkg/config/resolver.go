package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/trainforge/trainforge/pkg/document"
	"github.com/trainforge/trainforge/pkg/errors"
	"github.com/trainforge/trainforge/pkg/logging"
	"github.com/trainforge/trainforge/pkg/schema"
)

// Resolver turns experiment definition text into ResolvedConfig objects.
// A Resolver is immutable after construction; independent resolution runs
// may execute concurrently since each run owns its own parse state.
type Resolver struct {
	registry  *schema.Registry
	overrides *document.Node
	logger    *logging.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver) error

// WithRegistry supplies a custom schema registry.
func WithRegistry(reg *schema.Registry) ResolverOption {
	return func(r *Resolver) error {
		r.registry = reg
		return nil
	}
}

// WithOverrides supplies an invocation-time override layer, shaped like a
// document: phase blocks plus an optional model block. Override values take
// precedence over everything in the document.
func WithOverrides(node *document.Node) ResolverOption {
	return func(r *Resolver) error {
		r.overrides = node
		return nil
	}
}

// WithOverridesText parses an override layer from YAML text.
func WithOverridesText(text string) ResolverOption {
	return func(r *Resolver) error {
		node, err := document.LoadString(text)
		if err != nil {
			return errors.Wrap(err, errors.ParseFailed, "parsing override layer")
		}
		r.overrides = node
		return nil
	}
}

// WithLogger supplies a custom logger.
func WithLogger(logger *logging.Logger) ResolverOption {
	return func(r *Resolver) error {
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.registry == nil {
		r.registry = schema.NewRegistry()
	}
	if r.logger == nil {
		r.logger = logging.GetLogger()
	}
	return r, nil
}

// Registry returns the schema registry this resolver validates against.
func (r *Resolver) Registry() *schema.Registry { return r.registry }

// Resolve runs the full pipeline on one experiment document: load, merge,
// cross-phase check, validate, build. It returns either a complete
// ResolvedConfig or an error carrying every located issue.
func (r *Resolver) Resolve(ctx context.Context, text string) (*ResolvedConfig, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	if err := errors.CheckContext(ctx, "resolve"); err != nil {
		return nil, err
	}

	root, err := document.LoadString(text)
	if err != nil {
		r.logger.Error(ctx, "failed to load experiment document: %v", err)
		return nil, errors.Wrap(err, errors.ParseFailed, "loading experiment document")
	}

	phases, model, settings, issues := r.partition(ctx, root)
	issues = append(issues, r.checkOverrides(phases, model)...)

	defaults := DefaultsLayer(r.registry)
	merged := make(map[PhaseName]*document.Node, len(phases))
	for _, name := range PhaseNames() {
		node, ok := phases[name]
		if !ok {
			continue
		}
		phaseCtx := logging.WithPhase(ctx, string(name))
		var override *document.Node
		if r.overrides != nil {
			override, _ = r.overrides.Get(string(name))
		}
		m, err := Merge(defaults, node, override)
		if err != nil {
			r.logger.Error(phaseCtx, "merge failed: %v", err)
			return nil, errors.WithFields(
				errors.Wrap(err, errors.MergeConflict, "merging phase layers"),
				errors.Fields{"phase": string(name)})
		}
		r.logger.Debug(phaseCtx, "merged phase layers")
		merged[name] = m
	}

	if model != nil && r.overrides != nil {
		if override, ok := r.overrides.Get("model"); ok {
			model, err = Merge(nil, model, override)
			if err != nil {
				return nil, errors.Wrap(err, errors.MergeConflict, "merging model layers")
			}
		}
	}

	if err := CheckCrossPhase(merged); err != nil {
		r.logger.Error(ctx, "cross-phase check failed: %v", err)
		return nil, errors.Wrap(err, errors.CrossPhaseConflict, "checking phase consistency")
	}

	for _, name := range PhaseNames() {
		if m, ok := merged[name]; ok {
			issues = append(issues, ValidatePhase(name, m, r.registry)...)
		}
	}
	if model == nil {
		issues = append(issues, Issue{
			Section: schema.Model,
			Path:    "model",
			Code:    MissingRequired,
			Message: "document requires a shared model block",
		})
	} else {
		issues = append(issues, ValidateModel(model, r.registry)...)
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			r.logger.Warn(ctx, "validation issue: %s", issue)
		}
		verr := &ValidationError{Issues: issues}
		return nil, errors.Wrap(verr, errors.ValidationFailed,
			fmt.Sprintf("experiment document has %d issue(s)", len(issues)))
	}

	model, err = FillLayerDefaults(model, r.registry)
	if err != nil {
		return nil, errors.Wrap(err, errors.MergeConflict, "filling layer defaults")
	}

	resolved, err := buildResolved(runID, merged, model, settings)
	if err != nil {
		r.logger.Error(ctx, "build failed: %v", err)
		return nil, err
	}

	r.logger.Info(ctx, "resolved experiment with %d phase(s), model %s",
		len(resolved.Phases()), resolved.Model().Name)
	return resolved, nil
}

// ResolveFile reads an experiment document from disk and resolves it.
func (r *Resolver) ResolveFile(ctx context.Context, path string) (*ResolvedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "reading experiment file")
	}
	return r.Resolve(ctx, string(data))
}

// partition splits the document's top-level blocks into phase trees, the
// shared model and settings, reporting unrecognized top-level keys.
func (r *Resolver) partition(ctx context.Context, root *document.Node) (map[PhaseName]*document.Node, *document.Node, *document.Node, []Issue) {
	phases := make(map[PhaseName]*document.Node)
	var model, settings *document.Node
	var issues []Issue

	if root.Kind() != document.MappingKind {
		return phases, nil, nil, []Issue{{
			Section: schema.Document,
			Path:    "",
			Code:    StructuralError,
			Message: fmt.Sprintf("document must be a mapping, got %s", root.Kind()),
		}}
	}

	for _, key := range root.Keys() {
		node, _ := root.Get(key)
		switch key {
		case string(Training), string(Validation), string(Testing):
			phases[PhaseName(key)] = node
		case "model":
			model = node
		case "settings":
			settings = node
		default:
			issues = append(issues, Issue{
				Section: schema.Document,
				Path:    key,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not a recognized top-level block", key),
			})
		}
	}

	r.logger.Debug(ctx, "partitioned document: %d phase(s)", len(phases))
	return phases, model, settings, issues
}

// checkOverrides flags override blocks that cannot take effect, so a typoed
// phase name in an override layer never passes as a silent no-op.
func (r *Resolver) checkOverrides(phases map[PhaseName]*document.Node, model *document.Node) []Issue {
	if r.overrides == nil || r.overrides.Kind() != document.MappingKind {
		return nil
	}
	var issues []Issue
	for _, key := range r.overrides.Keys() {
		switch key {
		case string(Training), string(Validation), string(Testing):
			if _, ok := phases[PhaseName(key)]; !ok {
				issues = append(issues, Issue{
					Section: schema.Document,
					Path:    key,
					Code:    UnknownKey,
					Message: fmt.Sprintf("override targets the %s phase, which the document does not define", key),
				})
			}
		case "model":
			if model == nil {
				issues = append(issues, Issue{
					Section: schema.Model,
					Path:    key,
					Code:    UnknownKey,
					Message: "override targets the model block, which the document does not define",
				})
			}
		default:
			issues = append(issues, Issue{
				Section: schema.Document,
				Path:    key,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not an overridable block", key),
			})
		}
	}
	return issues
}

// IssuesFrom extracts the accumulated validation issues from a Resolve
// error, if it carries any.
func IssuesFrom(err error) ([]Issue, bool) {
	var verr *ValidationError
	if stderrors.As(err, &verr) {
		return verr.Issues, true
	}
	return nil, false
}
