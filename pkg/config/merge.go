package config

import (
	"fmt"
	"strings"

	"github.com/trainforge/trainforge/pkg/document"
	"github.com/trainforge/trainforge/pkg/schema"
)

// ConflictError reports a structural type mismatch between merge layers for
// the same key. Mismatches are never silently coerced.
type ConflictError struct {
	Path   string
	Lower  document.Kind
	Higher document.Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge conflict at %s: layer provides %s where lower layer has %s",
		e.Path, e.Higher, e.Lower)
}

// CrossPhaseError reports phases that resolved to different dataset
// identities after merging. Overrides can diverge values the anchors shared,
// so this is verified on resolved values, not on the anchor mechanism.
type CrossPhaseError struct {
	Values map[PhaseName]string
}

func (e *CrossPhaseError) Error() string {
	parts := make([]string, 0, len(e.Values))
	for _, name := range PhaseNames() {
		if v, ok := e.Values[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%q", name, v))
		}
	}
	return "problem.name diverges across phases: " + strings.Join(parts, ", ")
}

// Merge combines the defaults layer, a phase layer and an optional override
// layer into one merged tree. Precedence, highest wins: override > phase >
// defaults. Defaults apply only to sections the upper layers actually
// contain; they never introduce whole sections into a phase.
func Merge(defaults, phase, override *document.Node) (*document.Node, error) {
	merged, err := overlay(phase, override, "")
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, nil
	}
	// A non-mapping phase body is for the validator to report, not a layer
	// conflict.
	if defaults == nil || merged.Kind() != document.MappingKind {
		return merged, nil
	}

	restricted := document.NewMapping()
	for _, key := range merged.Keys() {
		if d, ok := defaults.Get(key); ok {
			restricted.Set(key, d)
		}
	}
	return overlay(restricted.Build(), merged, "")
}

// overlay merges two layers, the second taking precedence. Mappings merge
// per key; scalars and sequences are replaced wholesale.
func overlay(base, over *document.Node, path string) (*document.Node, error) {
	if over == nil {
		return base.Copy(), nil
	}
	if base == nil {
		return over.Copy(), nil
	}
	if base.Kind() != over.Kind() {
		return nil, &ConflictError{Path: path, Lower: base.Kind(), Higher: over.Kind()}
	}
	if base.Kind() != document.MappingKind {
		return over.Copy(), nil
	}

	out := document.NewMapping()
	for _, key := range base.Keys() {
		b, _ := base.Get(key)
		if o, ok := over.Get(key); ok {
			child, err := overlay(b, o, joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out.Set(key, child)
		} else {
			out.Set(key, b.Copy())
		}
	}
	for _, key := range over.Keys() {
		if _, ok := base.Get(key); ok {
			continue
		}
		o, _ := over.Get(key)
		out.Set(key, o.Copy())
	}
	return out.Build(), nil
}

// DefaultsLayer builds the lowest-precedence merge layer from the registry's
// declared defaults, one sub-mapping per section.
func DefaultsLayer(reg *schema.Registry) *document.Node {
	b := document.NewMapping()
	for _, kind := range []schema.SectionKind{
		schema.Problem, schema.Sampler, schema.Optimizer, schema.TerminalConditions,
	} {
		section := document.NewMapping()
		count := 0
		for _, e := range reg.Lookup(kind) {
			if e.Default == nil {
				continue
			}
			section.Set(e.Key, document.NewScalar(e.Default))
			count++
		}
		if count > 0 {
			b.Set(kind.String(), section.Build())
		}
	}
	return b.Build()
}

// FillLayerDefaults returns a copy of the model tree with declared layer
// schema defaults filled into each recognized layer block. Values the
// document set are kept; blocks outside the variant's schema pass through
// untouched.
func FillLayerDefaults(model *document.Node, reg *schema.Registry) (*document.Node, error) {
	if model == nil || model.Kind() != document.MappingKind {
		return model, nil
	}
	nameNode, ok := model.Get("name")
	if !ok {
		return model, nil
	}
	name, ok := nameNode.StringVal()
	if !ok {
		return model, nil
	}
	variant, ok := reg.ModelVariant(name)
	if !ok {
		return model, nil
	}

	out := document.NewMapping()
	for _, key := range model.Keys() {
		node, _ := model.Get(key)
		layerKind, isBlock := variant.RequiredBlocks[key]
		if !isBlock || node.Kind() != document.MappingKind {
			out.Set(key, node.Copy())
			continue
		}
		entries, ok := reg.LayerSchema(layerKind)
		if !ok {
			out.Set(key, node.Copy())
			continue
		}
		defaults := document.NewMapping()
		count := 0
		for _, e := range entries {
			if e.Default == nil {
				continue
			}
			defaults.Set(e.Key, document.NewScalar(e.Default))
			count++
		}
		if count == 0 {
			out.Set(key, node.Copy())
			continue
		}
		filled, err := overlay(defaults.Build(), node, key)
		if err != nil {
			return nil, err
		}
		out.Set(key, filled)
	}
	return out.Build(), nil
}

// CheckCrossPhase verifies that every merged phase resolved to the same
// problem.name identity.
func CheckCrossPhase(phases map[PhaseName]*document.Node) error {
	values := make(map[PhaseName]string, len(phases))
	distinct := make(map[string]bool)
	for _, name := range PhaseNames() {
		node, ok := phases[name]
		if !ok || node == nil {
			continue
		}
		problem, ok := node.Get("problem")
		if !ok {
			continue
		}
		nameNode, ok := problem.Get("name")
		if !ok {
			continue
		}
		if s, ok := nameNode.StringVal(); ok {
			values[name] = s
			distinct[s] = true
		}
	}
	if len(distinct) > 1 {
		return &CrossPhaseError{Values: values}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
