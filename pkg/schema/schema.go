// Package schema declares the recognized sections, keys and value constraints
// of experiment definitions. A Registry is built once at startup and is
// read-only afterwards, so resolution runs can share it without locking.
package schema

import (
	"fmt"
	"math"
)

// SectionKind identifies a configuration sub-section.
type SectionKind int

const (
	Problem SectionKind = iota
	Sampler
	Optimizer
	Model
	TerminalConditions

	// Document scopes issues that concern the top-level structure rather
	// than any one section.
	Document
)

func (k SectionKind) String() string {
	switch k {
	case Problem:
		return "problem"
	case Sampler:
		return "sampler"
	case Optimizer:
		return "optimizer"
	case Model:
		return "model"
	case TerminalConditions:
		return "terminal_conditions"
	case Document:
		return "document"
	default:
		return "unknown"
	}
}

// ValueType is the expected semantic type of a key.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeIntPair // two-element sequence of integers
	TypeIndices // either a two-element integer range or a file path string
	TypeMapping // nested block, checked against a sub-schema
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeIntPair:
		return "pair of integers"
	case TypeIndices:
		return "index range or file path"
	case TypeMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Entry describes one recognized key of a section: its type, whether it is
// required, the default substituted when an optional key is absent, the
// accepted enumeration values, and an optional validity predicate.
type Entry struct {
	Key      string
	Type     ValueType
	Required bool
	Default  interface{} // nil means no default
	Enum     []string
	Check    func(value interface{}) error
}

// Registry holds the section schemas, the per-model sub-schemas and the
// accepted enumeration identifiers. Content is fixed after NewRegistry.
type Registry struct {
	sections map[SectionKind][]Entry
	models   map[string]ModelVariant
	layers   map[string][]Entry
}

// ModelVariant is the sub-schema selected by the model.name value.
type ModelVariant struct {
	Name string
	// RequiredBlocks maps sub-block name to the layer schema it must
	// satisfy ("conv" or "pool").
	RequiredBlocks map[string]string
	// Permissive variants accept sub-blocks beyond the required ones.
	Permissive bool
}

// Lookup returns the schema entries of a section in declaration order.
func (r *Registry) Lookup(kind SectionKind) []Entry {
	return append([]Entry(nil), r.sections[kind]...)
}

// Entry returns the schema entry for a (section, key) pair.
func (r *Registry) Entry(kind SectionKind, key string) (Entry, bool) {
	for _, e := range r.sections[kind] {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// DefaultFor returns the default value for an optional key, or false when the
// key has no default.
func (r *Registry) DefaultFor(kind SectionKind, key string) (interface{}, bool) {
	e, ok := r.Entry(kind, key)
	if !ok || e.Default == nil {
		return nil, false
	}
	return e.Default, true
}

// ModelVariant returns the sub-schema for a model name.
func (r *Registry) ModelVariant(name string) (ModelVariant, bool) {
	v, ok := r.models[name]
	return v, ok
}

// LayerSchema returns the entries of a layer block kind ("conv" or "pool").
func (r *Registry) LayerSchema(kind string) ([]Entry, bool) {
	entries, ok := r.layers[kind]
	if !ok {
		return nil, false
	}
	return append([]Entry(nil), entries...), true
}

// ModelNames returns the accepted model identifiers in registration order.
func (r *Registry) ModelNames() []string {
	return enumOf(r.sections[Model], "name")
}

// SamplerNames returns the accepted sampler identifiers.
func (r *Registry) SamplerNames() []string {
	return enumOf(r.sections[Sampler], "name")
}

// OptimizerNames returns the accepted optimizer identifiers.
func (r *Registry) OptimizerNames() []string {
	return enumOf(r.sections[Optimizer], "name")
}

func enumOf(entries []Entry, key string) []string {
	for _, e := range entries {
		if e.Key == key {
			return append([]string(nil), e.Enum...)
		}
	}
	return nil
}

// Value predicates shared across sections.

func positiveFloat(value interface{}) error {
	f, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("expected a number, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("must be a finite number")
	}
	if f <= 0 {
		return fmt.Errorf("must be positive, got %v", value)
	}
	return nil
}

func nonNegativeInt(value interface{}) error {
	i, ok := value.(int)
	if !ok {
		return fmt.Errorf("expected an integer, got %T", value)
	}
	if i < 0 {
		return fmt.Errorf("must be non-negative, got %d", i)
	}
	return nil
}

func positiveInt(value interface{}) error {
	i, ok := value.(int)
	if !ok {
		return fmt.Errorf("expected an integer, got %T", value)
	}
	if i <= 0 {
		return fmt.Errorf("must be positive, got %d", i)
	}
	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
