package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trainforge/trainforge/pkg/document"
	"github.com/trainforge/trainforge/pkg/schema"
)

// IssueCode classifies a validation issue.
type IssueCode int

const (
	MissingRequired IssueCode = iota
	InvalidValue
	UnknownKey
	StructuralError
)

func (c IssueCode) String() string {
	switch c {
	case MissingRequired:
		return "missing required key"
	case InvalidValue:
		return "invalid value"
	case UnknownKey:
		return "unknown key"
	case StructuralError:
		return "structural error"
	default:
		return "issue"
	}
}

// Issue locates one validation problem: the phase, section and key path of
// the offending entry, plus a description. The validator reports all issues
// it finds, not just the first.
type Issue struct {
	Phase   PhaseName
	Section schema.SectionKind
	Path    string
	Code    IssueCode
	Message string
}

func (i Issue) String() string {
	var b strings.Builder
	if i.Phase != "" {
		b.WriteString(string(i.Phase))
		b.WriteString(": ")
	}
	b.WriteString(i.Path)
	b.WriteString(": ")
	b.WriteString(i.Code.String())
	if i.Message != "" {
		b.WriteString(": ")
		b.WriteString(i.Message)
	}
	return b.String()
}

// ValidationError carries the accumulated issues of a failed run.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return fmt.Sprintf("validation failed with %d issue(s): %s", len(e.Issues), strings.Join(msgs, "; "))
}

var phaseSections = map[string]schema.SectionKind{
	"problem":             schema.Problem,
	"sampler":             schema.Sampler,
	"optimizer":           schema.Optimizer,
	"terminal_conditions": schema.TerminalConditions,
}

// ValidatePhase checks one merged phase tree against the registry and
// returns every issue found.
func ValidatePhase(phase PhaseName, merged *document.Node, reg *schema.Registry) []Issue {
	var issues []Issue

	if merged.Kind() != document.MappingKind {
		return []Issue{{
			Phase:   phase,
			Section: schema.Document,
			Path:    string(phase),
			Code:    StructuralError,
			Message: fmt.Sprintf("phase must be a mapping, got %s", merged.Kind()),
		}}
	}

	for _, key := range merged.Keys() {
		kind, known := phaseSections[key]
		if !known {
			issues = append(issues, Issue{
				Phase:   phase,
				Section: schema.Document,
				Path:    key,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not a recognized phase section", key),
			})
			continue
		}
		node, _ := merged.Get(key)
		if node.Kind() != document.MappingKind {
			issues = append(issues, Issue{
				Phase:   phase,
				Section: kind,
				Path:    key,
				Code:    StructuralError,
				Message: fmt.Sprintf("section must be a mapping, got %s", node.Kind()),
			})
			continue
		}
		issues = append(issues, checkSection(phase, kind, node, reg)...)
	}

	if _, ok := merged.Get("problem"); !ok {
		issues = append(issues, Issue{
			Phase:   phase,
			Section: schema.Problem,
			Path:    "problem",
			Code:    MissingRequired,
			Message: "phase requires a problem section",
		})
	}

	issues = append(issues, checkSamplerBounds(phase, merged)...)
	return issues
}

// checkSection verifies required keys, value constraints and key
// recognition for one section.
func checkSection(phase PhaseName, kind schema.SectionKind, node *document.Node, reg *schema.Registry) []Issue {
	var issues []Issue
	section := kind.String()

	for _, entry := range reg.Lookup(kind) {
		if _, ok := node.Get(entry.Key); !ok && entry.Required {
			issues = append(issues, Issue{
				Phase:   phase,
				Section: kind,
				Path:    section + "." + entry.Key,
				Code:    MissingRequired,
				Message: fmt.Sprintf("%s requires %q", section, entry.Key),
			})
		}
	}

	for _, key := range node.Keys() {
		path := section + "." + key
		entry, ok := reg.Entry(kind, key)
		if !ok {
			issues = append(issues, Issue{
				Phase:   phase,
				Section: kind,
				Path:    path,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not a recognized %s key", key, section),
			})
			continue
		}
		child, _ := node.Get(key)
		if msg := checkValue(entry, child); msg != "" {
			issues = append(issues, Issue{
				Phase:   phase,
				Section: kind,
				Path:    path,
				Code:    InvalidValue,
				Message: msg,
			})
		}
	}

	return issues
}

// checkValue validates a node against a schema entry. Returns an empty
// string when the value is acceptable.
func checkValue(entry schema.Entry, node *document.Node) string {
	switch entry.Type {
	case schema.TypeString:
		s, ok := node.StringVal()
		if !ok {
			return fmt.Sprintf("expected %s, got %s", entry.Type, describe(node))
		}
		if len(entry.Enum) > 0 && !contains(entry.Enum, s) {
			return fmt.Sprintf("value %q is not one of the accepted identifiers %v", s, entry.Enum)
		}
	case schema.TypeInt:
		v, ok := node.IntVal()
		if !ok {
			return fmt.Sprintf("expected %s, got %s", entry.Type, describe(node))
		}
		if entry.Check != nil {
			if err := entry.Check(v); err != nil {
				return err.Error()
			}
		}
	case schema.TypeFloat:
		v, ok := node.FloatVal()
		if !ok {
			return fmt.Sprintf("expected %s, got %s", entry.Type, describe(node))
		}
		if entry.Check != nil {
			if err := entry.Check(v); err != nil {
				return err.Error()
			}
		}
	case schema.TypeBool:
		if _, ok := node.BoolVal(); !ok {
			return fmt.Sprintf("expected %s, got %s", entry.Type, describe(node))
		}
	case schema.TypeIntPair:
		return checkIntPair(node)
	case schema.TypeIndices:
		return checkIndices(node)
	}
	return ""
}

func checkIntPair(node *document.Node) string {
	if node.Kind() != document.SequenceKind || node.Len() != 2 {
		return fmt.Sprintf("expected a two-element sequence, got %s", describe(node))
	}
	for i := 0; i < node.Len(); i++ {
		v, ok := node.Index(i).IntVal()
		if !ok {
			return fmt.Sprintf("element %d must be an integer", i)
		}
		if v <= 0 {
			return fmt.Sprintf("element %d must be positive, got %d", i, v)
		}
	}
	return ""
}

// checkIndices accepts either a literal [start, end) integer range or a
// string path to an external index list. Paths pass through unvalidated.
func checkIndices(node *document.Node) string {
	if _, ok := node.StringVal(); ok {
		return ""
	}
	if node.Kind() != document.SequenceKind || node.Len() != 2 {
		return fmt.Sprintf("expected an index range or a file path, got %s", describe(node))
	}
	start, ok := node.Index(0).IntVal()
	if !ok {
		return "range start must be an integer"
	}
	end, ok := node.Index(1).IntVal()
	if !ok {
		return "range end must be an integer"
	}
	if start < 0 {
		return fmt.Sprintf("range start must be non-negative, got %d", start)
	}
	if start >= end {
		return fmt.Sprintf("range start %d must be below range end %d", start, end)
	}
	return ""
}

// checkSamplerBounds verifies a literal sampler range against the declared
// dataset size, when both are present in the same phase.
func checkSamplerBounds(phase PhaseName, merged *document.Node) []Issue {
	sampler, ok := merged.Get("sampler")
	if !ok || sampler.Kind() != document.MappingKind {
		return nil
	}
	indices, ok := sampler.Get("indices")
	if !ok || indices.Kind() != document.SequenceKind || indices.Len() != 2 {
		return nil
	}
	problem, ok := merged.Get("problem")
	if !ok || problem.Kind() != document.MappingKind {
		return nil
	}
	sizeNode, ok := problem.Get("dataset_size")
	if !ok {
		return nil
	}
	size, ok := sizeNode.IntVal()
	if !ok {
		return nil
	}
	end, ok := indices.Index(1).IntVal()
	if !ok {
		return nil
	}
	if end > size {
		return []Issue{{
			Phase:   phase,
			Section: schema.Sampler,
			Path:    "sampler.indices",
			Code:    InvalidValue,
			Message: fmt.Sprintf("range end %d exceeds dataset size %d", end, size),
		}}
	}
	return nil
}

// ValidateModel checks the shared model block against the sub-schema
// selected by its name.
func ValidateModel(model *document.Node, reg *schema.Registry) []Issue {
	if model.Kind() != document.MappingKind {
		return []Issue{{
			Section: schema.Model,
			Path:    "model",
			Code:    StructuralError,
			Message: fmt.Sprintf("model must be a mapping, got %s", model.Kind()),
		}}
	}

	nameNode, ok := model.Get("name")
	if !ok {
		return []Issue{{
			Section: schema.Model,
			Path:    "model.name",
			Code:    MissingRequired,
			Message: "model requires \"name\"",
		}}
	}
	name, ok := nameNode.StringVal()
	if !ok {
		return []Issue{{
			Section: schema.Model,
			Path:    "model.name",
			Code:    InvalidValue,
			Message: fmt.Sprintf("expected string, got %s", describe(nameNode)),
		}}
	}
	variant, ok := reg.ModelVariant(name)
	if !ok {
		return []Issue{{
			Section: schema.Model,
			Path:    "model.name",
			Code:    InvalidValue,
			Message: fmt.Sprintf("value %q is not one of the accepted identifiers %v", name, reg.ModelNames()),
		}}
	}

	var issues []Issue
	for block := range variant.RequiredBlocks {
		if _, ok := model.Get(block); !ok {
			issues = append(issues, Issue{
				Section: schema.Model,
				Path:    "model." + block,
				Code:    MissingRequired,
				Message: fmt.Sprintf("%s requires block %q", variant.Name, block),
			})
		}
	}

	for _, key := range model.Keys() {
		if key == "name" {
			continue
		}
		layerKind, required := variant.RequiredBlocks[key]
		if !required {
			if variant.Permissive {
				continue
			}
			issues = append(issues, Issue{
				Section: schema.Model,
				Path:    "model." + key,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not a block of %s", key, variant.Name),
			})
			continue
		}
		block, _ := model.Get(key)
		issues = append(issues, checkLayerBlock(key, layerKind, block, reg)...)
	}

	return sortIssues(issues)
}

func checkLayerBlock(name, layerKind string, block *document.Node, reg *schema.Registry) []Issue {
	path := "model." + name
	if block.Kind() != document.MappingKind {
		return []Issue{{
			Section: schema.Model,
			Path:    path,
			Code:    StructuralError,
			Message: fmt.Sprintf("layer block must be a mapping, got %s", block.Kind()),
		}}
	}

	entries, ok := reg.LayerSchema(layerKind)
	if !ok {
		return nil
	}

	var issues []Issue
	known := make(map[string]schema.Entry, len(entries))
	for _, e := range entries {
		known[e.Key] = e
		if _, present := block.Get(e.Key); !present && e.Required {
			issues = append(issues, Issue{
				Section: schema.Model,
				Path:    path + "." + e.Key,
				Code:    MissingRequired,
				Message: fmt.Sprintf("layer %q requires %q", name, e.Key),
			})
		}
	}
	for _, key := range block.Keys() {
		entry, recognized := known[key]
		if !recognized {
			issues = append(issues, Issue{
				Section: schema.Model,
				Path:    path + "." + key,
				Code:    UnknownKey,
				Message: fmt.Sprintf("%q is not a recognized %s layer key", key, layerKind),
			})
			continue
		}
		child, _ := block.Get(key)
		if msg := checkValue(entry, child); msg != "" {
			issues = append(issues, Issue{
				Section: schema.Model,
				Path:    path + "." + key,
				Code:    InvalidValue,
				Message: msg,
			})
		}
	}
	return issues
}

func describe(node *document.Node) string {
	if node.Kind() != document.ScalarKind {
		return node.Kind().String()
	}
	if node.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%T value %v", node.Value(), node.Value())
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// sortIssues orders issues by path so map-driven checks stay deterministic.
func sortIssues(issues []Issue) []Issue {
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues
}
