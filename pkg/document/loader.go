package document

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseErrorKind classifies load-time failures.
type ParseErrorKind int

const (
	MalformedSyntax ParseErrorKind = iota
	DuplicateKey
	UndefinedAlias
	CyclicAlias
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedSyntax:
		return "malformed syntax"
	case DuplicateKey:
		return "duplicate key"
	case UndefinedAlias:
		return "undefined alias"
	case CyclicAlias:
		return "cyclic alias"
	default:
		return "parse error"
	}
}

// ParseError reports a load-time failure with its source location and the
// path of the offending key.
type ParseError struct {
	Kind    ParseErrorKind
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Load parses raw experiment text into an alias-free Node tree. Duplicate
// mapping keys, undefined aliases and cyclic anchors fail the load; they are
// never silently tolerated.
func Load(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, classifyYAMLError(err)
	}

	body := &root
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewMapping().Build(), nil
		}
		body = root.Content[0]
	}
	if body.Kind == 0 {
		return NewMapping().Build(), nil
	}

	st := &loadState{
		anchors:  make(map[string]*yaml.Node),
		visiting: make(map[*yaml.Node]bool),
	}
	return st.expand(body, "")
}

// LoadString is a convenience wrapper over Load.
func LoadString(text string) (*Node, error) {
	return Load([]byte(text))
}

// loadState carries the anchor table for a single parse. It is created at the
// start of a load and discarded when the load returns, so concurrent loads
// never share state.
type loadState struct {
	anchors  map[string]*yaml.Node
	visiting map[*yaml.Node]bool
}

func (st *loadState) expand(n *yaml.Node, path string) (*Node, error) {
	if st.visiting[n] {
		return nil, &ParseError{
			Kind:    CyclicAlias,
			Path:    path,
			Line:    n.Line,
			Column:  n.Column,
			Message: fmt.Sprintf("anchor %q refers to itself", n.Anchor),
		}
	}

	if n.Anchor != "" {
		st.anchors[n.Anchor] = n
	}

	switch n.Kind {
	case yaml.AliasNode:
		target, ok := st.anchors[n.Value]
		if !ok {
			target = n.Alias
		}
		if target == nil {
			return nil, &ParseError{
				Kind:    UndefinedAlias,
				Path:    path,
				Line:    n.Line,
				Column:  n.Column,
				Message: fmt.Sprintf("alias %q has no matching anchor", n.Value),
			}
		}
		// Expanding from the anchor's raw node each time yields an
		// independent copy per alias site.
		return st.expand(target, path)

	case yaml.ScalarNode:
		value, err := scalarValue(n)
		if err != nil {
			return nil, &ParseError{
				Kind:    MalformedSyntax,
				Path:    path,
				Line:    n.Line,
				Column:  n.Column,
				Message: err.Error(),
			}
		}
		return &Node{kind: ScalarKind, value: value, line: n.Line, column: n.Column}, nil

	case yaml.SequenceNode:
		st.visiting[n] = true
		defer delete(st.visiting, n)

		out := &Node{kind: SequenceKind, line: n.Line, column: n.Column}
		for i, item := range n.Content {
			child, err := st.expand(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out.seq = append(out.seq, child)
		}
		return out, nil

	case yaml.MappingNode:
		st.visiting[n] = true
		defer delete(st.visiting, n)

		out := &Node{kind: MappingKind, fields: make(map[string]*Node), line: n.Line, column: n.Column}
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valueNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &ParseError{
					Kind:    MalformedSyntax,
					Path:    path,
					Line:    keyNode.Line,
					Column:  keyNode.Column,
					Message: "mapping keys must be scalars",
				}
			}
			key := keyNode.Value
			childPath := joinPath(path, key)
			if _, exists := out.fields[key]; exists {
				return nil, &ParseError{
					Kind:    DuplicateKey,
					Path:    childPath,
					Line:    keyNode.Line,
					Column:  keyNode.Column,
					Message: fmt.Sprintf("key %q appears more than once", key),
				}
			}
			child, err := st.expand(valueNode, childPath)
			if err != nil {
				return nil, err
			}
			out.keys = append(out.keys, key)
			out.fields[key] = child
		}
		return out, nil

	default:
		return nil, &ParseError{
			Kind:    MalformedSyntax,
			Path:    path,
			Line:    n.Line,
			Column:  n.Column,
			Message: fmt.Sprintf("unsupported node kind %d", n.Kind),
		}
	}
}

// scalarValue converts a YAML scalar into its typed Go value.
func scalarValue(n *yaml.Node) (interface{}, error) {
	switch n.Tag {
	case "!!null", "":
		if n.Tag == "" && n.Value != "" {
			return n.Value, nil
		}
		return nil, nil
	case "!!bool":
		return strconv.ParseBool(strings.ToLower(n.Value))
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, err
		}
		return int(i), nil
	case "!!float":
		return strconv.ParseFloat(n.Value, 64)
	case "!!str":
		return n.Value, nil
	default:
		// Timestamps, binary and custom tags pass through as raw text;
		// the schema layer decides whether they are acceptable.
		return n.Value, nil
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// classifyYAMLError maps parser failures into the ParseError taxonomy.
func classifyYAMLError(err error) error {
	msg := err.Error()
	kind := MalformedSyntax
	switch {
	case strings.Contains(msg, "unknown anchor"):
		kind = UndefinedAlias
	case strings.Contains(msg, "contains itself"), strings.Contains(msg, "excessive aliasing"):
		kind = CyclicAlias
	case strings.Contains(msg, "already defined") && strings.Contains(msg, "key"):
		kind = DuplicateKey
	}
	return &ParseError{Kind: kind, Message: msg}
}
