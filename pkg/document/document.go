// Package document parses experiment definition text into alias-free trees of
// untyped nodes. Anchors and aliases are expanded at load time by value copy,
// so no reference semantics leak to later pipeline stages.
package document

import (
	"gopkg.in/yaml.v3"
)

// Kind identifies the shape of a Node.
type Kind int

const (
	ScalarKind Kind = iota
	SequenceKind
	MappingKind
)

func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case SequenceKind:
		return "sequence"
	case MappingKind:
		return "mapping"
	default:
		return "unknown"
	}
}

// Node is an untyped tree node: a scalar, an ordered sequence, or a mapping
// with insertion-ordered keys. Nodes are never mutated after the loader
// returns them; Copy produces an independent tree.
type Node struct {
	kind   Kind
	value  interface{} // scalar payload: string, int, float64, bool or nil
	seq    []*Node
	keys   []string
	fields map[string]*Node
	line   int
	column int
}

// NewScalar creates a scalar node holding the given value.
func NewScalar(value interface{}) *Node {
	return &Node{kind: ScalarKind, value: value}
}

// NewSequence creates a sequence node from the given items.
func NewSequence(items ...*Node) *Node {
	return &Node{kind: SequenceKind, seq: items}
}

// MapBuilder assembles a mapping node. Set replaces an existing key in place,
// preserving first-insertion order for deterministic traversal.
type MapBuilder struct {
	node *Node
}

// NewMapping returns a builder for a mapping node.
func NewMapping() *MapBuilder {
	return &MapBuilder{node: &Node{kind: MappingKind, fields: make(map[string]*Node)}}
}

func (b *MapBuilder) Set(key string, child *Node) *MapBuilder {
	if _, exists := b.node.fields[key]; !exists {
		b.node.keys = append(b.node.keys, key)
	}
	b.node.fields[key] = child
	return b
}

func (b *MapBuilder) Build() *Node {
	return b.node
}

// Kind returns the node shape.
func (n *Node) Kind() Kind { return n.kind }

// Value returns the scalar payload. It is nil for non-scalar nodes and for
// explicit nulls.
func (n *Node) Value() interface{} { return n.value }

// IsNull reports whether the node is a null scalar.
func (n *Node) IsNull() bool { return n.kind == ScalarKind && n.value == nil }

// Len returns the item count of a sequence or the key count of a mapping.
func (n *Node) Len() int {
	switch n.kind {
	case SequenceKind:
		return len(n.seq)
	case MappingKind:
		return len(n.keys)
	default:
		return 0
	}
}

// Index returns the i-th item of a sequence node.
func (n *Node) Index(i int) *Node { return n.seq[i] }

// Keys returns the mapping keys in insertion order.
func (n *Node) Keys() []string {
	return append([]string(nil), n.keys...)
}

// Get returns the child node for a mapping key.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != MappingKind {
		return nil, false
	}
	child, ok := n.fields[key]
	return child, ok
}

// Line returns the 1-based source line the node came from, or zero for nodes
// built programmatically.
func (n *Node) Line() int { return n.line }

// Column returns the 1-based source column of the node.
func (n *Node) Column() int { return n.column }

// StringVal returns the scalar as a string.
func (n *Node) StringVal() (string, bool) {
	s, ok := n.value.(string)
	return s, ok && n.kind == ScalarKind
}

// IntVal returns the scalar as an int.
func (n *Node) IntVal() (int, bool) {
	i, ok := n.value.(int)
	return i, ok && n.kind == ScalarKind
}

// FloatVal returns the scalar as a float64. Integer scalars convert.
func (n *Node) FloatVal() (float64, bool) {
	if n.kind != ScalarKind {
		return 0, false
	}
	switch v := n.value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// BoolVal returns the scalar as a bool.
func (n *Node) BoolVal() (bool, bool) {
	b, ok := n.value.(bool)
	return b, ok && n.kind == ScalarKind
}

// Copy returns a deep copy of the node tree.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	out := &Node{kind: n.kind, value: n.value, line: n.line, column: n.column}
	switch n.kind {
	case SequenceKind:
		out.seq = make([]*Node, len(n.seq))
		for i, item := range n.seq {
			out.seq[i] = item.Copy()
		}
	case MappingKind:
		out.keys = append([]string(nil), n.keys...)
		out.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			out.fields[k] = v.Copy()
		}
	}
	return out
}

// Interface converts the tree into plain Go values: scalars, []interface{}
// and map[string]interface{}. Mapping order is lost; use Keys for ordered
// traversal.
func (n *Node) Interface() interface{} {
	if n == nil {
		return nil
	}
	switch n.kind {
	case ScalarKind:
		return n.value
	case SequenceKind:
		items := make([]interface{}, len(n.seq))
		for i, item := range n.seq {
			items[i] = item.Interface()
		}
		return items
	case MappingKind:
		m := make(map[string]interface{}, len(n.keys))
		for _, k := range n.keys {
			m[k] = n.fields[k].Interface()
		}
		return m
	default:
		return nil
	}
}

// Decode converts the node tree into a typed value by round-tripping through
// YAML, so struct tags on the target apply.
func (n *Node) Decode(out interface{}) error {
	data, err := yaml.Marshal(n.Interface())
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
