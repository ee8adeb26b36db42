package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeKind is the shape of one configuration tree node.
type NodeKind int

const (
	KindMap NodeKind = iota
	KindSequence
	KindScalar
)

func (k NodeKind) String() string {
	switch k {
	case KindMap:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindScalar:
		return "scalar"
	}
	return "unknown"
}

// Node is a tagged variant over the three shapes a YAML document can
// take here. Mappings keep their key declaration order, which downstream
// consumers rely on (generic encoding order, option application order).
type Node struct {
	Kind NodeKind

	// Scalar state. IsString distinguishes quoted/string scalars, the
	// only ones subject to placeholder substitution.
	Value    string
	IsString bool

	// Sequence state.
	Items []*Node

	// Mapping state.
	keys     []string
	children map[string]*Node
}

func newMap() *Node {
	return &Node{Kind: KindMap, children: make(map[string]*Node)}
}

func newScalar(value string, isString bool) *Node {
	return &Node{Kind: KindScalar, Value: value, IsString: isString}
}

// Keys returns the mapping keys in declaration order.
func (n *Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Get returns the child for key, or nil when absent or when n is not a
// mapping.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	return n.children[key]
}

// Set inserts or replaces a child, appending the key on first insert.
func (n *Node) Set(key string, child *Node) {
	if _, ok := n.children[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Delete removes a key from a mapping.
func (n *Node) Delete(key string) {
	if n == nil || n.Kind != KindMap {
		return
	}
	if _, ok := n.children[key]; !ok {
		return
	}
	delete(n.children, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			break
		}
	}
}

// Scalar returns the scalar text of the child at key, or "" when the
// child is absent or not a scalar.
func (n *Node) Scalar(key string) string {
	c := n.Get(key)
	if c == nil || c.Kind != KindScalar {
		return ""
	}
	return c.Value
}

// Lookup walks a dotted path of mapping keys.
func (n *Node) Lookup(path ...string) *Node {
	cur := n
	for _, key := range path {
		cur = cur.Get(key)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Clone deep-copies a node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindScalar:
		return &Node{Kind: KindScalar, Value: n.Value, IsString: n.IsString}
	case KindSequence:
		items := make([]*Node, len(n.Items))
		for i, it := range n.Items {
			items[i] = it.Clone()
		}
		return &Node{Kind: KindSequence, Items: items}
	default:
		m := newMap()
		for _, k := range n.keys {
			m.Set(k, n.children[k].Clone())
		}
		return m
	}
}

// fromYAML converts a parsed yaml.Node into the tagged representation,
// resolving aliases and unwrapping the document node.
func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return newMap(), nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.ScalarNode:
		return newScalar(y.Value, y.Tag == "!!str" || y.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0), nil
	case yaml.SequenceNode:
		seq := &Node{Kind: KindSequence}
		for _, item := range y.Content {
			child, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, child)
		}
		return seq, nil
	case yaml.MappingNode:
		m := newMap()
		for i := 0; i+1 < len(y.Content); i += 2 {
			keyNode := y.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("non-scalar mapping key at line %d", keyNode.Line)
			}
			child, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, child)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported YAML node kind %d", y.Kind)
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// walkScalars visits every scalar in the tree, depth first, passing the
// dotted key path of each.
func (n *Node) walkScalars(path string, visit func(path string, scalar *Node)) {
	switch n.Kind {
	case KindScalar:
		visit(path, n)
	case KindSequence:
		for i, item := range n.Items {
			item.walkScalars(fmt.Sprintf("%s[%d]", path, i), visit)
		}
	case KindMap:
		for _, k := range n.keys {
			n.children[k].walkScalars(joinPath(path, k), visit)
		}
	}
}

// containsKey reports whether key occurs anywhere in the tree. Used to
// assert the resolved-tree invariant that no inherits key survives.
func (n *Node) containsKey(key string) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindMap:
		if _, ok := n.children[key]; ok {
			return true
		}
		for _, k := range n.keys {
			if n.children[k].containsKey(key) {
				return true
			}
		}
	case KindSequence:
		for _, item := range n.Items {
			if item.containsKey(key) {
				return true
			}
		}
	}
	return false
}

// StringMap flattens a mapping of scalars into ordered key/value pairs.
func (n *Node) StringMap() []KV {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	out := make([]KV, 0, len(n.keys))
	for _, k := range n.keys {
		c := n.children[k]
		if c.Kind == KindScalar {
			out = append(out, KV{Key: k, Value: c.Value})
		}
	}
	return out
}

// KV is an ordered key/value pair from a flat string-to-string mapping.
type KV struct {
	Key   string
	Value string
}

func (n *Node) String() string {
	var b strings.Builder
	n.describe(&b)
	return b.String()
}

func (n *Node) describe(b *strings.Builder) {
	switch n.Kind {
	case KindScalar:
		b.WriteString(n.Value)
	case KindSequence:
		b.WriteString("[")
		for i, item := range n.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.describe(b)
		}
		b.WriteString("]")
	case KindMap:
		b.WriteString("{")
		for i, k := range n.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			n.children[k].describe(b)
		}
		b.WriteString("}")
	}
}
