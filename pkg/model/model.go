// Package model holds the structured representation produced by inspection:
// modules and classes (containers), functions, attributes, aliases,
// parameters and docstrings.
//
// Every non-root node has exactly one owner, set when it is inserted into a
// container and never changed afterwards. Paths are derived from the owner
// chain, so they are unique within a tree.
package model

import (
	"errors"
	"fmt"
	"sort"
)

// Kind is the model node kind.
type Kind string

const (
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindAttribute Kind = "attribute"
	KindAlias     Kind = "alias"
)

// ErrReparent is returned when a node that already has an owner is inserted
// into a different container.
var ErrReparent = errors.New("node already has a different owner")

// Node is implemented by every model node.
type Node interface {
	Kind() Kind
	Name() string
	Path() string
	Parent() Container
	base() *Base
}

// Container is a node with ordered members: a Module or a Class.
type Container interface {
	Node
	Members() *Members
	// Set inserts node under its name, keeping the slot of an existing
	// member with the same name.
	Set(node Node) error
	// ResolveName maps a name visible from this container to a full path.
	ResolveName(name string) (string, bool)
}

// Base holds the fields shared by all nodes.
type Base struct {
	name   string
	parent Container

	Lineno    int
	EndLineno int
	Docstring *Docstring
	Labels    Labels
}

func (b *Base) base() *Base { return b }

// Name returns the name the node was declared under.
func (b *Base) Name() string { return b.name }

// Parent returns the owning container, nil for a root module.
func (b *Base) Parent() Container { return b.parent }

// Path returns the dotted path of the node.
func (b *Base) Path() string {
	if b.parent == nil {
		return b.name
	}
	return b.parent.Path() + "." + b.name
}

// BaseOf returns the shared fields of n for modification.
func BaseOf(n Node) *Base { return n.base() }

// LabelsOf returns the label set of n for modification.
func LabelsOf(n Node) *Labels { return &n.base().Labels }

// Labels is a set of node labels.
type Labels map[string]struct{}

// Add inserts labels into the set.
func (l *Labels) Add(names ...string) {
	if *l == nil {
		*l = make(Labels, len(names))
	}
	for _, n := range names {
		(*l)[n] = struct{}{}
	}
}

// Has reports whether name is in the set.
func (l Labels) Has(name string) bool {
	_, ok := l[name]
	return ok
}

// Sorted returns the labels in lexical order.
func (l Labels) Sorted() []string {
	out := make([]string, 0, len(l))
	for n := range l {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Members is an insertion-ordered name to node map.
type Members struct {
	names []string
	nodes map[string]Node
}

// Get returns the member named name.
func (m *Members) Get(name string) (Node, bool) {
	n, ok := m.nodes[name]
	return n, ok
}

// Names returns member names in insertion order.
func (m *Members) Names() []string {
	return append([]string(nil), m.names...)
}

// Nodes returns members in insertion order.
func (m *Members) Nodes() []Node {
	out := make([]Node, len(m.names))
	for i, n := range m.names {
		out[i] = m.nodes[n]
	}
	return out
}

// Len returns the number of members.
func (m *Members) Len() int { return len(m.names) }

func (m *Members) put(node Node) {
	if m.nodes == nil {
		m.nodes = make(map[string]Node)
	}
	name := node.Name()
	if _, exists := m.nodes[name]; !exists {
		m.names = append(m.names, name)
	}
	m.nodes[name] = node
}

type container struct {
	Base
	members Members
}

func (c *container) Members() *Members { return &c.members }

func attach(owner Container, node Node) error {
	b := node.base()
	if b.parent != nil && b.parent != owner {
		return fmt.Errorf("%w: %s is owned by %s, cannot insert into %s",
			ErrReparent, b.name, b.parent.Path(), owner.Path())
	}
	if c, ok := node.(Container); ok && isAncestor(c, owner) {
		return fmt.Errorf("%w: %s would contain itself", ErrReparent, c.Path())
	}
	b.parent = owner
	owner.Members().put(node)
	return nil
}

func isAncestor(candidate, of Container) bool {
	for c := of; c != nil; c = c.Parent() {
		if c == candidate {
			return true
		}
	}
	return false
}

// resolveFrom looks name up in c and its owners, innermost first. Aliases
// resolve to their target; other members to their own path. The root module
// name resolves to itself.
func resolveFrom(c Container, name string) (string, bool) {
	var root Container
	for cur := c; cur != nil; cur = cur.Parent() {
		if n, ok := cur.Members().Get(name); ok {
			if a, isAlias := n.(*Alias); isAlias {
				return a.Target, true
			}
			return n.Path(), true
		}
		root = cur
	}
	if root != nil && root.Name() == name {
		return root.Path(), true
	}
	return "", false
}
