package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a path does not lead to a node.
var ErrNotFound = errors.New("object not found")

// AliasResolutionError reports an alias whose target is not in the collection.
type AliasResolutionError struct {
	Alias  string
	Target string
}

func (e *AliasResolutionError) Error() string {
	return fmt.Sprintf("could not resolve alias %s pointing at %s", e.Alias, e.Target)
}

// CyclicAliasError reports an alias chain that loops back on itself.
type CyclicAliasError struct {
	Chain []string
}

func (e *CyclicAliasError) Error() string {
	return "cyclic aliases: " + strings.Join(e.Chain, " -> ")
}

// Collection holds several root module trees and looks paths up across them.
// It is safe for concurrent use.
type Collection struct {
	mu    sync.RWMutex
	roots map[string]*Module
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{roots: make(map[string]*Module)}
}

// Add stores a root module, replacing any previous tree of the same name.
func (c *Collection) Add(m *Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots[m.Path()] = m
}

// Module returns the root module named name.
func (c *Collection) Module(name string) (*Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.roots[name]
	return m, ok
}

// Modules returns root modules sorted by name.
func (c *Collection) Modules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Module, 0, len(c.roots))
	for _, m := range c.roots {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// Len returns the number of root modules.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roots)
}

// Get returns the node at path without following a final alias. Aliases in
// the middle of the path are followed.
func (c *Collection) Get(path string) (Node, error) {
	return c.get(path, map[string]bool{})
}

// Resolve returns the node at path, following alias chains to the final
// target.
func (c *Collection) Resolve(path string) (Node, error) {
	seen := map[string]bool{}
	var chain []string
	node, err := c.get(path, seen)
	if err != nil {
		return nil, err
	}
	for {
		a, ok := node.(*Alias)
		if !ok {
			return node, nil
		}
		chain = append(chain, a.Path())
		if seen[a.Path()] {
			return nil, &CyclicAliasError{Chain: chain}
		}
		seen[a.Path()] = true
		next, err := c.get(a.Target, seen)
		if err != nil {
			var cyc *CyclicAliasError
			if errors.As(err, &cyc) {
				return nil, &CyclicAliasError{Chain: append(chain, cyc.Chain...)}
			}
			return nil, &AliasResolutionError{Alias: a.Path(), Target: a.Target}
		}
		node = next
	}
}

func (c *Collection) get(path string, seen map[string]bool) (Node, error) {
	root, rest := c.root(path)
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var node Node = root
	for i, seg := range rest {
		cont, ok := node.(Container)
		if !ok {
			if a, isAlias := node.(*Alias); isAlias {
				if seen[a.Path()] {
					return nil, &CyclicAliasError{Chain: []string{a.Path()}}
				}
				seen[a.Path()] = true
				target, err := c.get(a.Target, seen)
				if err != nil {
					return nil, err
				}
				cont, ok = target.(Container)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s (%s has no members)", ErrNotFound, path, strings.Join(rest[:i], "."))
			}
		}
		member, found := cont.Members().Get(seg)
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		node = member
	}
	return node, nil
}

// root finds the longest root module name that prefixes path.
func (c *Collection) root(path string) (*Module, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	segs := strings.Split(path, ".")
	for n := len(segs); n > 0; n-- {
		if m, ok := c.roots[strings.Join(segs[:n], ".")]; ok {
			return m, segs[n:]
		}
	}
	return nil, nil
}

// Aliases returns every alias in the collection, in root then walk order.
func (c *Collection) Aliases() []*Alias {
	var out []*Alias
	for _, m := range c.Modules() {
		Walk(m, func(n Node) bool {
			if a, ok := n.(*Alias); ok {
				out = append(out, a)
			}
			return true
		})
	}
	return out
}
