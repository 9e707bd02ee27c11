package inspect

import (
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// ShimPair names a parent module and a child module that re-export each
// other's members. A child owned by Child and found in Parent is treated as
// defined in Parent.
type ShimPair struct {
	Parent string `koanf:"parent" json:"parent" yaml:"parent"`
	Child  string `koanf:"child" json:"child" yaml:"child"`
}

// DefaultShimPairs are the platform shims known to form reference cycles.
var DefaultShimPairs = []ShimPair{
	{Parent: "os", Child: "nt"},
	{Parent: "os", Child: "posix"},
	{Parent: "numpy.core._multiarray_umath", Child: "numpy.core.multiarray"},
	{Parent: "pymmcore._pymmcore_swig", Child: "pymmcore.pymmcore_swig"},
}

// ShimTable decides when a foreign owning module must be treated as the
// current one. It holds explicit pairs and an optional naming rule: two
// modules whose last segments differ only by one leading underscore.
type ShimTable struct {
	mu         sync.RWMutex
	pairs      map[ShimPair]bool
	namingRule bool
}

// NewShimTable creates a table with the given pairs.
func NewShimTable(pairs []ShimPair, namingRule bool) *ShimTable {
	t := &ShimTable{pairs: make(map[ShimPair]bool, len(pairs)), namingRule: namingRule}
	for _, p := range pairs {
		t.pairs[p] = true
	}
	return t
}

// DefaultShimTable returns the default pairs with the naming rule enabled.
func DefaultShimTable() *ShimTable {
	return NewShimTable(DefaultShimPairs, true)
}

// Add registers a pair.
func (t *ShimTable) Add(parent, child string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[ShimPair{Parent: parent, Child: child}] = true
}

// Remove unregisters a pair.
func (t *ShimTable) Remove(parent, child string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pairs, ShimPair{Parent: parent, Child: child})
}

// SetNamingRule toggles the underscore naming rule.
func (t *ShimTable) SetNamingRule(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.namingRule = on
}

// Pairs returns the registered pairs sorted by parent then child.
func (t *ShimTable) Pairs() []ShimPair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ShimPair, 0, len(t.pairs))
	for p := range t.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Parent != out[j].Parent {
			return out[i].Parent < out[j].Parent
		}
		return out[i].Child < out[j].Child
	})
	return out
}

// Identical reports whether a member owned by owning, found in parent,
// belongs to parent.
func (t *ShimTable) Identical(parent, owning string) bool {
	if parent == "" || owning == "" {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pairs[ShimPair{Parent: parent, Child: owning}] {
		return true
	}
	if !t.namingRule {
		return false
	}
	// Heuristic: may collapse unrelated modules that happen to share a base name.
	p, o := lastSegment(parent), lastSegment(owning)
	return p == "_"+o || o == "_"+p
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// declaredModule returns the module a value declares as its owner. Wrappers
// are stripped first; a module value owns itself.
func declaredModule(v any) (string, bool) {
	v = host.Unwrap(v)
	if m, ok := v.(host.Module); ok {
		return m.ModuleName(), true
	}
	d, ok := v.(host.Defined)
	if !ok {
		return "", false
	}
	mod, ok := d.DefiningModule()
	if !ok || mod == "" {
		return "", false
	}
	return mod, true
}

// within reports whether path is prefix or below it.
func within(path, prefix string) bool {
	return prefix != "" && (path == prefix || strings.HasPrefix(path, prefix+"."))
}

// aliasTarget decides ownership of child while populating the container of
// f. It returns the alias target path and true when child is foreign.
func (t *traversal) aliasTarget(child *ObjectNode, f *frame) (string, bool) {
	owning, ok := declaredModule(child.Obj)
	if !ok {
		return "", false
	}
	if t.shims.Identical(f.hostModule, owning) {
		return "", false
	}
	if within(owning, f.module.Path()) || within(owning, f.hostModule) {
		return "", false
	}
	if child.Kind() == KindModule {
		return owning, true
	}
	name := child.Name
	if n, ok := host.Unwrap(child.Obj).(host.Named); ok && n.QualifiedName() != "" {
		name = n.QualifiedName()
	}
	return owning + "." + name, true
}
