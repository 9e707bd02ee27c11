// Package inspect builds a model tree from live values.
//
// The traversal starts at a root module value and walks its members
// depth-first. For each member it decides whether the value is owned by the
// module being inspected (and is expanded in place) or re-exported from
// elsewhere (and is recorded as an Alias). Metadata a value refuses to give
// is simply left out; the only errors are structural ones.
package inspect

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/leapstack-labs/liveinspect/pkg/annotation"
	"github.com/leapstack-labs/liveinspect/pkg/docstrings"
	"github.com/leapstack-labs/liveinspect/pkg/host"
	"github.com/leapstack-labs/liveinspect/pkg/lines"
	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// ErrNotModule is returned when the root value is not a module.
var ErrNotModule = errors.New("root value is not a module")

// DefaultExcludeMembers are never reported as children.
var DefaultExcludeMembers = []string{"__builtins__", "__loader__", "__spec__"}

// DefaultExportSymbol is the member holding a module's export list.
const DefaultExportSymbol = "__all__"

// Options configures a traversal.
type Options struct {
	// Parent is the module the root is attached to, if any.
	Parent *model.Module
	// Extensions are called in order at every hook point.
	Extensions Extensions
	// DocstringParser and DocstringOptions are attached to every docstring.
	DocstringParser  docstrings.Parser
	DocstringOptions map[string]any
	// Lines receives the files reported by host locations.
	Lines *lines.Collection
	// Shims defaults to DefaultShimTable.
	Shims *ShimTable
	// ExcludeMembers defaults to DefaultExcludeMembers.
	ExcludeMembers []string
	// ExportSymbol defaults to DefaultExportSymbol.
	ExportSymbol string
	// Filepath is recorded on the root module.
	Filepath string
	Logger   *slog.Logger
}

// Result is the outcome of one traversal.
type Result struct {
	Module *model.Module
	Index  *model.Index
}

// Inspector runs traversals with fixed options. An Inspector may be reused
// but not shared between goroutines running at the same time.
type Inspector struct {
	opts Options
}

// New creates an Inspector, filling defaults.
func New(opts Options) *Inspector {
	if opts.Shims == nil {
		opts.Shims = DefaultShimTable()
	}
	if opts.ExcludeMembers == nil {
		opts.ExcludeMembers = DefaultExcludeMembers
	}
	if opts.ExportSymbol == "" {
		opts.ExportSymbol = DefaultExportSymbol
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Inspector{opts: opts}
}

// Inspect builds the model of a module value with default options.
func Inspect(value any, name string, opts Options) (*Result, error) {
	return New(opts).Inspect(value, name)
}

// Inspect builds the model of the module value reached as name.
func (in *Inspector) Inspect(value any, name string) (*Result, error) {
	if _, ok := value.(host.Module); !ok {
		return nil, fmt.Errorf("%w: %s (%T)", ErrNotModule, name, value)
	}

	t := &traversal{
		opts:     &in.opts,
		shims:    in.opts.Shims,
		log:      in.opts.Logger.With("root", name),
		expanded: make(map[any]string),
	}

	var outer *frame
	if in.opts.Parent != nil {
		outer = &frame{container: in.opts.Parent, module: in.opts.Parent, hostModule: in.opts.Parent.Path()}
	}
	root := NewObjectNode(value, name, nil, in.opts.ExcludeMembers...)
	node, err := t.visit(root, outer)
	if err != nil {
		return nil, err
	}
	m := node.(*model.Module)
	if in.opts.Filepath != "" && m.Filepath == "" {
		m.Filepath = in.opts.Filepath
	}
	return &Result{Module: m, Index: model.BuildIndex(m)}, nil
}

// frame is the traversal state for one container.
type frame struct {
	container model.Container
	// module is the nearest enclosing model module.
	module *model.Module
	// hostModule is the host's name for the module that owns container.
	hostModule string
	outer      *frame
}

type traversal struct {
	opts  *Options
	shims *ShimTable
	log   *slog.Logger
	// expanded maps expansion keys to the path where the value was first
	// expanded.
	expanded map[any]string
}

// visit dispatches one value and returns the model node attached for it.
func (t *traversal) visit(n *ObjectNode, f *frame) (model.Node, error) {
	t.opts.Extensions.dispatch(BeforeNode, Event{Node: n, Container: f.currentContainer()})

	var (
		obj model.Node
		err error
	)
	switch k := n.Kind(); {
	case k == KindModule:
		obj, err = t.module(n, f)
	case k == KindClass:
		obj, err = t.class(n, f)
	case k.IsFunctionLike():
		obj, err = t.function(n, f)
	case k.IsPropertyLike():
		obj, err = t.property(n, f)
	default:
		obj, err = t.attribute(n, f)
	}
	if err != nil {
		return nil, err
	}

	t.opts.Extensions.dispatch(AfterNode, Event{Node: n, Object: obj, Container: f.currentContainer()})
	return obj, nil
}

func (f *frame) currentContainer() model.Container {
	if f == nil {
		return nil
	}
	return f.container
}

func (t *traversal) module(n *ObjectNode, f *frame) (model.Node, error) {
	hm := n.Obj.(host.Module)
	m, err := model.NewModule(n.Name, f.currentContainer())
	if err != nil {
		return nil, fmt.Errorf("failed to attach module %s: %w", n.Path(), err)
	}
	t.decorate(n, m)

	inner := &frame{container: m, module: m, hostModule: hm.ModuleName(), outer: f}
	if inner.hostModule == "" {
		inner.hostModule = m.Path()
	}
	return m, t.children(n, inner)
}

func (t *traversal) class(n *ObjectNode, f *frame) (model.Node, error) {
	c, err := model.NewClass(n.Name, f.container)
	if err != nil {
		return nil, fmt.Errorf("failed to attach class %s: %w", n.Path(), err)
	}
	t.decorate(n, c)
	if b, ok := n.Obj.(host.Based); ok {
		c.Bases = b.Bases()
	}

	inner := &frame{container: c, module: f.module, hostModule: f.hostModule, outer: f}
	if mod, ok := declaredModule(n.Obj); ok {
		inner.hostModule = mod
	}
	return c, t.children(n, inner)
}

// children populates the container of f with the members of n.
func (t *traversal) children(n *ObjectNode, f *frame) error {
	if key, ok := expansionKey(n); ok {
		t.expanded[key] = f.container.Path()
	}

	t.opts.Extensions.dispatch(BeforeChildren, Event{Node: n, Object: f.container, Container: f.container})
	for _, child := range n.Children() {
		if m, ok := f.container.(*model.Module); ok && child.Name == t.opts.ExportSymbol {
			t.exports(child, m)
			continue
		}
		if err := t.child(child, f); err != nil {
			return err
		}
	}
	t.opts.Extensions.dispatch(AfterChildren, Event{Node: n, Object: f.container, Container: f.container})
	return nil
}

func (t *traversal) child(child *ObjectNode, f *frame) error {
	target, foreign := t.aliasTarget(child, f)
	key, keyed := expansionKey(child)
	if !foreign && keyed {
		if first, seen := t.expanded[key]; seen {
			target, foreign = first, true
		}
	}
	if !foreign {
		obj, err := t.visit(child, f)
		if err != nil {
			return err
		}
		if keyed && !child.Kind().IsContainer() {
			t.expanded[key] = obj.Path()
		}
		return nil
	}

	t.opts.Extensions.dispatch(BeforeNode, Event{Node: child, Container: f.container})
	alias := model.NewAlias(child.Name, target)
	if err := f.container.Set(alias); err != nil {
		return fmt.Errorf("failed to attach alias %s: %w", child.Path(), err)
	}
	t.log.Debug("aliased member", "path", alias.Path(), "target", target)
	t.opts.Extensions.dispatch(AfterNode, Event{Node: child, Object: alias, Container: f.container})
	return nil
}

// exports sets the export list of m. Classes have none, so there the symbol
// stays an ordinary attribute.
func (t *traversal) exports(n *ObjectNode, m *model.Module) {
	s, ok := n.Obj.(host.Strings)
	if !ok {
		t.log.Debug("export list is not a string sequence", "path", n.Path())
		return
	}
	if names, ok := s.Strings(); ok {
		m.Exports = names
	}
}

func (t *traversal) function(n *ObjectNode, f *frame) (model.Node, error) {
	fn := model.NewFunction(n.Name)
	t.decorate(n, fn)
	fn.Labels.Add(functionLabels(n)...)

	if c, ok := n.Unwrapped().(host.Callable); ok {
		fn.Parameters, fn.Returns = t.signature(n, c, f)
	}
	if err := f.container.Set(fn); err != nil {
		return nil, fmt.Errorf("failed to attach function %s: %w", n.Path(), err)
	}
	return fn, nil
}

func (t *traversal) property(n *ObjectNode, f *frame) (model.Node, error) {
	a := model.NewAttribute(n.Name)
	t.decorate(n, a)
	a.Labels.Add("property")
	if n.Kind() == KindCachedProperty {
		a.Labels.Add("cached")
	}
	if c, ok := n.Unwrapped().(host.Callable); ok {
		_, a.Annotation = t.signature(n, c, f)
	}
	if err := f.container.Set(a); err != nil {
		return nil, fmt.Errorf("failed to attach property %s: %w", n.Path(), err)
	}
	return a, nil
}

func (t *traversal) attribute(n *ObjectNode, f *frame) (model.Node, error) {
	a := model.NewAttribute(n.Name)
	value := n.Obj

	switch ia := n.Obj.(type) {
	case host.InstanceAttribute:
		a.Labels.Add("instance")
		value = ia.Value
		a.Annotation = convertAnnotation(ia.Annotation, f.container)
	default:
		if f.container.Kind() == model.KindClass {
			a.Labels.Add("class")
		} else {
			a.Labels.Add("module")
		}
	}
	if value != nil {
		if s, ok := snapshot(value); ok {
			a.Value = &s
		} else {
			t.log.Debug("value snapshot failed", "path", n.Path())
		}
	}
	t.decorate(n, a)

	if err := f.container.Set(a); err != nil {
		return nil, fmt.Errorf("failed to attach attribute %s: %w", n.Path(), err)
	}
	return a, nil
}

func (t *traversal) signature(n *ObjectNode, c host.Callable, f *frame) ([]*model.Parameter, annotation.Expr) {
	sig, err := safeSignature(c)
	if err != nil || sig == nil {
		t.log.Debug("signature unavailable", "path", n.Path(), "error", err)
		return nil, nil
	}
	return convertSignature(sig, f.container)
}

func safeSignature(c host.Callable) (sig *host.Signature, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("signature panicked: %v", r)
		}
	}()
	return c.Signature()
}

// decorate attaches docstring and location metadata.
func (t *traversal) decorate(n *ObjectNode, node model.Node) {
	b := model.BaseOf(node)
	b.Docstring = extractDocstring(n.Obj, t.opts.DocstringParser, t.opts.DocstringOptions)

	loc, ok := host.Unwrap(n.Obj).(host.Located)
	if !ok {
		return
	}
	file, line, end, ok := loc.Location()
	if !ok {
		return
	}
	b.Lineno, b.EndLineno = line, end
	if m, isModule := node.(*model.Module); isModule && m.Filepath == "" {
		m.Filepath = file
	}
	if t.opts.Lines != nil && file != "" && !t.opts.Lines.Has(file) {
		if _, err := t.opts.Lines.Lines(file); err != nil {
			t.log.Debug("source lines unavailable", "file", file, "error", err)
		}
	}
}

func functionLabels(n *ObjectNode) []string {
	var labels []string
	switch n.Kind() {
	case KindStaticMethod:
		labels = append(labels, "static")
	case KindClassMethod:
		labels = append(labels, "class-scoped")
	case KindMethodDescriptor:
		labels = append(labels, "method-descriptor")
	case KindBuiltinMethod, KindBuiltinFunction:
		labels = append(labels, "builtin")
	}
	if fl, ok := n.Unwrapped().(host.Flagged); ok && fl.Flags().Has(host.FlagAsync) {
		labels = append(labels, "async")
	}
	return labels
}

// identity returns a map key for values whose identity can be compared.
type (
	callableKey struct{ id any }
	propertyKey struct{ id any }
)

// expansionKey identifies the live value behind n. Callables are keyed by
// the wrapped callable, so a static method and the function it wraps share
// one expansion. Plain attributes are never keyed.
func expansionKey(n *ObjectNode) (any, bool) {
	k := n.Kind()
	if k.IsContainer() {
		return identity(n.Obj)
	}
	if !k.IsFunctionLike() && !k.IsPropertyLike() {
		return nil, false
	}
	id, ok := identity(n.Unwrapped())
	if !ok {
		return nil, false
	}
	if k.IsPropertyLike() {
		return propertyKey{id}, true
	}
	return callableKey{id}, true
}

func identity(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if id, ok := v.(host.Identified); ok {
		v = id.Identity()
		if v == nil {
			return nil, false
		}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return v, true
	}
	if rv.Comparable() {
		return v, true
	}
	return nil, false
}
