package inspect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/liveinspect/pkg/model"
)

// When is a hook point of the traversal.
type When int

const (
	// BeforeNode fires before a model node is created for a value.
	BeforeNode When = iota
	// BeforeChildren fires after a container is created, before its members.
	BeforeChildren
	// AfterChildren fires after all members of a container were visited.
	AfterChildren
	// AfterNode fires once the model node is attached to its owner.
	AfterNode
)

func (w When) String() string {
	switch w {
	case BeforeNode:
		return "before_node"
	case BeforeChildren:
		return "before_children"
	case AfterChildren:
		return "after_children"
	case AfterNode:
		return "after_node"
	}
	return fmt.Sprintf("When(%d)", int(w))
}

// Event is passed to extensions.
type Event struct {
	Node *ObjectNode
	// Object is the model node built for Node; nil at BeforeNode.
	Object model.Node
	// Container is the current container: the owner of Object, or Object
	// itself at BeforeChildren and AfterChildren.
	Container model.Container
}

// Extension observes the traversal. It may annotate model nodes but has no
// way to change what is visited.
type Extension interface {
	Handle(when When, ev Event)
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(when When, ev Event)

// Handle calls f.
func (f ExtensionFunc) Handle(when When, ev Event) { f(when, ev) }

// Extensions is an ordered list of extensions, called in order.
type Extensions []Extension

func (e Extensions) dispatch(when When, ev Event) {
	for _, ext := range e {
		ext.Handle(when, ev)
	}
}

// PrivateLabeler labels members named with a leading underscore "private",
// and dunder names "special".
type PrivateLabeler struct{}

// Handle labels the node once it is attached.
func (PrivateLabeler) Handle(when When, ev Event) {
	if when != AfterNode || ev.Object == nil || ev.Container == nil {
		return
	}
	name := ev.Object.Name()
	switch {
	case len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		model.LabelsOf(ev.Object).Add("special")
	case strings.HasPrefix(name, "_"):
		model.LabelsOf(ev.Object).Add("private")
	}
}

// BuiltinExtension returns the built-in extension registered under name.
func BuiltinExtension(name string) (Extension, error) {
	switch name {
	case "private":
		return PrivateLabeler{}, nil
	default:
		return nil, fmt.Errorf("unknown extension %q", name)
	}
}
