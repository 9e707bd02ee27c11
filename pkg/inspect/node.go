package inspect

import (
	"github.com/leapstack-labs/liveinspect/pkg/host"
)

// ObjectNode wraps a live value with the name it was reached through and
// the node that reported it. It never modifies the value.
type ObjectNode struct {
	Obj    any
	Name   string
	Parent *ObjectNode

	exclude map[string]bool

	kind        Kind
	kindSet     bool
	children    []*ObjectNode
	childrenSet bool
}

// NewObjectNode wraps obj. Members named in exclude are never reported as
// children, here or further down.
func NewObjectNode(obj any, name string, parent *ObjectNode, exclude ...string) *ObjectNode {
	n := &ObjectNode{Obj: obj, Name: name, Parent: parent}
	if parent != nil {
		n.exclude = parent.exclude
	}
	if len(exclude) > 0 {
		n.exclude = make(map[string]bool, len(exclude))
		for _, e := range exclude {
			n.exclude[e] = true
		}
	}
	return n
}

// Kind returns the classification of the wrapped value.
func (n *ObjectNode) Kind() Kind {
	if !n.kindSet {
		n.kind = Classify(n.Obj)
		n.kindSet = true
	}
	return n.kind
}

// Path is the dotted chain of names from the root node.
func (n *ObjectNode) Path() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.Path() + "." + n.Name
}

// Children returns the direct members of a module or class. For classes,
// instance attributes reported by constructors are appended after the
// declared members unless a member with the same name exists.
func (n *ObjectNode) Children() []*ObjectNode {
	if n.childrenSet {
		return n.children
	}
	n.childrenSet = true

	var members []host.Member
	switch v := n.Obj.(type) {
	case host.Module:
		members = v.Members()
	case host.Class:
		members = v.Members()
		members = append(members, instanceMembers(members)...)
	default:
		return nil
	}

	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if n.exclude[m.Name] || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		n.children = append(n.children, NewObjectNode(m.Value, m.Name, n))
	}
	return n.children
}

// Unwrapped returns the value with descriptor wrappers removed.
func (n *ObjectNode) Unwrapped() any {
	return host.Unwrap(n.Obj)
}

// ParentIsClass reports whether the node was reached through a class.
func (n *ObjectNode) ParentIsClass() bool {
	return n.Parent != nil && n.Parent.Kind() == KindClass
}

// Constructor is the member whose instance assignments become instance
// attributes of its class.
const Constructor = "__init__"

func instanceMembers(declared []host.Member) []host.Member {
	var out []host.Member
	for _, m := range declared {
		if m.Name != Constructor {
			continue
		}
		scope, ok := host.Unwrap(m.Value).(host.InstanceScope)
		if !ok {
			continue
		}
		for _, im := range scope.InstanceMembers() {
			if _, wrapped := im.Value.(host.InstanceAttribute); !wrapped {
				im.Value = host.InstanceAttribute{Value: im.Value}
			}
			out = append(out, im)
		}
	}
	return out
}
