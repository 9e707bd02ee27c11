package model

// Index is a flat path to node map, ordered by a depth-first walk.
type Index struct {
	paths []string
	nodes map[string]Node
}

// BuildIndex walks root depth-first and indexes every node. Aliases are
// indexed but never descended into.
func BuildIndex(root Node) *Index {
	idx := &Index{nodes: make(map[string]Node)}
	Walk(root, func(n Node) bool {
		idx.Add(n)
		return true
	})
	return idx
}

// Add records node under its path. A node already present keeps its slot.
func (i *Index) Add(node Node) {
	if i.nodes == nil {
		i.nodes = make(map[string]Node)
	}
	p := node.Path()
	if _, ok := i.nodes[p]; !ok {
		i.paths = append(i.paths, p)
	}
	i.nodes[p] = node
}

// Get returns the node at path.
func (i *Index) Get(path string) (Node, bool) {
	n, ok := i.nodes[path]
	return n, ok
}

// Paths returns indexed paths in walk order.
func (i *Index) Paths() []string { return append([]string(nil), i.paths...) }

// Nodes returns indexed nodes in walk order.
func (i *Index) Nodes() []Node {
	out := make([]Node, len(i.paths))
	for k, p := range i.paths {
		out[k] = i.nodes[p]
	}
	return out
}

// Len returns the number of indexed nodes.
func (i *Index) Len() int { return len(i.paths) }

// Walk calls fn for node and, depth-first, for all its members. When fn
// returns false the members of that node are skipped.
func Walk(node Node, fn func(Node) bool) {
	if !fn(node) {
		return
	}
	c, ok := node.(Container)
	if !ok {
		return
	}
	for _, m := range c.Members().Nodes() {
		Walk(m, fn)
	}
}
