package node

// Set is an ordered collection of node references held by a port.
// Ref-counting is the caller's responsibility: Add takes a reference,
// Clear drops one per node. A Set never owns the Node allocation itself — a
// node is destroyed only once its ref count reaches zero.
type Set struct {
	nodes []*Node
}

// NewSet builds a Set from already-ref'd nodes.
func NewSet(nodes ...*Node) Set {
	return Set{nodes: append([]*Node(nil), nodes...)}
}

// Add appends n and takes a reference on it.
func (s *Set) Add(n *Node) {
	n.Ref()
	s.nodes = append(s.nodes, n)
}

// Clear unrefs every node in the set and empties it. Returns the nodes
// that reached a zero ref count, so callers can destroy them.
func (s *Set) Clear() []*Node {
	var destroyed []*Node
	for _, n := range s.nodes {
		if n.Unref() {
			destroyed = append(destroyed, n)
		}
	}
	s.nodes = nil
	return destroyed
}

// Len reports the number of nodes in the set.
func (s Set) Len() int { return len(s.nodes) }

// Empty reports whether the set holds no nodes.
func (s Set) Empty() bool { return len(s.nodes) == 0 }

// First returns the first node in the set, or nil if empty. Node-set to
// scalar conversions (spec.md §4.1) use the first node's name.
func (s Set) First() *Node {
	if len(s.nodes) == 0 {
		return nil
	}
	return s.nodes[0]
}

// Iterate calls fn for each node in order, stopping early if fn
// returns false. Plug-in code receives sets only through this method
// so it cannot observe or mutate the backing slice directly.
func (s Set) Iterate(fn func(*Node) bool) {
	for _, n := range s.nodes {
		if !fn(n) {
			return
		}
	}
}

// Slice returns a defensive copy, for callers (like the synchronizer)
// that need to range without holding the set open.
func (s Set) Slice() []*Node {
	return append([]*Node(nil), s.nodes...)
}
