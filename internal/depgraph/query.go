package depgraph

import (
	"portgraph/internal/pkgid"
)

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Contains reports whether the graph holds a node for the given package
// identity at the given root kind.
func (g *Graph) Contains(pkg pkgid.Package, kind RootKind) bool {
	_, ok := g.nodes[NodeKey{Package: pkg, RootKind: kind}]
	return ok
}

// Lookup returns the node for the given identity and root kind, or nil.
func (g *Graph) Lookup(pkg pkgid.Package, kind RootKind) *Node {
	return g.nodes[NodeKey{Package: pkg, RootKind: kind}]
}

// GetNodes returns the nodes matching the given package names, optionally
// restricted to root kinds. A name matches a node's bare name, its
// category/name atom, or its full string form. A nil or empty name list
// matches every node; no kinds means every kind. Results are in node
// creation order.
func (g *Graph) GetNodes(names []string, kinds ...RootKind) []*Node {
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var out []*Node
	for _, node := range g.order {
		if len(nameSet) > 0 && !matchesName(nameSet, node.Package) {
			continue
		}
		if len(kinds) > 0 && !containsKind(kinds, node.RootKind) {
			continue
		}
		out = append(out, node)
	}
	return out
}

// ReverseDeps returns the nodes that directly depend on the given node,
// from the reverse-edge index computed at construction.
func (g *Graph) ReverseDeps(pkg pkgid.Package, kind RootKind) []*Node {
	return g.rdeps[NodeKey{Package: pkg, RootKind: kind}]
}

// ReverseClosure returns every node that transitively depends on any of
// the given nodes, excluding the starting nodes themselves unless they
// are reached through another node. Results are deduplicated.
func (g *Graph) ReverseClosure(start []*Node) []*Node {
	seen := make(map[NodeKey]bool, len(start))
	queue := make([]*Node, 0, len(start))
	for _, n := range start {
		seen[n.Key()] = true
		queue = append(queue, n)
	}

	var out []*Node
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, parent := range g.rdeps[node.Key()] {
			if seen[parent.Key()] {
				continue
			}
			seen[parent.Key()] = true
			out = append(out, parent)
			queue = append(queue, parent)
		}
	}
	return out
}

func matchesName(names map[string]bool, pkg pkgid.Package) bool {
	return names[pkg.Name] || names[pkg.Atom()] || names[pkg.String()]
}

func containsKind(kinds []RootKind, kind RootKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
