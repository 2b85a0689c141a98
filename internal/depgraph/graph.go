// Package depgraph assembles queryable dependency graphs from resolved
// package-manager output.
//
// The input format encodes what is really a DAG as a tree with shared
// subtrees duplicated verbatim, so construction keeps an identity-keyed
// node table and never re-walks a subtree whose node already exists; a
// diamond dependency costs one node, not an exponential re-expansion.
//
// Node identity is the pair (package identity, root kind): the same
// package installed into both the SDK and a target root is two distinct
// nodes with independent dependency sets. A built graph is read-only;
// changed dependency data requires a fresh build.
package depgraph

import (
	"fmt"
	"sort"

	"portgraph/internal/models"
	"portgraph/internal/pkgid"
)

// RootKind distinguishes the two installation locations a package's
// build output can occupy.
type RootKind int

const (
	// TargetRoot is a per-target installation root (the board sysroot).
	TargetRoot RootKind = iota
	// SDKRoot is the host build environment.
	SDKRoot
)

func (k RootKind) String() string {
	if k == SDKRoot {
		return "sdk"
	}
	return "target"
}

// Node is one (package, root kind) vertex with its associated source
// paths and direct dependencies. Nodes are created during Build and not
// modified afterwards.
type Node struct {
	Package     pkgid.Package
	RootKind    RootKind
	SourcePaths []string
	Deps        []*Node
}

// Key returns the node's graph-membership identity.
func (n *Node) Key() NodeKey {
	return NodeKey{Package: n.Package, RootKind: n.RootKind}
}

// NodeKey is the deduplication identity of a node.
type NodeKey struct {
	Package  pkgid.Package
	RootKind RootKind
}

// UnresolvedReferenceError reports a dependency or query naming a package
// (or occurrence root) with no corresponding definition. Construction
// surfaces these instead of silently dropping edges, since a dropped edge
// corrupts affected-package computation invisibly.
type UnresolvedReferenceError struct {
	Reference string
	Reason    string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q: %s", e.Reference, e.Reason)
}

// Graph is a built dependency graph: the node table, the target sysroot
// path, whether an SDK-rooted subgraph is present, and the root packages
// the graph was built to answer. Reverse edges are computed once here at
// construction.
type Graph struct {
	SysrootPath string
	SDKRootPath string
	HasSDK      bool
	Roots       []pkgid.Package

	nodes map[NodeKey]*Node
	order []*Node // insertion order, for deterministic iteration
	rdeps map[NodeKey][]*Node
}

// builder carries the walk state for one Build call.
type builder struct {
	graph       *Graph
	sysrootPath string
	sdkRootPath string
}

// Build assembles a graph for the requested root packages from a
// target-rooted and an SDK-rooted resolved-dependency tree. Either tree
// may be nil or empty. Requested roots are package full names that must
// appear in at least one tree. Node creation order follows the caller's
// iteration order over roots and record maps; order-sensitive consumers
// must sort results.
func Build(requestedRoots []string, target, sdk models.DepdataMap, sysrootPath, sdkRootPath string) (*Graph, error) {
	g := &Graph{
		SysrootPath: sysrootPath,
		SDKRootPath: sdkRootPath,
		nodes:       make(map[NodeKey]*Node),
		rdeps:       make(map[NodeKey][]*Node),
	}
	b := &builder{graph: g, sysrootPath: sysrootPath, sdkRootPath: sdkRootPath}

	seenRoots := make(map[pkgid.Package]bool)
	for _, rootName := range requestedRoots {
		found := false
		for _, tree := range []models.DepdataMap{target, sdk} {
			occurrences, ok := tree[rootName]
			if !ok {
				continue
			}
			found = true
			nodes, err := b.walk(rootName, occurrences, tree)
			if err != nil {
				return nil, err
			}
			for _, n := range nodes {
				if !seenRoots[n.Package] {
					seenRoots[n.Package] = true
					g.Roots = append(g.Roots, n.Package)
				}
			}
		}
		if !found {
			return nil, &UnresolvedReferenceError{
				Reference: rootName,
				Reason:    "requested root has no resolved-dependency entry",
			}
		}
	}

	g.buildReverseEdges()
	return g, nil
}

// walk resolves every occurrence of one package and returns its nodes.
// An already-resolved node is returned as-is without re-walking its
// dependency subtree.
func (b *builder) walk(name string, occurrences []*models.PackageOccurrence, tree models.DepdataMap) ([]*Node, error) {
	pkg, err := pkgid.Parse(name)
	if err != nil {
		return nil, &UnresolvedReferenceError{Reference: name, Reason: err.Error()}
	}

	nodes := make([]*Node, 0, len(occurrences))
	for _, occ := range occurrences {
		kind, err := b.classifyRoot(name, occ.Root)
		if err != nil {
			return nil, err
		}

		key := NodeKey{Package: pkg, RootKind: kind}
		if existing, ok := b.graph.nodes[key]; ok {
			nodes = append(nodes, existing)
			continue
		}

		node := &Node{
			Package:     pkg,
			RootKind:    kind,
			SourcePaths: occ.SourcePaths,
		}
		b.graph.nodes[key] = node
		b.graph.order = append(b.graph.order, node)
		if kind == SDKRoot {
			b.graph.HasSDK = true
		}

		for _, depName := range sortedKeys(occ.Deps) {
			if _, ok := tree[depName]; !ok {
				return nil, &UnresolvedReferenceError{
					Reference: depName,
					Reason:    fmt.Sprintf("dependency of %s has no top-level entry", name),
				}
			}
			depNodes, err := b.walk(depName, occ.Deps[depName], tree)
			if err != nil {
				return nil, err
			}
			node.Deps = append(node.Deps, depNodes...)
		}

		nodes = append(nodes, node)
	}
	return nodes, nil
}

// classifyRoot maps an occurrence root path to a root kind.
func (b *builder) classifyRoot(name, root string) (RootKind, error) {
	switch root {
	case b.sdkRootPath:
		return SDKRoot, nil
	case b.sysrootPath:
		return TargetRoot, nil
	}
	return 0, &UnresolvedReferenceError{
		Reference: name,
		Reason:    fmt.Sprintf("occurrence root %q is neither the SDK root nor the target sysroot", root),
	}
}

// buildReverseEdges inverts the outgoing-edge sets once so reverse
// queries are lookups.
func (g *Graph) buildReverseEdges() {
	for _, node := range g.order {
		for _, dep := range node.Deps {
			g.rdeps[dep.Key()] = append(g.rdeps[dep.Key()], node)
		}
	}
}

// sortedKeys returns the map's keys in sorted order, giving node and
// edge creation a stable order regardless of map iteration.
func sortedKeys(m models.DepdataMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
