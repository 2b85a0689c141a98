// Package relevance maps changed source-code paths to the set of affected
// packages, using a dependency graph's source-path associations and its
// reverse-edge index.
package relevance

import (
	"strings"

	"portgraph/internal/depgraph"
	"portgraph/internal/pkgid"
)

// IsRelevant reports whether any dependency source path is equal to, or an
// ancestor directory of, any changed path. Matching is path-component
// containment, not string prefixing: "foo/bar" covers "foo/bar/baz" but
// not "foo/barbaz".
func IsRelevant(depSourcePaths, changedPaths []string) bool {
	for _, src := range depSourcePaths {
		for _, changed := range changedPaths {
			if covers(src, changed) {
				return true
			}
		}
	}
	return false
}

// covers reports whether dir is the same path as p or an ancestor of it.
func covers(dir, p string) bool {
	dir = strings.TrimSuffix(dir, "/")
	p = strings.TrimSuffix(p, "/")
	if dir == p {
		return true
	}
	return strings.HasPrefix(p, dir+"/")
}

// Options restricts which graph nodes the affected-package computation
// starts from, and whether the reverse closure is included.
type Options struct {
	// ChangedPaths selects nodes whose source paths are relevant to any
	// of these paths. Nil means no path restriction.
	ChangedPaths []string

	// Packages selects nodes by package name (bare name, atom, or full
	// form). Nil means no package restriction.
	Packages []string

	// IncludeReverse additionally unions in every node that transitively
	// depends on a selected node.
	IncludeReverse bool
}

// Dependencies returns the package identities selected from the graph by
// the options, deduplicated in node creation order. With neither path nor
// package restriction every node is selected.
func Dependencies(g *depgraph.Graph, opts Options) ([]pkgid.Package, error) {
	var selected []*depgraph.Node
	if opts.Packages != nil {
		selected = g.GetNodes(opts.Packages)
		if len(selected) == 0 {
			return nil, &depgraph.UnresolvedReferenceError{
				Reference: strings.Join(opts.Packages, ", "),
				Reason:    "no graph node matches the requested packages",
			}
		}
	} else {
		selected = g.Nodes()
	}

	if opts.ChangedPaths != nil {
		relevant := selected[:0]
		for _, node := range selected {
			if IsRelevant(node.SourcePaths, opts.ChangedPaths) {
				relevant = append(relevant, node)
			}
		}
		selected = relevant
	}

	if opts.IncludeReverse {
		selected = append(selected, g.ReverseClosure(selected)...)
	}

	seen := make(map[pkgid.Package]bool, len(selected))
	packages := make([]pkgid.Package, 0, len(selected))
	for _, node := range selected {
		if !seen[node.Package] {
			seen[node.Package] = true
			packages = append(packages, node.Package)
		}
	}
	return packages, nil
}
