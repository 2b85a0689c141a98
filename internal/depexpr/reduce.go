package depexpr

// FlagSet is the set of enabled feature flags a tree is reduced against.
type FlagSet map[string]bool

// NewFlagSet builds a FlagSet from flag names.
func NewFlagSet(flags ...string) FlagSet {
	fs := make(FlagSet, len(flags))
	for _, f := range flags {
		fs[f] = true
	}
	return fs
}

// Has reports whether the flag is enabled. A nil FlagSet has no flags.
func (fs FlagSet) Has(flag string) bool {
	return fs[flag]
}

// TieBreak chooses one alternative from an any-of group. It receives the
// reduced atom lists of every alternative, in order, and returns the one
// to keep. Returning nil keeps nothing.
type TieBreak func(alternatives [][]string) []string

// ReduceOption configures reduction.
type ReduceOption func(*reducer)

// WithTieBreak supplies the any-of choice function. Without it, the first
// alternative that reduces to a non-empty list is kept.
func WithTieBreak(fn TieBreak) ReduceOption {
	return func(r *reducer) { r.tieBreak = fn }
}

type reducer struct {
	flags    FlagSet
	tieBreak TieBreak
}

// Reduce evaluates the tree against the flag set and returns the
// resulting atoms, flattened, in first-seen order with duplicates
// removed. Conditional groups whose flag test fails contribute nothing;
// any-of groups contribute exactly one alternative.
func (n *Node) Reduce(flags FlagSet, opts ...ReduceOption) []string {
	r := &reducer{flags: flags}
	for _, opt := range opts {
		opt(r)
	}

	atoms := []string{}
	for _, group := range r.reduce(n) {
		atoms = append(atoms, group...)
	}
	return dedup(atoms)
}

// ReduceGroups evaluates the tree like Reduce but keeps all-of groups
// (and the chosen any-of alternative) together instead of flattening:
// each element of the result is one group of atoms, standalone atoms
// forming single-element groups. Callers that feed an any-of choice into
// further processing need the group boundary preserved.
func (n *Node) ReduceGroups(flags FlagSet, opts ...ReduceOption) [][]string {
	r := &reducer{flags: flags}
	for _, opt := range opts {
		opt(r)
	}
	return dedupGroups(r.reduce(n))
}

// reduce returns the node's contribution as a list of atom groups.
func (r *reducer) reduce(n *Node) [][]string {
	switch n.Kind {
	case KindAtom:
		return [][]string{{n.Token}}

	case KindAllOf:
		var groups [][]string
		for _, child := range n.Children {
			if child.Kind == KindAllOf {
				// A nested all-of stays one group.
				if atoms := r.flatten(child); len(atoms) > 0 {
					groups = append(groups, atoms)
				}
				continue
			}
			groups = append(groups, r.reduce(child)...)
		}
		return groups

	case KindConditional:
		if r.flags.Has(n.Flag) == n.Negate {
			return nil
		}
		var groups [][]string
		for _, child := range n.Children {
			groups = append(groups, r.reduce(child)...)
		}
		return groups

	case KindAnyOf:
		alternatives := make([][]string, 0, len(n.Children))
		for _, child := range n.Children {
			alternatives = append(alternatives, r.flatten(child))
		}
		chosen := r.choose(alternatives)
		if len(chosen) == 0 {
			return nil
		}
		// The chosen alternative travels as a single group.
		return [][]string{chosen}
	}
	return nil
}

// flatten reduces a node to a flat atom list.
func (r *reducer) flatten(n *Node) []string {
	var atoms []string
	for _, group := range r.reduce(n) {
		atoms = append(atoms, group...)
	}
	return atoms
}

// choose applies the tie-break, defaulting to the first alternative that
// reduced to anything.
func (r *reducer) choose(alternatives [][]string) []string {
	if r.tieBreak != nil {
		return r.tieBreak(alternatives)
	}
	for _, alt := range alternatives {
		if len(alt) > 0 {
			return alt
		}
	}
	return nil
}

// dedup removes duplicate atoms preserving first-seen order.
func dedup(atoms []string) []string {
	seen := make(map[string]bool, len(atoms))
	out := atoms[:0]
	for _, a := range atoms {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// dedupGroups removes duplicate groups preserving first-seen order.
// Groups compare by their full atom sequence.
func dedupGroups(groups [][]string) [][]string {
	seen := make(map[string]bool, len(groups))
	out := [][]string{}
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		key := ""
		for _, a := range g {
			key += a + "\x00"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, g)
		}
	}
	return out
}
