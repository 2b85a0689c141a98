// Package pkgid defines the immutable identity of one package instance:
// category, name, version and revision. Identities are plain values,
// constructed by parsing or by field assignment and never mutated;
// transformations return new values.
package pkgid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"portgraph/internal/pkgver"
)

// Package identifies one package instance. Category and Version are
// optional; a Package with only a Name is a bare (unqualified) atom.
// Revision defaults to 0 and is only meaningful when Version is set.
type Package struct {
	Category string
	Name     string
	Version  string
	Revision int
}

// InvalidPackageError reports a package string that could not be parsed
// into an identity.
type InvalidPackageError struct {
	Input  string
	Reason string
}

func (e *InvalidPackageError) Error() string {
	return fmt.Sprintf("invalid package %q: %s", e.Input, e.Reason)
}

// A package name must not end in a hyphen-digit run, or the version split
// would be ambiguous. Names otherwise allow letters, digits, +, _ and -.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_+][A-Za-z0-9_+-]*$`)

// versionSplitRe finds the "-<version>" tail of a name-version string.
var versionSplitRe = regexp.MustCompile(`-(\d[^-]*(?:-r\d+)?)$`)

// Parse parses a package string into an identity. Accepted forms:
//
//	name
//	category/name
//	category/name-1.2.3
//	category/name-1.2.3-r4
//	name-1.2.3-r4
//
// The version part, when present, must satisfy the version grammar; the
// -r<n> revision is split off into the Revision field.
func Parse(s string) (Package, error) {
	if s == "" {
		return Package{}, &InvalidPackageError{Input: s, Reason: "empty string"}
	}

	var p Package
	rest := s
	if idx := strings.Index(rest, "/"); idx >= 0 {
		p.Category = rest[:idx]
		rest = rest[idx+1:]
		if p.Category == "" {
			return Package{}, &InvalidPackageError{Input: s, Reason: "empty category"}
		}
		if strings.Contains(rest, "/") {
			return Package{}, &InvalidPackageError{Input: s, Reason: "more than one category separator"}
		}
	}

	// Split a trailing version off the name, if one is present.
	if m := versionSplitRe.FindStringSubmatch(rest); m != nil && pkgver.IsValid(m[1]) {
		p.Name = rest[:len(rest)-len(m[0])]
		version, revision, err := splitRevision(m[1])
		if err != nil {
			return Package{}, &InvalidPackageError{Input: s, Reason: err.Error()}
		}
		p.Version = version
		p.Revision = revision
	} else {
		p.Name = rest
	}

	if p.Name == "" || !nameRe.MatchString(p.Name) {
		return Package{}, &InvalidPackageError{Input: s, Reason: "malformed package name"}
	}

	return p, nil
}

// splitRevision separates the -r<n> tail of a valid version string.
func splitRevision(v string) (string, int, error) {
	idx := strings.LastIndex(v, "-r")
	if idx < 0 {
		return v, 0, nil
	}
	rev, err := strconv.Atoi(v[idx+2:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed revision in %q", v)
	}
	return v[:idx], rev, nil
}

// Atom returns the "category/name" form, or just the name when the
// category is absent.
func (p Package) Atom() string {
	if p.Category == "" {
		return p.Name
	}
	return p.Category + "/" + p.Name
}

// NameVersion returns the "name-version" form including any nonzero
// revision. Without a version it is just the name.
func (p Package) NameVersion() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "-" + p.VersionRevision()
}

// VersionRevision returns the version with the "-r<n>" segment appended
// for nonzero revisions. This is the comparable wire form of the version.
func (p Package) VersionRevision() string {
	if p.Revision == 0 {
		return p.Version
	}
	return fmt.Sprintf("%s-r%d", p.Version, p.Revision)
}

// String returns the fully qualified "category/name-version-r<n>" form,
// omitting whichever optional parts are absent.
func (p Package) String() string {
	if p.Category == "" {
		return p.NameVersion()
	}
	return p.Category + "/" + p.NameVersion()
}

// Equal reports whether two identities denote the same package instance.
// Revision 0 and an absent revision are the same thing, which field
// equality already captures since absence is stored as 0.
func (p Package) Equal(other Package) bool {
	return p == other
}

// Compare orders two identities of the same category and name by version
// and then revision. Ordering across different atoms is undefined and
// returns an error. Packages without versions compare equal.
func (p Package) Compare(other Package) (int, error) {
	if p.Category != other.Category || p.Name != other.Name {
		return 0, fmt.Errorf("cannot order %s against %s: different atoms", p.Atom(), other.Atom())
	}
	if p.Version == "" || other.Version == "" {
		if p.Version == other.Version {
			return pkgver.Equal, nil
		}
		return 0, fmt.Errorf("cannot order %s against %s: missing version", p, other)
	}

	c, err := pkgver.Compare(p.Version, other.Version)
	if err != nil || c != pkgver.Equal {
		return c, err
	}

	switch {
	case p.Revision < other.Revision:
		return pkgver.Less, nil
	case p.Revision > other.Revision:
		return pkgver.Greater, nil
	}
	return pkgver.Equal, nil
}

// WithRevision returns a copy of the identity with the given revision.
func (p Package) WithRevision(rev int) Package {
	p.Revision = rev
	return p
}
