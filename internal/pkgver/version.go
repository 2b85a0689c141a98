// Package pkgver implements comparison of package version strings as used
// by the package metadata this service ingests.
//
// A version string has the shape:
//
//	numbers(.numbers)* [letter] [_suffix[digits]]* [-r<digits>]
//
// where letter is a single lowercase ASCII letter and suffix is one of
// _alpha, _beta, _pre, _rc, _p. Examples: "1.2.3", "2.0b", "1.4_rc2",
// "9.0.1_p1-r3".
//
// Comparison is a pure function over two version strings. Malformed input
// is always rejected with an *InvalidVersionError before any comparison
// runs; "invalid" is distinguishable from "valid but unequal".
package pkgver

import (
	"fmt"
	"regexp"
	"strings"
)

// Comparison results returned by Compare.
const (
	Less    = -1
	Equal   = 0
	Greater = 1
)

// InvalidVersionError reports a version string that does not match the
// version grammar. It carries the offending string and a reason suitable
// for surfacing to users.
type InvalidVersionError struct {
	Version string
	Reason  string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Version, e.Reason)
}

// suffix kinds in ascending precedence order. A trailing _p raises the
// version relative to its absence; every other trailing suffix lowers it.
var suffixRank = map[string]int{
	"alpha": 0,
	"beta":  1,
	"pre":   2,
	"rc":    3,
	"p":     4,
}

var versionRe = regexp.MustCompile(
	`^(\d+(?:\.\d+)*)([a-z]?)((?:_(?:alpha|beta|pre|rc|p)\d*)*)(?:-r(\d+))?$`)

// parsed is the decomposed form of a valid version string.
type parsed struct {
	numbers  []string // numeric components, as written
	letter   string   // "" or a single lowercase letter
	suffixes []suffixPart
	revision string // "" when absent, digits otherwise
}

type suffixPart struct {
	kind string // alpha, beta, pre, rc, p
	num  string // digits, "" means 0
}

// parse validates and decomposes a version string.
func parse(v string) (*parsed, error) {
	m := versionRe.FindStringSubmatch(v)
	if m == nil {
		return nil, &InvalidVersionError{Version: v, Reason: "does not match version grammar"}
	}

	p := &parsed{
		numbers:  strings.Split(m[1], "."),
		letter:   m[2],
		revision: m[4],
	}

	if m[3] != "" {
		for _, s := range strings.Split(m[3], "_")[1:] {
			kind := strings.TrimRight(s, "0123456789")
			p.suffixes = append(p.suffixes, suffixPart{kind: kind, num: s[len(kind):]})
		}
	}

	return p, nil
}

// IsValid reports whether v matches the version grammar.
func IsValid(v string) bool {
	return versionRe.MatchString(v)
}

// Validate returns an *InvalidVersionError if v does not match the version
// grammar, nil otherwise.
func Validate(v string) error {
	_, err := parse(v)
	return err
}

// Compare compares two version strings, returning Less, Equal or Greater.
// Both inputs are validated first; either failing validation yields an
// *InvalidVersionError. Identical strings short-circuit to Equal.
func Compare(a, b string) (int, error) {
	pa, err := parse(a)
	if err != nil {
		return 0, err
	}
	pb, err := parse(b)
	if err != nil {
		return 0, err
	}
	if a == b {
		return Equal, nil
	}
	return compareParsed(pa, pb), nil
}

// compareParsed applies the ordering rules in sequence; the first
// inequality decides.
func compareParsed(a, b *parsed) int {
	// The leading numeric component always compares as an integer.
	if c := compareInteger(a.numbers[0], b.numbers[0]); c != Equal {
		return c
	}

	// Subsequent components: a component with a leading zero (in either
	// operand) forces lexicographic comparison of both components with
	// trailing zeros stripped. Otherwise integer comparison.
	n := min(len(a.numbers), len(b.numbers))
	for i := 1; i < n; i++ {
		ca, cb := a.numbers[i], b.numbers[i]
		if strings.HasPrefix(ca, "0") || strings.HasPrefix(cb, "0") {
			ta := strings.TrimRight(ca, "0")
			tb := strings.TrimRight(cb, "0")
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
		} else if c := compareInteger(ca, cb); c != Equal {
			return c
		}
	}

	// All shared components tie: the longer sequence is greater.
	if c := compareInt(len(a.numbers), len(b.numbers)); c != Equal {
		return c
	}

	// Trailing letter; absent sorts below any letter.
	if c := strings.Compare(a.letter, b.letter); c != 0 {
		return c
	}

	if c := compareSuffixes(a.suffixes, b.suffixes); c != Equal {
		return c
	}

	return compareInteger(zeroIfEmpty(a.revision), zeroIfEmpty(b.revision))
}

// compareSuffixes compares suffix sequences pairwise, then resolves the
// prefix case: the shorter sequence wins unless the first extra suffix of
// the longer one is _p, which always ranks above its absence.
func compareSuffixes(a, b []suffixPart) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i].kind != b[i].kind {
			return compareInt(suffixRank[a[i].kind], suffixRank[b[i].kind])
		}
		if c := compareInteger(zeroIfEmpty(a[i].num), zeroIfEmpty(b[i].num)); c != Equal {
			return c
		}
	}

	switch {
	case len(a) > n:
		if a[n].kind == "p" {
			return Greater
		}
		return Less
	case len(b) > n:
		if b[n].kind == "p" {
			return Less
		}
		return Greater
	}
	return Equal
}

// compareInteger compares two non-negative decimal digit strings by value.
// Digit strings may exceed the native integer range, so this strips leading
// zeros and compares by length, then lexicographically.
func compareInteger(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := compareInt(len(a), len(b)); c != Equal {
		return c
	}
	return strings.Compare(a, b)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	}
	return Equal
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
