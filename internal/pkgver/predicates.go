package pkgver

// Boolean convenience predicates built on Compare. Each validates both
// inputs and propagates *InvalidVersionError.

// GreaterThan reports whether a sorts after b.
func GreaterThan(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c == Greater, err
}

// GreaterEqual reports whether a sorts after or equal to b.
func GreaterEqual(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c != Less, err
}

// LessThan reports whether a sorts before b.
func LessThan(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c == Less, err
}

// LessEqual reports whether a sorts before or equal to b.
func LessEqual(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c != Greater, err
}

// EqualTo reports whether a and b denote the same version.
func EqualTo(a, b string) (bool, error) {
	c, err := Compare(a, b)
	return c == Equal, err
}
