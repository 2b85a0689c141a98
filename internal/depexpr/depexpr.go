// Package depexpr parses dependency and license specification strings into
// reducible expression trees.
//
// The input language is whitespace-tokenized. "|| (" opens an any-of group
// (alternatives), a bare "(" opens an all-of group, "flag? (" and
// "!flag? (" open groups guarded by a feature flag, and ")" closes the
// innermost open group. Any other token is an atom, opaque to this layer
// beyond an optional caller-supplied validity check.
//
// License specifications use a stricter variant of the same grammar that
// rejects a bare "(". The two grammars are deliberately kept distinct.
//
// Trees are built once and never mutated; Reduce evaluates a tree against
// a flag set any number of times.
package depexpr

import (
	"fmt"
	"strings"
)

// Kind discriminates the expression node variants.
type Kind int

const (
	// KindAtom is a leaf token.
	KindAtom Kind = iota
	// KindAllOf is an ordered group whose children all apply.
	KindAllOf
	// KindAnyOf is a group of alternatives; exactly one applies.
	KindAnyOf
	// KindConditional guards its children with a feature flag test.
	KindConditional
)

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindAllOf:
		return "all-of"
	case KindAnyOf:
		return "any-of"
	case KindConditional:
		return "conditional"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one node of an expression tree. The meaning of the fields
// depends on Kind: Token is set for atoms, Flag and Negate for
// conditionals, Children for the three group kinds.
type Node struct {
	Kind     Kind
	Token    string
	Flag     string
	Negate   bool
	Children []*Node
}

// SyntaxError reports malformed expression text. Token is the offending
// token, empty when the problem is at end of input.
type SyntaxError struct {
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return "syntax error: " + e.Reason
	}
	return fmt.Sprintf("syntax error at %q: %s", e.Token, e.Reason)
}

// InvalidTokenError reports a leaf token rejected by the caller-supplied
// validator.
type InvalidTokenError struct {
	Token string
	Err   error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token %q: %v", e.Token, e.Err)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// TokenValidator decides whether a leaf token is acceptable. A non-nil
// return rejects the token and fails the parse.
type TokenValidator func(token string) error

// Option configures parsing.
type Option func(*parser)

// WithTokenValidator validates every atom against fn during parsing.
func WithTokenValidator(fn TokenValidator) Option {
	return func(p *parser) { p.validate = fn }
}

type parser struct {
	validate   TokenValidator
	bareGroups bool // whether a bare "(" is legal (dependency grammar)
}

// Parse parses dependency specification text, where bare all-of groups
// are allowed. The returned root is an all-of node over the top-level
// elements.
func Parse(text string, opts ...Option) (*Node, error) {
	p := &parser{bareGroups: true}
	for _, opt := range opts {
		opt(p)
	}
	return p.run(text)
}

// ParseLicense parses license specification text. The license grammar is
// a strict variant of the dependency grammar: a bare "(" is a syntax
// error; groups exist only behind "||" or a conditional.
func ParseLicense(text string, opts ...Option) (*Node, error) {
	p := &parser{bareGroups: false}
	for _, opt := range opts {
		opt(p)
	}
	return p.run(text)
}

func (p *parser) run(text string) (*Node, error) {
	root := &Node{Kind: KindAllOf}
	stack := []*Node{root}

	// pending is an any-of or conditional node that has been announced by
	// its introducer token and must be followed by "(".
	var pending *Node

	for _, tok := range strings.Fields(text) {
		cur := stack[len(stack)-1]

		if pending != nil {
			if tok != "(" {
				return nil, &SyntaxError{Token: tok, Reason: fmt.Sprintf("expected \"(\" to open %s group", pending.Kind)}
			}
			cur.Children = append(cur.Children, pending)
			stack = append(stack, pending)
			pending = nil
			continue
		}

		switch {
		case tok == "||":
			if cur.Kind == KindAnyOf {
				return nil, &SyntaxError{Token: tok, Reason: "any-of group nested directly inside any-of group"}
			}
			pending = &Node{Kind: KindAnyOf}

		case tok == "(":
			if !p.bareGroups {
				return nil, &SyntaxError{Token: tok, Reason: "bare group is not allowed in this grammar"}
			}
			child := &Node{Kind: KindAllOf}
			cur.Children = append(cur.Children, child)
			stack = append(stack, child)

		case tok == ")":
			if len(stack) == 1 {
				return nil, &SyntaxError{Token: tok, Reason: "no open group to close"}
			}
			stack = stack[:len(stack)-1]

		case strings.HasSuffix(tok, "?"):
			flag := strings.TrimSuffix(tok, "?")
			negate := strings.HasPrefix(flag, "!")
			flag = strings.TrimPrefix(flag, "!")
			if flag == "" {
				return nil, &SyntaxError{Token: tok, Reason: "conditional with empty flag name"}
			}
			pending = &Node{Kind: KindConditional, Flag: flag, Negate: negate}

		default:
			if p.validate != nil {
				if err := p.validate(tok); err != nil {
					return nil, &InvalidTokenError{Token: tok, Err: err}
				}
			}
			cur.Children = append(cur.Children, &Node{Kind: KindAtom, Token: tok})
		}
	}

	if pending != nil {
		return nil, &SyntaxError{Reason: fmt.Sprintf("%s group introducer at end of input, expected \"(\"", pending.Kind)}
	}
	if len(stack) > 1 {
		return nil, &SyntaxError{Reason: fmt.Sprintf("%d unclosed group(s) at end of input", len(stack)-1)}
	}

	return root, nil
}
