package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Marker is a parsed environment marker: a boolean predicate over target
// environment attributes, e.g.
//
//	python_version >= "3.9" and sys_platform != "win32"
//
// A requirement whose marker evaluates to false for the target environment
// contributes nothing to resolution.
type Marker struct {
	expr   markerExpr
	source string
}

type markerExpr interface {
	eval(env TargetEnvironment) bool
}

type markerOr struct{ left, right markerExpr }
type markerAnd struct{ left, right markerExpr }

type markerCmp struct {
	variable string
	op       string
	value    string
}

func (m markerOr) eval(env TargetEnvironment) bool  { return m.left.eval(env) || m.right.eval(env) }
func (m markerAnd) eval(env TargetEnvironment) bool { return m.left.eval(env) && m.right.eval(env) }

func (m markerCmp) eval(env TargetEnvironment) bool {
	actual := env.MarkerValue(m.variable)

	// Version-valued variables compare as versions, the rest as strings.
	if m.variable == "python_version" || m.variable == "python_full_version" {
		av, errA := ParseVersion(actual)
		bv, errB := ParseVersion(m.value)
		if errA == nil && errB == nil {
			return cmpSatisfies(av.Compare(bv), m.op)
		}
	}
	return cmpSatisfies(strings.Compare(actual, m.value), m.op)
}

func cmpSatisfies(c int, op string) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	default:
		return false
	}
}

// ParseMarker parses a marker expression. The empty string parses to a
// marker that is always true.
func ParseMarker(s string) (Marker, error) {
	src := strings.TrimSpace(s)
	if src == "" {
		return Marker{source: ""}, nil
	}
	p := &markerParser{input: src}
	expr, err := p.parseOr()
	if err != nil {
		return Marker{}, zerr.With(zerr.Wrap(err, ErrInvalidMarker.Error()), "marker", s)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Marker{}, zerr.With(ErrInvalidMarker, "marker", s)
	}
	return Marker{expr: expr, source: src}, nil
}

// Evaluate reports whether the marker holds for the environment. The zero
// Marker always holds.
func (m Marker) Evaluate(env TargetEnvironment) bool {
	if m.expr == nil {
		return true
	}
	return m.expr.eval(env)
}

// IsZero reports whether the marker is the always-true empty marker.
func (m Marker) IsZero() bool { return m.expr == nil }

// String returns the original marker source.
func (m Marker) String() string { return m.source }

// markerParser is a small recursive-descent parser over the marker grammar:
//
//	or    := and ("or" and)*
//	and   := atom ("and" atom)*
//	atom  := "(" or ")" | variable op quoted-string
type markerParser struct {
	input string
	pos   int
}

func (p *markerParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *markerParser) parseOr() (markerExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.takeWord("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerOr{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerExpr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.takeWord("and") {
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = markerAnd{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (markerExpr, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, zerr.New("unbalanced parenthesis")
		}
		p.pos++
		return expr, nil
	}

	variable := p.takeIdent()
	if variable == "" {
		return nil, zerr.New("expected marker variable")
	}
	op := p.takeOp()
	if op == "" {
		return nil, zerr.New("expected comparison operator")
	}
	value, ok := p.takeQuoted()
	if !ok {
		return nil, zerr.New("expected quoted value")
	}
	return markerCmp{variable: variable, op: op, value: value}, nil
}

func (p *markerParser) takeWord(word string) bool {
	p.skipSpace()
	end := p.pos + len(word)
	if end > len(p.input) || p.input[p.pos:end] != word {
		return false
	}
	// Must be followed by a non-identifier character.
	if end < len(p.input) && isIdentChar(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *markerParser) takeIdent() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *markerParser) takeOp() string {
	p.skipSpace()
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if strings.HasPrefix(p.input[p.pos:], op) {
			p.pos += len(op)
			return op
		}
	}
	return ""
}

func (p *markerParser) takeQuoted() (string, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return "", false
	}
	quote := p.input[p.pos]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	end := strings.IndexByte(p.input[p.pos+1:], quote)
	if end < 0 {
		return "", false
	}
	value := p.input[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return value, true
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
