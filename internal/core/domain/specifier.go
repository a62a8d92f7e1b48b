package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Specifier is a parsed version constraint expression: a comma-separated
// list of clauses such as ">=1.0,<2.0,!=1.3". It is immutable once parsed
// and compiles to a VersionSet.
type Specifier struct {
	clauses []specClause
	set     VersionSet
}

type specClause struct {
	op      string
	version Version
}

// Supported clause operators, longest first so prefix matching is unambiguous.
var specOps = []string{"===", "==", "!=", "~=", ">=", "<=", ">", "<"}

// ParseSpecifier parses a constraint expression. The empty string parses
// to the unconstrained specifier.
func ParseSpecifier(s string) (Specifier, error) {
	spec := Specifier{set: FullSet()}
	s = strings.TrimSpace(s)
	if s == "" {
		return spec, nil
	}

	for _, raw := range strings.Split(s, ",") {
		clause := strings.TrimSpace(raw)
		if clause == "" {
			return Specifier{}, zerr.With(ErrInvalidSpecifier, "specifier", s)
		}
		op := ""
		for _, candidate := range specOps {
			if strings.HasPrefix(clause, candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return Specifier{}, zerr.With(zerr.With(ErrInvalidSpecifier, "specifier", s), "clause", clause)
		}
		version, err := ParseVersion(strings.TrimSpace(clause[len(op):]))
		if err != nil {
			return Specifier{}, zerr.Wrap(err, ErrInvalidSpecifier.Error())
		}
		c := specClause{op: op, version: version}
		spec.clauses = append(spec.clauses, c)
		spec.set = spec.set.Intersect(c.toSet())
	}

	return spec, nil
}

// MustParseSpecifier parses a constraint expression and panics on failure.
func MustParseSpecifier(s string) Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func (c specClause) toSet() VersionSet {
	v := c.version
	switch c.op {
	case "==", "===":
		return ExactVersion(v)
	case "!=":
		return ExactVersion(v).Complement()
	case ">=":
		return VersionRange(&v, true, nil, false)
	case ">":
		return VersionRange(&v, false, nil, false)
	case "<=":
		return VersionRange(nil, false, &v, true)
	case "<":
		return VersionRange(nil, false, &v, false)
	case "~=":
		// Compatible release: >=X.Y.Z, <X.(Y+1) for a three-segment
		// version, generally bumping the second-to-last segment.
		upper := Version{Epoch: v.Epoch}
		if len(v.Release) < 2 {
			return VersionRange(&v, true, nil, false)
		}
		upper.Release = append(upper.Release, v.Release[:len(v.Release)-1]...)
		upper.Release[len(upper.Release)-1]++
		return VersionRange(&v, true, &upper, false)
	default:
		return EmptySet()
	}
}

// Set returns the VersionSet the specifier admits.
func (s Specifier) Set() VersionSet {
	if s.clauses == nil && s.set.Empty() {
		// Zero value behaves as unconstrained.
		return FullSet()
	}
	return s.set
}

// Match reports whether v satisfies the specifier.
func (s Specifier) Match(v Version) bool {
	return s.Set().Contains(v)
}

// IsConstrained reports whether the specifier carries any clause.
func (s Specifier) IsConstrained() bool {
	return len(s.clauses) > 0
}

// PinsPreRelease reports whether any clause names a pre-release or dev
// version explicitly. Candidate selection admits pre-releases for a
// package only in that case.
func (s Specifier) PinsPreRelease() bool {
	for _, c := range s.clauses {
		if c.version.IsPreRelease() {
			return true
		}
	}
	return false
}

// String renders the specifier in its canonical clause order.
func (s Specifier) String() string {
	parts := make([]string, 0, len(s.clauses))
	for _, c := range s.clauses {
		parts = append(parts, c.op+c.version.String())
	}
	return strings.Join(parts, ",")
}
