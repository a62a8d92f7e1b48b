package domain

import (
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Requirement is a single parsed dependency declaration:
//
//	name[extra1,extra2]>=1.0,<2.0; python_version >= "3.9"
//
// It is immutable once parsed. The name is stored in canonical form.
type Requirement struct {
	Name      InternedString
	Specifier Specifier
	Extras    []string
	Marker    Marker
}

// CanonicalName lowercases a package name and collapses runs of '-', '_'
// and '.' into a single '-', so "Foo_Bar" and "foo.bar" refer to the same
// package.
func CanonicalName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			prevSep = true
			continue
		}
		if prevSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// ParseRequirement parses a dependency declaration.
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement
	rest := strings.TrimSpace(s)
	if rest == "" {
		return req, zerr.With(ErrInvalidRequirement, "requirement", s)
	}

	// Marker after ';'
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		marker, err := ParseMarker(rest[idx+1:])
		if err != nil {
			return req, zerr.Wrap(err, ErrInvalidRequirement.Error())
		}
		req.Marker = marker
		rest = strings.TrimSpace(rest[:idx])
	}

	// Name runs up to the first extras bracket or specifier operator.
	nameEnd := len(rest)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '[' || c == '<' || c == '>' || c == '=' || c == '!' || c == '~' || c == ' ' {
			nameEnd = i
			break
		}
	}
	name := CanonicalName(rest[:nameEnd])
	if name == "" {
		return req, zerr.With(ErrInvalidRequirement, "requirement", s)
	}
	req.Name = NewInternedString(name)
	rest = strings.TrimSpace(rest[nameEnd:])

	// Extras
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return req, zerr.With(ErrInvalidRequirement, "requirement", s)
		}
		req.Extras = parseExtras(rest[1:end])
		rest = strings.TrimSpace(rest[end+1:])
	}

	spec, err := ParseSpecifier(rest)
	if err != nil {
		return req, zerr.Wrap(err, ErrInvalidRequirement.Error())
	}
	req.Specifier = spec

	return req, nil
}

// MustParseRequirement parses a dependency declaration and panics on
// failure. Intended for tests.
func MustParseRequirement(s string) Requirement {
	req, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return req
}

func parseExtras(s string) []string {
	var extras []string
	for _, raw := range strings.Split(s, ",") {
		extra := CanonicalName(raw)
		if extra != "" {
			extras = append(extras, extra)
		}
	}
	sort.Strings(extras)
	return extras
}

// ApplicableTo reports whether the requirement applies to the environment.
func (r Requirement) ApplicableTo(env TargetEnvironment) bool {
	return r.Marker.Evaluate(env)
}

// String renders the requirement in canonical form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name.String())
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	b.WriteString(r.Specifier.String())
	if !r.Marker.IsZero() {
		b.WriteString("; ")
		b.WriteString(r.Marker.String())
	}
	return b.String()
}
