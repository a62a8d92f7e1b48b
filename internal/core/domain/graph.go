// Package domain contains the core domain models for dependency
// resolution, locking and environment synchronization.
package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// ResolvedPackage is one node of a resolution: exactly one version chosen
// for a package name, the extras activated on it, and the artifact the
// environment will install.
type ResolvedPackage struct {
	Name     InternedString
	Version  Version
	Extras   []string
	Artifact Artifact

	// Dev marks a package reachable only through development
	// requirements. A production sync can filter on it.
	Dev bool
}

// Edge records that From's chosen version requires To, under an optional
// marker.
type Edge struct {
	From   InternedString
	To     InternedString
	Marker string
}

// ResolutionGraph maps every needed package name to exactly one resolved
// version, plus the requirement edges between the chosen packages. The
// resolver owns construction; the lock codec owns persistence.
type ResolutionGraph struct {
	packages map[InternedString]ResolvedPackage
	edges    []Edge
}

// NewResolutionGraph creates an empty graph.
func NewResolutionGraph() *ResolutionGraph {
	return &ResolutionGraph{
		packages: make(map[InternedString]ResolvedPackage),
	}
}

// AddPackage adds a resolved package. Adding the same name twice is an
// invariant violation and returns an error.
func (g *ResolutionGraph) AddPackage(p ResolvedPackage) error {
	if _, exists := g.packages[p.Name]; exists {
		return zerr.With(ErrDuplicatePackage, "package", p.Name.String())
	}
	g.packages[p.Name] = p
	return nil
}

// AddEdge records a requirement edge between two chosen packages.
func (g *ResolutionGraph) AddEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// Package returns the resolved package for a name.
func (g *ResolutionGraph) Package(name InternedString) (ResolvedPackage, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Len returns the number of resolved packages.
func (g *ResolutionGraph) Len() int {
	return len(g.packages)
}

// SortedPackages returns the packages in canonical order: lexicographic
// by name. Everything that serializes or walks the graph uses this order,
// never raw map iteration.
func (g *ResolutionGraph) SortedPackages() []ResolvedPackage {
	out := make([]ResolvedPackage, 0, len(g.packages))
	for _, p := range g.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name.String() < out[j].Name.String()
	})
	return out
}

// SortedEdges returns the edge set in canonical order: by (from, to, marker).
func (g *ResolutionGraph) SortedEdges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.From != b.From {
			return a.From.String() < b.From.String()
		}
		if a.To != b.To {
			return a.To.String() < b.To.String()
		}
		return a.Marker < b.Marker
	})
	return out
}

// Validate checks internal consistency: every edge endpoint must be a
// resolved package.
func (g *ResolutionGraph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.packages[e.From]; !ok {
			return zerr.With(ErrDanglingEdge, "package", e.From.String())
		}
		if _, ok := g.packages[e.To]; !ok {
			return zerr.With(ErrDanglingEdge, "package", e.To.String())
		}
	}
	return nil
}

// Dependents returns the names of packages that require name, sorted.
func (g *ResolutionGraph) Dependents(name InternedString) []InternedString {
	var out []InternedString
	for _, e := range g.edges {
		if e.To == name {
			out = append(out, e.From)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Equal reports semantic equality of two graphs: same packages at the
// same versions with the same extras and artifacts, and the same edges.
func (g *ResolutionGraph) Equal(other *ResolutionGraph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for name, p := range g.packages {
		q, ok := other.packages[name]
		if !ok {
			return false
		}
		if p.Version.Compare(q.Version) != 0 || p.Artifact.Hash != q.Artifact.Hash || p.Dev != q.Dev {
			return false
		}
		if !equalStrings(p.Extras, q.Extras) {
			return false
		}
	}
	a, b := g.SortedEdges(), other.SortedEdges()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
