package resolver

import (
	"strings"

	"go.trai.ch/pakt/internal/core/domain"
)

// term is a statement about a package: "pkg's version is in set"
// (positive) or "pkg's version is not in set" (negative).
type term struct {
	pkg      domain.InternedString
	set      domain.VersionSet
	positive bool
}

// negate returns the logical negation of the term.
func (t term) negate() term {
	return term{pkg: t.pkg, set: t.set, positive: !t.positive}
}

// allowed returns the versions the term admits as a set.
func (t term) allowed() domain.VersionSet {
	if t.positive {
		return t.set
	}
	return t.set.Complement()
}

func (t term) String() string {
	name := t.pkg.String()
	if name == rootPkgName {
		name = "the project"
	}
	if t.positive {
		return name + " " + t.set.String()
	}
	return "not " + name + " " + t.set.String()
}

// termRelation classifies a term against the versions currently admitted
// for its package by the partial solution.
type termRelation int

const (
	relationInconclusive termRelation = iota
	relationSatisfied
	relationContradicted
)

// relate classifies the term given that the partial solution admits
// exactly admitted for the term's package.
func (t term) relate(admitted domain.VersionSet) termRelation {
	allowed := t.allowed()
	intersection := admitted.Intersect(allowed)
	switch {
	case intersection.Equal(admitted):
		return relationSatisfied
	case intersection.Empty():
		return relationContradicted
	default:
		return relationInconclusive
	}
}

// causeKind says how an incompatibility came to be.
type causeKind int

const (
	// causeRoot: the manifest's own requirements.
	causeRoot causeKind = iota
	// causeDependency: a package version declares a requirement.
	causeDependency
	// causeNoVersions: no candidate version exists inside a range.
	causeNoVersions
	// causeConflict: derived during conflict resolution from two others.
	causeConflict
)

// incompatibility is a set of terms that cannot all hold at once. It
// carries at most one term per package. The cause chain is kept so a
// failed resolution can report the requirement chain that produced it.
type incompatibility struct {
	terms []term
	kind  causeKind

	// left/right are the incompatibilities a conflict derivation merged.
	left  *incompatibility
	right *incompatibility
}

// termFor returns the incompatibility's term for a package.
func (ic *incompatibility) termFor(pkg domain.InternedString) (term, bool) {
	for _, t := range ic.terms {
		if t.pkg == pkg {
			return t, true
		}
	}
	return term{}, false
}

// isTerminal reports whether the incompatibility can no longer be
// resolved against any decision: either it is empty (resolution is
// impossible outright) or its only term concerns the root package.
func (ic *incompatibility) isTerminal() bool {
	if len(ic.terms) == 0 {
		return true
	}
	return len(ic.terms) == 1 && ic.terms[0].pkg.String() == rootPkgName && ic.terms[0].positive
}

func (ic *incompatibility) String() string {
	if len(ic.terms) == 0 {
		return "version solving failed"
	}
	parts := make([]string, 0, len(ic.terms))
	for _, t := range ic.terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " and ")
}

// explain renders the cause chain of a derived incompatibility, leaves
// first, for conflict reports.
func (ic *incompatibility) explain() []string {
	var lines []string
	seen := make(map[*incompatibility]bool)
	var walk func(node *incompatibility)
	walk = func(node *incompatibility) {
		if node == nil || seen[node] {
			return
		}
		seen[node] = true
		walk(node.left)
		walk(node.right)
		switch node.kind {
		case causeRoot:
			lines = append(lines, "the project requires "+node.requireeSummary())
		case causeDependency:
			lines = append(lines, node.dependencySummary())
		case causeNoVersions:
			lines = append(lines, "no versions of "+node.terms[0].pkg.String()+" match "+node.terms[0].set.String())
		case causeConflict:
			lines = append(lines, "so: "+node.String()+" is impossible")
		}
	}
	walk(ic)
	return lines
}

func (ic *incompatibility) requireeSummary() string {
	for _, t := range ic.terms {
		if !t.positive {
			return t.pkg.String() + " " + t.set.String()
		}
	}
	return ic.String()
}

func (ic *incompatibility) dependencySummary() string {
	var dependent, dependency string
	for _, t := range ic.terms {
		if t.positive {
			dependent = t.pkg.String() + " " + t.set.String()
		} else {
			dependency = t.pkg.String() + " " + t.set.String()
		}
	}
	return dependent + " requires " + dependency
}
