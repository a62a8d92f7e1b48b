package resolver

import (
	"sort"

	"go.trai.ch/pakt/internal/core/domain"
)

// assignment is one entry of the partial solution: either a decision
// (package pinned to one version) or a derivation (a term forced by an
// incompatibility during unit propagation).
type assignment struct {
	t             term
	decisionLevel int
	index         int

	// isDecision marks decisions; decisions have an exact-version
	// positive term and no cause.
	isDecision bool
	version    domain.Version
	cause      *incompatibility
}

// partialSolution is the resolver's explicit decision stack: an ordered
// arena of assignments. Backtracking truncates the slice, so undo is a
// pop rather than call-stack unwinding, which keeps cancellation and
// memory bounded.
type partialSolution struct {
	assignments []assignment

	// admitted caches the intersection of all assignment terms per
	// package, rebuilt incrementally.
	admitted map[domain.InternedString]domain.VersionSet
	decision map[domain.InternedString]assignment
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		admitted: make(map[domain.InternedString]domain.VersionSet),
		decision: make(map[domain.InternedString]assignment),
	}
}

// decisionLevel is the number of decisions taken so far.
func (ps *partialSolution) decisionLevel() int {
	return len(ps.decision)
}

// admittedFor returns the versions the solution currently admits for a
// package. A package with no assignments admits every version.
func (ps *partialSolution) admittedFor(pkg domain.InternedString) domain.VersionSet {
	if s, ok := ps.admitted[pkg]; ok {
		return s
	}
	return domain.FullSet()
}

// decisionFor returns the decided version for a package, if any.
func (ps *partialSolution) decisionFor(pkg domain.InternedString) (domain.Version, bool) {
	if a, ok := ps.decision[pkg]; ok {
		return a.version, true
	}
	return domain.Version{}, false
}

// decide pins a package to a version at a new decision level.
func (ps *partialSolution) decide(pkg domain.InternedString, version domain.Version) {
	a := assignment{
		t:             term{pkg: pkg, set: domain.ExactVersion(version), positive: true},
		decisionLevel: ps.decisionLevel() + 1,
		index:         len(ps.assignments),
		isDecision:    true,
		version:       version,
	}
	ps.assignments = append(ps.assignments, a)
	ps.decision[pkg] = a
	ps.intersect(pkg, a.t)
}

// derive appends a derived term forced by cause.
func (ps *partialSolution) derive(t term, cause *incompatibility) {
	a := assignment{
		t:             t,
		decisionLevel: ps.decisionLevel(),
		index:         len(ps.assignments),
		cause:         cause,
	}
	ps.assignments = append(ps.assignments, a)
	ps.intersect(t.pkg, t)
}

func (ps *partialSolution) intersect(pkg domain.InternedString, t term) {
	ps.admitted[pkg] = ps.admittedFor(pkg).Intersect(t.allowed())
}

// backtrack drops every assignment above the given decision level and
// rebuilds the admitted-set cache.
func (ps *partialSolution) backtrack(level int) {
	kept := ps.assignments[:0]
	for _, a := range ps.assignments {
		if a.decisionLevel <= level {
			kept = append(kept, a)
		}
	}
	ps.assignments = kept

	ps.admitted = make(map[domain.InternedString]domain.VersionSet)
	ps.decision = make(map[domain.InternedString]assignment)
	for i := range ps.assignments {
		ps.assignments[i].index = i
		a := ps.assignments[i]
		if a.isDecision {
			ps.decision[a.t.pkg] = a
		}
		ps.intersect(a.t.pkg, a.t)
	}
}

// relate classifies an incompatibility against the current solution.
// When exactly one term is not yet satisfied and none is contradicted,
// that term is returned as the unit term with hasUnit set.
func (ps *partialSolution) relate(ic *incompatibility) (rel termRelation, unit term, hasUnit bool) {
	unsatisfied := 0
	for _, t := range ic.terms {
		switch t.relate(ps.admittedFor(t.pkg)) {
		case relationContradicted:
			return relationContradicted, term{}, false
		case relationInconclusive:
			unsatisfied++
			unit = t
		case relationSatisfied:
		}
	}
	switch unsatisfied {
	case 0:
		return relationSatisfied, term{}, false
	case 1:
		return relationInconclusive, unit, true
	default:
		return relationInconclusive, term{}, false
	}
}

// satisfier finds the earliest assignment at which a term became
// satisfied, considering assignments up to the end of the solution.
// Assumes the term is currently satisfied.
func (ps *partialSolution) satisfier(t term) *assignment {
	admitted := domain.FullSet()
	for i := range ps.assignments {
		a := &ps.assignments[i]
		if a.t.pkg != t.pkg {
			continue
		}
		admitted = admitted.Intersect(a.t.allowed())
		if t.relate(admitted) == relationSatisfied {
			return a
		}
	}
	return nil
}

// satisfierBefore is like satisfier but only considers assignments with
// index strictly below limit.
func (ps *partialSolution) satisfierBefore(t term, limit int) *assignment {
	admitted := domain.FullSet()
	for i := range ps.assignments {
		a := &ps.assignments[i]
		if a.index >= limit {
			break
		}
		if a.t.pkg != t.pkg {
			continue
		}
		admitted = admitted.Intersect(a.t.allowed())
		if t.relate(admitted) == relationSatisfied {
			return a
		}
	}
	return nil
}

// undecided returns the packages with a positive derivation but no
// decision yet, in lexicographic order for determinism.
func (ps *partialSolution) undecided() []domain.InternedString {
	positive := make(map[domain.InternedString]bool)
	for _, a := range ps.assignments {
		if a.t.positive {
			positive[a.t.pkg] = true
		}
	}
	var out []domain.InternedString
	for pkg := range positive {
		if _, decided := ps.decision[pkg]; !decided {
			out = append(out, pkg)
		}
	}
	sortInterned(out)
	return out
}

func sortInterned(names []domain.InternedString) {
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
}
