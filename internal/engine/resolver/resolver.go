// Package resolver implements conflict-driven dependency resolution.
//
// The algorithm is PubGrub-style: it maintains a set of incompatibilities
// (rules about version combinations that cannot hold together) and a
// partial solution of decisions and derived terms. Conflicts are resolved
// by deriving a stronger incompatibility from the derivation chain and
// backtracking to the earliest responsible decision, so the same conflict
// is never explored twice.
package resolver

import (
	"context"
	"sort"
	"strings"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// rootPkgName is the synthetic package standing in for the manifest
// itself. Its single version 0 depends on the manifest's requirements.
const rootPkgName = ""

// extraActivationLimit bounds extra-expansion rounds; exceeding it means
// extras reference each other without converging.
const extraActivationLimit = 100

// Options configure a resolution.
type Options struct {
	// PreferLowest selects the lowest compatible version instead of the
	// newest. Used for lower-bound testing.
	PreferLowest bool

	// PrefetchLimit bounds concurrent speculative metadata fetches.
	// Zero disables prefetching.
	PrefetchLimit int
}

// Resolver produces a ResolutionGraph from a manifest, or fails with a
// structured conflict report.
type Resolver struct {
	provider ports.MetadataProvider
	logger   ports.Logger
	opts     Options
}

// New creates a Resolver on top of a metadata provider.
func New(provider ports.MetadataProvider, logger ports.Logger, opts Options) *Resolver {
	return &Resolver{provider: provider, logger: logger, opts: opts}
}

// solveState carries one resolution attempt. The decision loop is
// sequential; only metadata prefetch runs concurrently.
type solveState struct {
	r        *Resolver
	manifest *domain.Manifest
	env      domain.TargetEnvironment

	solution *partialSolution
	// incompatibilities indexed by the packages their terms mention.
	byPkg map[domain.InternedString][]*incompatibility
	all   []*incompatibility

	// extras tracks the union of extras activated per package.
	extras map[domain.InternedString]map[string]bool
	// extrasDirty marks packages whose extras grew since their
	// requirements were last expanded.
	extrasDirty map[domain.InternedString]bool
	// extraRounds counts expansion passes for cycle defense.
	extraRounds int

	// prereleaseOK marks packages some requirement pinned to a
	// pre-release explicitly; candidate selection then admits them.
	prereleaseOK map[domain.InternedString]bool

	// metadata caches fetched documents for decided versions.
	metadata map[metadataKey]*domain.PackageMetadata

	prefetch *prefetcher
}

type metadataKey struct {
	pkg     domain.InternedString
	version string
}

// Resolve solves the manifest into a resolution graph.
func (r *Resolver) Resolve(ctx context.Context, manifest *domain.Manifest) (*domain.ResolutionGraph, error) {
	if err := checkRuntime(manifest); err != nil {
		return nil, err
	}

	st := &solveState{
		r:            r,
		manifest:     manifest,
		env:          manifest.Environment,
		solution:     newPartialSolution(),
		byPkg:        make(map[domain.InternedString][]*incompatibility),
		extras:       make(map[domain.InternedString]map[string]bool),
		extrasDirty:  make(map[domain.InternedString]bool),
		prereleaseOK: make(map[domain.InternedString]bool),
		metadata:     make(map[metadataKey]*domain.PackageMetadata),
	}
	if r.opts.PrefetchLimit > 0 {
		st.prefetch = newPrefetcher(ctx, r.provider, r.opts.PrefetchLimit)
		defer st.prefetch.close()
	}

	root := domain.NewInternedString(rootPkgName)
	rootVersion := domain.Version{Release: []int{0}}

	// Seed: the root package at its only version, and one
	// incompatibility per applicable manifest requirement.
	st.solution.decide(root, rootVersion)
	reqs := append([]domain.Requirement{}, manifest.Requirements...)
	reqs = append(reqs, manifest.DevRequirements...)
	for _, req := range reqs {
		if !req.ApplicableTo(st.env) {
			continue
		}
		st.registerRequirement(req)
		st.addIncompatibility(&incompatibility{
			kind: causeRoot,
			terms: []term{
				{pkg: root, set: domain.ExactVersion(rootVersion), positive: true},
				{pkg: req.Name, set: req.Specifier.Set(), positive: false},
			},
		})
	}

	work := []domain.InternedString{root}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for len(work) > 0 {
			pkg := work[0]
			work = work[1:]
			if err := st.propagate(pkg); err != nil {
				return nil, err
			}
		}
		pkg, ok, err := st.chooseNext(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		expanded, err := st.decide(ctx, pkg)
		if err != nil {
			return nil, err
		}
		// The decided package and every host whose extras expanded carry
		// new incompatibilities that must go through unit propagation.
		work = append(work, pkg)
		work = append(work, expanded...)
	}

	return st.buildGraph(ctx)
}

// checkRuntime rejects a resolution whose target runtime falls outside
// the manifest's declared runtime constraint.
func checkRuntime(manifest *domain.Manifest) error {
	if !manifest.RuntimeConstraint.IsConstrained() {
		return nil
	}
	runtime, err := domain.ParseVersion(manifest.Environment.PythonFullVersion)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRuntimeIncompatible.Error()), "runtime", manifest.Environment.PythonFullVersion)
	}
	if !manifest.RuntimeConstraint.Match(runtime) {
		err := zerr.With(domain.ErrRuntimeIncompatible, "requires", manifest.RuntimeConstraint.String())
		return zerr.With(err, "runtime", manifest.Environment.PythonFullVersion)
	}
	return nil
}

// logInfo logs when a logger is wired; the engine also runs without one.
func (st *solveState) logInfo(msg string) {
	if st.r.logger != nil {
		st.r.logger.Info(msg)
	}
}

// addIncompatibility records a rule and indexes it by package.
func (st *solveState) addIncompatibility(ic *incompatibility) {
	st.all = append(st.all, ic)
	for _, t := range ic.terms {
		st.byPkg[t.pkg] = append(st.byPkg[t.pkg], ic)
	}
}

// propagate runs unit propagation starting from a changed package,
// deriving forced terms and resolving conflicts as they arise.
func (st *solveState) propagate(changed domain.InternedString) error {
	work := []domain.InternedString{changed}
	for len(work) > 0 {
		pkg := work[0]
		work = work[1:]

		// Newest rules first: learned incompatibilities get priority.
		rules := st.byPkg[pkg]
		for i := len(rules) - 1; i >= 0; i-- {
			ic := rules[i]
			rel, unit, hasUnit := st.solution.relate(ic)
			switch {
			case rel == relationSatisfied:
				learned, err := st.resolveConflict(ic)
				if err != nil {
					return err
				}
				// After backtracking the learned rule is unit by
				// construction.
				_, unit, ok := st.solution.relate(learned)
				if !ok {
					return st.conflictError(learned)
				}
				st.solution.derive(unit.negate(), learned)
				work = append(work[:0], unit.pkg)
			case rel == relationInconclusive && hasUnit:
				if !unitAlreadyKnown(st.solution, unit) {
					st.solution.derive(unit.negate(), ic)
					st.speculate(unit.pkg)
					work = append(work, unit.pkg)
				}
			}
		}
	}
	return nil
}

// unitAlreadyKnown avoids deriving the same term repeatedly.
func unitAlreadyKnown(ps *partialSolution, unit term) bool {
	admitted := ps.admittedFor(unit.pkg)
	return unit.negate().relate(admitted) == relationSatisfied
}

// resolveConflict implements PubGrub conflict resolution: walk the
// satisfier chain of the conflicting incompatibility, merging causes
// until the result is unit at an earlier decision level, then backtrack.
func (st *solveState) resolveConflict(conflict *incompatibility) (*incompatibility, error) {
	for {
		if conflict.isTerminal() {
			return nil, st.conflictError(conflict)
		}

		// Find the latest satisfier across the incompatibility's terms.
		var satisfier *assignment
		var satisfiedTerm term
		for _, t := range conflict.terms {
			s := st.solution.satisfier(t)
			if s == nil {
				continue
			}
			if satisfier == nil || s.index > satisfier.index {
				satisfier = s
				satisfiedTerm = t
			}
		}
		if satisfier == nil {
			return nil, st.conflictError(conflict)
		}

		// Decision level of the latest satisfier among the other terms.
		previousLevel := 1
		for _, t := range conflict.terms {
			if t.pkg == satisfiedTerm.pkg {
				if s := st.solution.satisfierBefore(t, satisfier.index); s != nil && s.decisionLevel > previousLevel {
					previousLevel = s.decisionLevel
				}
				continue
			}
			if s := st.solution.satisfierBefore(t, satisfier.index+1); s != nil && s.decisionLevel > previousLevel {
				previousLevel = s.decisionLevel
			}
		}

		if satisfier.isDecision || previousLevel < satisfier.decisionLevel {
			st.solution.backtrack(previousLevel)
			if conflict.kind == causeConflict {
				st.addIncompatibility(conflict)
			}
			return conflict, nil
		}

		// Merge the satisfier's cause into the conflict and continue.
		merged := &incompatibility{
			kind:  causeConflict,
			left:  conflict,
			right: satisfier.cause,
		}
		seen := make(map[domain.InternedString]bool)
		for _, t := range conflict.terms {
			if t.pkg == satisfiedTerm.pkg {
				continue
			}
			merged.terms = append(merged.terms, t)
			seen[t.pkg] = true
		}
		for _, t := range satisfier.cause.terms {
			if t.pkg == satisfier.t.pkg || seen[t.pkg] {
				continue
			}
			merged.terms = append(merged.terms, t)
		}
		conflict = merged
	}
}

// conflictError builds the user-facing failure with the minimal
// requirement chain that caused it.
func (st *solveState) conflictError(conflict *incompatibility) error {
	lines := conflict.explain()
	err := zerr.With(domain.ErrNoCompatibleVersion, "conflict", strings.Join(lines, "; "))
	for _, t := range conflict.terms {
		err = zerr.With(err, "package", t.pkg.String())
	}
	return err
}

// chooseNext picks the undecided package whose allowed range admits the
// fewest candidate versions, tie-broken by name, so tightly constrained
// packages are decided first.
func (st *solveState) chooseNext(ctx context.Context) (domain.InternedString, bool, error) {
	undecided := st.solution.undecided()
	if len(undecided) == 0 {
		return domain.InternedString{}, false, nil
	}

	best := undecided[0]
	bestCount := -1
	for _, pkg := range undecided {
		versions, err := st.r.provider.Versions(ctx, pkg.String())
		if err != nil {
			return domain.InternedString{}, false, zerr.With(zerr.Wrap(err, domain.ErrMetadataFetchFailed.Error()), "package", pkg.String())
		}
		admitted := st.solution.admittedFor(pkg)
		count := 0
		for _, v := range versions {
			if admitted.Contains(v) {
				count++
			}
		}
		if bestCount < 0 || count < bestCount {
			best, bestCount = pkg, count
		}
	}
	return best, true, nil
}

// decide selects a version for pkg and installs its dependency
// incompatibilities, or records that no candidate exists. It returns the
// packages whose extras expanded as a side effect; their fresh
// incompatibilities still need unit propagation.
func (st *solveState) decide(ctx context.Context, pkg domain.InternedString) ([]domain.InternedString, error) {
	admitted := st.solution.admittedFor(pkg)
	version, ok, err := st.bestCandidate(ctx, pkg, admitted)
	if err != nil {
		return nil, err
	}
	if !ok {
		st.addIncompatibility(&incompatibility{
			kind:  causeNoVersions,
			terms: []term{{pkg: pkg, set: admitted, positive: true}},
		})
		return nil, nil
	}

	meta, err := st.metadataFor(ctx, pkg, version)
	if err != nil {
		return nil, err
	}

	// The package's own extras are folded in here, so it is not a dirty
	// host for the expansion below.
	delete(st.extrasDirty, pkg)
	for _, req := range meta.RequirementsFor(st.env, st.activeExtras(pkg)) {
		st.registerRequirement(req)
		st.addIncompatibility(&incompatibility{
			kind: causeDependency,
			terms: []term{
				{pkg: pkg, set: domain.ExactVersion(version), positive: true},
				{pkg: req.Name, set: req.Specifier.Set(), positive: false},
			},
		})
	}

	st.solution.decide(pkg, version)
	st.logInfo("resolved " + pkg.String() + " " + version.String())
	return st.expandLateExtras(ctx)
}

// bestCandidate returns the preferred version inside admitted. The order
// is a documented total order: newest first (or lowest first under
// PreferLowest); pre-releases are considered only when the admitted set
// cannot be satisfied otherwise or a requirement pinned one explicitly.
func (st *solveState) bestCandidate(ctx context.Context, pkg domain.InternedString, admitted domain.VersionSet) (domain.Version, bool, error) {
	versions, err := st.r.provider.Versions(ctx, pkg.String())
	if err != nil {
		return domain.Version{}, false, zerr.With(zerr.Wrap(err, domain.ErrMetadataFetchFailed.Error()), "package", pkg.String())
	}

	sorted := make([]domain.Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		c := sorted[i].Compare(sorted[j])
		if st.r.opts.PreferLowest {
			return c < 0
		}
		return c > 0
	})

	var fallback *domain.Version
	for _, v := range sorted {
		if !admitted.Contains(v) {
			continue
		}
		if v.IsPreRelease() && !st.prereleaseOK[pkg] {
			if fallback == nil {
				c := v
				fallback = &c
			}
			continue
		}
		return v, true, nil
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return domain.Version{}, false, nil
}

func (st *solveState) metadataFor(ctx context.Context, pkg domain.InternedString, version domain.Version) (*domain.PackageMetadata, error) {
	key := metadataKey{pkg: pkg, version: version.String()}
	if meta, ok := st.metadata[key]; ok {
		return meta, nil
	}
	meta, err := st.r.provider.Metadata(ctx, pkg.String(), version)
	if err != nil {
		err = zerr.With(zerr.Wrap(err, domain.ErrMetadataFetchFailed.Error()), "package", pkg.String())
		return nil, zerr.With(err, "version", version.String())
	}
	st.metadata[key] = meta
	return meta, nil
}

// registerRequirement records what a requirement implies beyond its
// incompatibility: extras it activates on the target, pre-release
// admission when it pins one, and a speculative metadata fetch.
func (st *solveState) registerRequirement(req domain.Requirement) {
	st.registerExtras(req.Name, req.Extras)
	if req.Specifier.PinsPreRelease() {
		st.prereleaseOK[req.Name] = true
	}
	st.speculate(req.Name)
}

func (st *solveState) registerExtras(pkg domain.InternedString, extras []string) {
	if len(extras) == 0 {
		return
	}
	set, ok := st.extras[pkg]
	if !ok {
		set = make(map[string]bool)
		st.extras[pkg] = set
	}
	for _, extra := range extras {
		if !set[extra] {
			set[extra] = true
			st.extrasDirty[pkg] = true
		}
	}
}

func (st *solveState) activeExtras(pkg domain.InternedString) []string {
	set := st.extras[pkg]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for extra := range set {
		out = append(out, extra)
	}
	sort.Strings(out)
	return out
}

// expandLateExtras adds extra-gated requirements for packages that were
// already decided when their extra got activated. Activation is
// monotonic, so this only adds incompatibilities; an introduced conflict
// rolls back through the normal mechanism. The returned hosts gained new
// incompatibilities and must be fed back into unit propagation.
func (st *solveState) expandLateExtras(ctx context.Context) ([]domain.InternedString, error) {
	var expanded []domain.InternedString
	for len(st.extrasDirty) > 0 {
		st.extraRounds++
		if st.extraRounds > extraActivationLimit {
			return nil, domain.ErrCyclicExtraActivation
		}

		hosts := make([]domain.InternedString, 0, len(st.extrasDirty))
		for pkg := range st.extrasDirty {
			hosts = append(hosts, pkg)
		}
		sortInterned(hosts)

		for _, pkg := range hosts {
			delete(st.extrasDirty, pkg)
			version, decided := st.solution.decisionFor(pkg)
			if !decided {
				// The extras are folded in when the host is decided.
				continue
			}
			meta, err := st.metadataFor(ctx, pkg, version)
			if err != nil {
				return nil, err
			}
			for _, req := range meta.RequirementsFor(st.env, st.activeExtras(pkg)) {
				st.registerRequirement(req)
				st.addIncompatibility(&incompatibility{
					kind: causeDependency,
					terms: []term{
						{pkg: pkg, set: domain.ExactVersion(version), positive: true},
						{pkg: req.Name, set: req.Specifier.Set(), positive: false},
					},
				})
			}
			expanded = append(expanded, pkg)
		}
	}
	return expanded, nil
}

// speculate queues a metadata prefetch for a package the decision loop
// will likely need. Results land in the provider's cache; unused ones are
// simply discarded.
func (st *solveState) speculate(pkg domain.InternedString) {
	if st.prefetch != nil {
		st.prefetch.enqueue(pkg.String())
	}
}

// buildGraph converts the final decisions into a validated graph.
func (st *solveState) buildGraph(ctx context.Context) (*domain.ResolutionGraph, error) {
	graph := domain.NewResolutionGraph()

	type chosen struct {
		pkg     domain.InternedString
		version domain.Version
	}
	var decisions []chosen
	for pkg, a := range st.solution.decision {
		if pkg.String() == rootPkgName {
			continue
		}
		decisions = append(decisions, chosen{pkg: pkg, version: a.version})
	}
	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].pkg.String() < decisions[j].pkg.String()
	})

	devOnly := st.devOnlyPackages()

	for _, d := range decisions {
		meta, err := st.metadataFor(ctx, d.pkg, d.version)
		if err != nil {
			return nil, err
		}
		var artifact domain.Artifact
		if len(meta.Artifacts) > 0 {
			a, ok := meta.ArtifactFor(st.env)
			if !ok {
				err := zerr.With(domain.ErrNoCompatibleArtifact, "package", d.pkg.String())
				return nil, zerr.With(err, "version", d.version.String())
			}
			artifact = a
		}
		if err := graph.AddPackage(domain.ResolvedPackage{
			Name:     d.pkg,
			Version:  d.version,
			Extras:   st.activeExtras(d.pkg),
			Artifact: artifact,
			Dev:      devOnly[d.pkg],
		}); err != nil {
			return nil, err
		}
	}

	seenEdges := make(map[domain.Edge]bool)
	for _, d := range decisions {
		meta, err := st.metadataFor(ctx, d.pkg, d.version)
		if err != nil {
			return nil, err
		}
		for _, req := range meta.RequirementsFor(st.env, st.activeExtras(d.pkg)) {
			if _, ok := graph.Package(req.Name); !ok {
				continue
			}
			e := domain.Edge{From: d.pkg, To: req.Name, Marker: req.Marker.String()}
			if seenEdges[e] {
				continue
			}
			seenEdges[e] = true
			graph.AddEdge(e)
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

// devOnlyPackages marks packages reachable from dev requirements but not
// from regular ones.
func (st *solveState) devOnlyPackages() map[domain.InternedString]bool {
	reachableFrom := func(roots []domain.Requirement) map[domain.InternedString]bool {
		seen := make(map[domain.InternedString]bool)
		var queue []domain.InternedString
		for _, req := range roots {
			if !req.ApplicableTo(st.env) {
				continue
			}
			if _, decided := st.solution.decisionFor(req.Name); decided && !seen[req.Name] {
				seen[req.Name] = true
				queue = append(queue, req.Name)
			}
		}
		for len(queue) > 0 {
			pkg := queue[0]
			queue = queue[1:]
			version, _ := st.solution.decisionFor(pkg)
			meta, ok := st.metadata[metadataKey{pkg: pkg, version: version.String()}]
			if !ok {
				continue
			}
			for _, req := range meta.RequirementsFor(st.env, st.activeExtras(pkg)) {
				if _, decided := st.solution.decisionFor(req.Name); decided && !seen[req.Name] {
					seen[req.Name] = true
					queue = append(queue, req.Name)
				}
			}
		}
		return seen
	}

	regular := reachableFrom(st.manifest.Requirements)
	dev := reachableFrom(st.manifest.DevRequirements)
	out := make(map[domain.InternedString]bool)
	for pkg := range dev {
		if !regular[pkg] {
			out[pkg] = true
		}
	}
	return out
}
