// Package sync reconciles a runtime environment with a resolution graph:
// it computes the minimal set of installs and removals, fetches artifact
// bytes through the content-addressed cache, and applies the changes
// under the environment's exclusive lock.
package sync

import (
	"context"
	"errors"
	"sort"
	gosync "sync"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds parallel artifact fetches when the caller
// does not set one.
const defaultConcurrency = 4

// Options configure one synchronization run.
type Options struct {
	// IncludeDev installs packages reachable only via development
	// requirements.
	IncludeDev bool

	// Concurrency bounds parallel artifact downloads. Zero means the
	// default.
	Concurrency int
}

// Synchronizer drives the plan/apply cycle against a materializer.
type Synchronizer struct {
	fetcher   ports.ArtifactFetcher
	store     ports.CacheStore
	site      ports.Materializer
	logger    ports.Logger
	telemetry ports.Telemetry
}

// New creates a Synchronizer. Telemetry may be nil.
func New(fetcher ports.ArtifactFetcher, store ports.CacheStore, site ports.Materializer, logger ports.Logger, telemetry ports.Telemetry) *Synchronizer {
	return &Synchronizer{
		fetcher:   fetcher,
		store:     store,
		site:      site,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Plan is the computed difference between the environment and the graph.
// Installs covers both missing packages and version changes; a version
// change is a remove-then-install of the same name.
type Plan struct {
	Installs []domain.ResolvedPackage
	Removals []string
}

// Empty reports whether the environment already matches the graph.
func (p Plan) Empty() bool {
	return len(p.Installs) == 0 && len(p.Removals) == 0
}

// Plan introspects the environment and diffs it against the graph.
// Packages already installed at the locked version are left untouched.
func (s *Synchronizer) Plan(ctx context.Context, graph *domain.ResolutionGraph, opts Options) (Plan, error) {
	installed, err := s.site.Installed(ctx)
	if err != nil {
		return Plan{}, err
	}

	// Graph equality only implies a no-op when dev packages are in
	// scope; without them an extra dev install must still be removed.
	if opts.IncludeDev && installed.Matches(graph) {
		return Plan{}, nil
	}

	var plan Plan
	want := make(map[string]bool)
	for _, pkg := range graph.SortedPackages() {
		if pkg.Dev && !opts.IncludeDev {
			continue
		}
		name := pkg.Name.String()
		want[name] = true
		if current, ok := installed[name]; ok && current.Compare(pkg.Version) == 0 {
			continue
		}
		plan.Installs = append(plan.Installs, pkg)
	}
	for _, name := range installed.SortedNames() {
		if !want[name] {
			plan.Removals = append(plan.Removals, name)
		}
	}
	return plan, nil
}

// Apply executes a plan. Artifact bytes are gathered concurrently, then
// changes are applied under the environment lock. A failing package does
// not abort the rest; all failures are aggregated into one error that
// names each affected package.
func (s *Synchronizer) Apply(ctx context.Context, plan Plan, opts Options) error {
	if plan.Empty() {
		return nil
	}

	payloads, fetchErrs := s.gather(ctx, plan.Installs, opts)

	release, err := s.site.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	var failures []error
	failures = append(failures, fetchErrs...)

	// Removals first so a version change never leaves two versions of
	// the same package materialized.
	for _, name := range plan.Removals {
		if err := s.remove(ctx, name); err != nil {
			failures = append(failures, err)
		}
	}
	for _, pkg := range plan.Installs {
		data, ok := payloads[pkg.Name.String()]
		if !ok {
			continue // its fetch already failed
		}
		if err := s.install(ctx, pkg, data); err != nil {
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return zerr.Wrap(errors.Join(failures...), domain.ErrPartialSyncFailure.Error())
	}
	return nil
}

// Sync is Plan followed by Apply.
func (s *Synchronizer) Sync(ctx context.Context, graph *domain.ResolutionGraph, opts Options) (Plan, error) {
	plan, err := s.Plan(ctx, graph, opts)
	if err != nil {
		return Plan{}, err
	}
	if plan.Empty() {
		s.logInfo("environment up to date")
		return plan, nil
	}
	return plan, s.Apply(ctx, plan, opts)
}

// gather fetches every install's artifact bytes, cache first, with
// bounded concurrency. Failures are returned per package instead of
// aborting the group.
func (s *Synchronizer) gather(ctx context.Context, installs []domain.ResolvedPackage, opts Options) (map[string][]byte, []error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var mu gosync.Mutex
	payloads := make(map[string][]byte, len(installs))
	var failures []error

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, pkg := range installs {
		group.Go(func() error {
			data, err := s.artifactBytes(gctx, pkg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, zerr.With(err, "package", pkg.Name.String()))
				return nil
			}
			payloads[pkg.Name.String()] = data
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Error() < failures[j].Error() })
	return payloads, failures
}

// artifactBytes returns the verified bytes for a package's artifact. The
// cache is tried first; a missing or corrupted entry falls back to a
// fresh download, which is re-cached.
func (s *Synchronizer) artifactBytes(ctx context.Context, pkg domain.ResolvedPackage) ([]byte, error) {
	vctx, vertex := s.record(ctx, "fetch "+pkg.Name.String()+" "+pkg.Version.String())

	hash := pkg.Artifact.Hash
	if pkg.Artifact.URL == "" {
		err := domain.ErrNoCompatibleArtifact
		s.complete(vertex, err)
		return nil, err
	}

	if s.store.Has(hash) {
		data, err := s.store.Get(hash)
		if err == nil {
			if vertex != nil {
				vertex.Cached()
			}
			s.complete(vertex, nil)
			return data, nil
		}
		// Corrupted or raced-away entry: fall through to a download.
		s.logWarn("cache entry unusable for " + pkg.Name.String() + ": " + err.Error())
	}

	data, err := s.fetcher.Fetch(vctx, pkg.Artifact.URL, hash)
	if err != nil {
		s.complete(vertex, err)
		return nil, err
	}
	if _, err := s.store.Put(data); err != nil {
		// The bytes are verified; failing to cache them is not fatal.
		s.logWarn("failed to cache artifact for " + pkg.Name.String() + ": " + err.Error())
	}
	s.complete(vertex, nil)
	return data, nil
}

func (s *Synchronizer) install(ctx context.Context, pkg domain.ResolvedPackage, data []byte) error {
	vctx, vertex := s.record(ctx, "install "+pkg.Name.String()+" "+pkg.Version.String())
	err := s.site.Install(vctx, pkg, data)
	s.complete(vertex, err)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "package", pkg.Name.String())
	}
	s.logInfo("installed " + pkg.Name.String() + " " + pkg.Version.String())
	return nil
}

func (s *Synchronizer) remove(ctx context.Context, name string) error {
	vctx, vertex := s.record(ctx, "remove "+name)
	err := s.site.Remove(vctx, name)
	s.complete(vertex, err)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRemoveFailed.Error()), "package", name)
	}
	s.logInfo("removed " + name)
	return nil
}

func (s *Synchronizer) record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	if s.telemetry == nil {
		return ctx, nil
	}
	return s.telemetry.Record(ctx, name)
}

func (s *Synchronizer) complete(vertex ports.Vertex, err error) {
	if vertex != nil {
		vertex.Complete(err)
	}
}

func (s *Synchronizer) logInfo(msg string) {
	if s.logger != nil {
		s.logger.Info(msg)
	}
}

func (s *Synchronizer) logWarn(msg string) {
	if s.logger != nil {
		s.logger.Warn(msg)
	}
}
