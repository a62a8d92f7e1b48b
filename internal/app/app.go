// Package app implements the application layer for pakt: the lock and
// sync workflows on top of the engines, plus the cache maintenance
// surface.
package app

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/pakt/internal/adapters/lockfile"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/engine/resolver"
	syncengine "go.trai.ch/pakt/internal/engine/sync"
	"go.trai.ch/zerr"
)

// defaultPrefetchLimit bounds the resolver's speculative metadata
// fetches.
const defaultPrefetchLimit = 8

// App wires the engines to the adapters for the CLI's workflows.
type App struct {
	loader    ports.ManifestLoader
	provider  ports.MetadataProvider
	fetcher   ports.ArtifactFetcher
	store     ports.CacheStore
	site      ports.Materializer
	logger    ports.Logger
	telemetry ports.Telemetry

	// workdir is the project root; "." outside tests.
	workdir string
}

// New creates an App instance.
func New(
	loader ports.ManifestLoader,
	provider ports.MetadataProvider,
	fetcher ports.ArtifactFetcher,
	store ports.CacheStore,
	site ports.Materializer,
	logger ports.Logger,
	telemetry ports.Telemetry,
) *App {
	return &App{
		loader:    loader,
		provider:  provider,
		fetcher:   fetcher,
		store:     store,
		site:      site,
		logger:    logger,
		telemetry: telemetry,
		workdir:   ".",
	}
}

// SetWorkdir points the app at a project directory. Used for testing.
func (a *App) SetWorkdir(dir string) {
	a.workdir = dir
}

func (a *App) lockPath() string {
	return filepath.Join(a.workdir, domain.LockFileName)
}

// Lock resolves the manifest and writes the lock file. A lock that is
// still fresh for the manifest is left untouched unless force is set.
func (a *App) Lock(ctx context.Context, force bool) error {
	manifest, err := a.loader.Load(a.workdir)
	if err != nil {
		return err
	}
	fingerprint := manifest.Fingerprint()

	if len(manifest.Sources) > 0 {
		if c, ok := a.provider.(ports.SourceConfigurer); ok {
			c.SetSources(manifest.Sources)
		}
	}

	if !force {
		if existing, err := lockfile.Load(a.lockPath()); err == nil && existing.Fresh(fingerprint) {
			a.logger.Info("lock file is up to date")
			return nil
		}
	}

	graph, err := resolver.New(a.provider, a.logger, resolver.Options{
		PrefetchLimit: defaultPrefetchLimit,
	}).Resolve(ctx, manifest)
	if err != nil {
		return zerr.Wrap(err, "resolution failed")
	}

	lock := &domain.Lockfile{
		Version:     domain.LockFormatVersion,
		Fingerprint: fingerprint,
		Resolver:    domain.ResolverVersion,
		Graph:       graph,
	}
	if err := lockfile.Save(a.lockPath(), lock); err != nil {
		return err
	}
	a.logger.Info("wrote " + a.lockPath())
	return nil
}

// Sync reconciles the environment with the lock file. A missing or
// stale lock is an error: resolution only ever happens through Lock.
func (a *App) Sync(ctx context.Context, includeDev bool) error {
	manifest, err := a.loader.Load(a.workdir)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(a.lockPath()) //nolint:gosec // path comes from the project layout
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			notFound := zerr.With(domain.ErrNotFound, "path", a.lockPath())
			return zerr.Wrap(notFound, "no lock file, run `pakt lock` first")
		}
		return zerr.Wrap(err, domain.ErrLockReadFailed.Error())
	}

	// Fast path: the exact same lock bytes were already applied for the
	// same manifest and scope, so nothing can have changed.
	state := syncStateFor(raw, manifest, includeDev)
	if previous, err := os.ReadFile(a.syncStatePath()); err == nil && string(previous) == state {
		a.logger.Info("environment already in sync")
		return nil
	}

	lock, err := lockfile.Decode(raw)
	if err != nil {
		return err
	}
	if err := lockfile.Stale(lock, manifest); err != nil {
		return zerr.Wrap(err, "lock file is stale, run `pakt lock` first")
	}

	engine := syncengine.New(a.fetcher, a.store, a.site, a.logger, a.telemetry)
	plan, err := engine.Sync(ctx, lock.Graph, syncengine.Options{IncludeDev: includeDev})
	if err != nil {
		return err
	}
	if !plan.Empty() {
		a.logger.Info("environment synchronized")
	}
	a.recordSyncState(state)
	return nil
}

// syncStateFor renders the fast-path marker: the lock's whole-file hash,
// the manifest fingerprint, and the sync scope.
func syncStateFor(lockBytes []byte, manifest *domain.Manifest, includeDev bool) string {
	state := lockfile.FileHash(lockBytes) + " " + manifest.Fingerprint()
	if includeDev {
		state += " dev"
	}
	return state
}

func (a *App) syncStatePath() string {
	return filepath.Join(a.workdir, domain.PaktDirName, domain.SyncStateFileName)
}

// recordSyncState is best effort; a missing marker only costs a replan.
func (a *App) recordSyncState(state string) {
	path := a.syncStatePath()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(state), domain.FilePerm)
}

// Check verifies the installed environment: every materialized artifact
// must still match the hash it was installed with.
func (a *App) Check(ctx context.Context) error {
	violations, err := a.site.Verify(ctx)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		a.logger.Info("environment verified")
		return nil
	}
	for _, v := range violations {
		a.logger.Warn(v.Package + ": " + v.Reason)
	}
	return zerr.With(domain.ErrIntegrityMismatch, "packages", len(violations))
}

// CacheEvict sweeps the content store with the given policy.
func (a *App) CacheEvict(policy ports.EvictPolicy) error {
	return a.store.Evict(policy)
}

// CacheDir returns the content store's location for display.
func (a *App) CacheDir() string {
	return domain.DefaultStorePath()
}

// Close releases long-lived adapters and flushes the telemetry stream.
func (a *App) Close() error {
	if a.telemetry != nil {
		return a.telemetry.Close()
	}
	return nil
}
