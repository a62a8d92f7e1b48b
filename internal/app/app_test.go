package app

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/adapters/lockfile"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// fakeProvider serves a fixed index and records whether it was queried.
type fakeProvider struct {
	index   map[string][]*domain.PackageMetadata
	queried bool
}

func (p *fakeProvider) Versions(_ context.Context, name string) ([]domain.Version, error) {
	p.queried = true
	metas, ok := p.index[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Version, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.Version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) > 0 })
	return out, nil
}

func (p *fakeProvider) Metadata(_ context.Context, name string, version domain.Version) (*domain.PackageMetadata, error) {
	p.queried = true
	for _, m := range p.index[name] {
		if m.Version.Compare(version) == 0 {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fixture struct {
	ctrl     *gomock.Controller
	loader   *mocks.MockManifestLoader
	provider *fakeProvider
	fetcher  *mocks.MockArtifactFetcher
	store    *mocks.MockCacheStore
	site     *mocks.MockMaterializer
	app      *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	f := &fixture{
		ctrl:     ctrl,
		loader:   mocks.NewMockManifestLoader(ctrl),
		provider: &fakeProvider{index: make(map[string][]*domain.PackageMetadata)},
		fetcher:  mocks.NewMockArtifactFetcher(ctrl),
		store:    mocks.NewMockCacheStore(ctrl),
		site:     mocks.NewMockMaterializer(ctrl),
	}
	f.app = New(f.loader, f.provider, f.fetcher, f.store, f.site, logger, nil)
	f.app.SetWorkdir(t.TempDir())
	return f
}

func (f *fixture) addPackage(t *testing.T, name, version string, requires ...string) {
	t.Helper()
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString(name),
		Version: domain.MustParseVersion(version),
		Artifacts: []domain.Artifact{{
			Filename:  name + "-" + version + ".whl",
			URL:       "https://files.test/" + name,
			Hash:      "aa11",
			CompatTag: "py3-none-any",
		}},
	}
	for _, raw := range requires {
		req, err := domain.ParseRequirement(raw)
		require.NoError(t, err)
		meta.Requires = append(meta.Requires, req)
	}
	f.provider.index[name] = append(f.provider.index[name], meta)
}

func someManifest(t *testing.T, requirements ...string) *domain.Manifest {
	t.Helper()
	m := &domain.Manifest{
		Environment: domain.TargetEnvironment{
			PythonVersion: "3.12",
			SysPlatform:   "linux",
			CompatTags:    []string{"py3-none-any"},
		},
	}
	for _, raw := range requirements {
		req, err := domain.ParseRequirement(raw)
		require.NoError(t, err)
		m.Requirements = append(m.Requirements, req)
	}
	return m
}

func TestLockWritesLockfile(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil)

	require.NoError(t, f.app.Lock(t.Context(), false))

	lock, err := lockfile.Load(f.app.lockPath())
	require.NoError(t, err)
	assert.Equal(t, manifest.Fingerprint(), lock.Fingerprint)
	assert.Equal(t, 1, lock.Graph.Len())
}

func TestLockSkipsWhenFresh(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(2)

	require.NoError(t, f.app.Lock(t.Context(), false))
	f.provider.queried = false

	// Second lock with an unchanged manifest must not resolve again.
	require.NoError(t, f.app.Lock(t.Context(), false))
	assert.False(t, f.provider.queried)
}

func TestLockForceReResolves(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(2)

	require.NoError(t, f.app.Lock(t.Context(), false))
	f.provider.queried = false

	require.NoError(t, f.app.Lock(t.Context(), true))
	assert.True(t, f.provider.queried)
}

func TestSyncWithoutLockFails(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(gomock.Any()).Return(someManifest(t, "a>=1.0"), nil)

	err := f.app.Sync(t.Context(), false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncWithStaleLockFails(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(2)

	require.NoError(t, f.app.Lock(t.Context(), false))

	// The manifest moved on since the lock was written.
	changed := someManifest(t, "a>=2.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(changed, nil)

	err := f.app.Sync(t.Context(), false)
	require.ErrorIs(t, err, domain.ErrStaleLock)
}

func TestSyncNoopWhenEnvironmentMatches(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(2)

	require.NoError(t, f.app.Lock(t.Context(), false))

	f.site.EXPECT().Installed(gomock.Any()).Return(domain.InstalledState{
		"a": domain.MustParseVersion("1.0"),
	}, nil)

	require.NoError(t, f.app.Sync(t.Context(), false))
}

func TestSyncFastPathSkipsUnchangedLock(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(3)

	require.NoError(t, f.app.Lock(t.Context(), false))

	// The first sync introspects the environment and records the applied
	// lock hash; the second must not touch the site at all.
	f.site.EXPECT().Installed(gomock.Any()).Return(domain.InstalledState{
		"a": domain.MustParseVersion("1.0"),
	}, nil).Times(1)

	require.NoError(t, f.app.Sync(t.Context(), false))
	require.NoError(t, f.app.Sync(t.Context(), false))
}

func TestSyncFastPathIgnoredWhenScopeChanges(t *testing.T) {
	f := newFixture(t)
	f.addPackage(t, "a", "1.0")
	manifest := someManifest(t, "a>=1.0")
	f.loader.EXPECT().Load(gomock.Any()).Return(manifest, nil).Times(3)

	require.NoError(t, f.app.Lock(t.Context(), false))

	// Same lock bytes, but a dev sync covers a different package set, so
	// the recorded marker must not short-circuit it.
	f.site.EXPECT().Installed(gomock.Any()).Return(domain.InstalledState{
		"a": domain.MustParseVersion("1.0"),
	}, nil).Times(2)

	require.NoError(t, f.app.Sync(t.Context(), false))
	require.NoError(t, f.app.Sync(t.Context(), true))
}

func TestCacheEvictDelegates(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().Evict(gomock.Any()).Return(nil)
	require.NoError(t, f.app.CacheEvict(ports.EvictPolicy{MaxBytes: 1024}))
}

func TestCheckCleanEnvironment(t *testing.T) {
	f := newFixture(t)
	f.site.EXPECT().Verify(gomock.Any()).Return(nil, nil)

	require.NoError(t, f.app.Check(t.Context()))
}

func TestCheckReportsViolations(t *testing.T) {
	f := newFixture(t)
	f.site.EXPECT().Verify(gomock.Any()).Return([]domain.IntegrityViolation{
		{Package: "pkg", Reason: "artifact file missing"},
	}, nil)

	err := f.app.Check(t.Context())
	require.ErrorIs(t, err, domain.ErrIntegrityMismatch)
}
