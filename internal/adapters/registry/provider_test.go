package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/adapters/cas"
	"go.trai.ch/pakt/internal/core/domain"
)

// testIndex serves a small fixed index and counts document requests.
type testIndex struct {
	server   *httptest.Server
	projects map[string]projectDocument
	docs     map[string]versionDocument
	hits     atomic.Int32
}

func newTestIndex(t *testing.T) *testIndex {
	t.Helper()
	idx := &testIndex{
		projects: make(map[string]projectDocument),
		docs:     make(map[string]versionDocument),
	}
	idx.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx.hits.Add(1)
		var payload any
		switch {
		case len(r.URL.Path) > 5 && r.URL.Path[len(r.URL.Path)-5:] == "/json":
			path := r.URL.Path[1 : len(r.URL.Path)-5]
			if doc, ok := idx.docs[path]; ok {
				payload = doc
			} else if proj, ok := idx.projects[path]; ok {
				payload = proj
			}
		}
		if payload == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	t.Cleanup(idx.server.Close)
	return idx
}

func (idx *testIndex) add(name, version string, requires []string, extras map[string][]string) {
	proj := idx.projects[name]
	proj.Name = name
	proj.Versions = append(proj.Versions, version)
	idx.projects[name] = proj
	idx.docs[name+"/"+version] = versionDocument{
		Name:     name,
		Version:  version,
		Requires: requires,
		Extras:   extras,
		Artifacts: []artifactDocument{{
			Filename: name + "-" + version + ".whl",
			URL:      "https://files.test/" + name + "/" + version,
			Sha256:   "aa11",
			Tag:      "py3-none-any",
		}},
	}
}

func newTestProvider(t *testing.T, idx *testIndex) *Provider {
	t.Helper()
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	provider, err := NewProvider(idx.server.URL, store, t.TempDir(), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	return provider
}

func TestVersionsSortedDescending(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("pkg", "1.0", nil, nil)
	idx.add("pkg", "2.0", nil, nil)
	idx.add("pkg", "1.5", nil, nil)

	provider := newTestProvider(t, idx)
	versions, err := provider.Versions(t.Context(), "pkg")
	require.NoError(t, err)

	got := make([]string, 0, len(versions))
	for _, v := range versions {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"2.0", "1.5", "1.0"}, got)
}

func TestVersionsCanonicalizesName(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("my-pkg", "1.0", nil, nil)

	provider := newTestProvider(t, idx)
	versions, err := provider.Versions(t.Context(), "My_Pkg")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestVersionsUnknownPackage(t *testing.T) {
	idx := newTestIndex(t)

	provider := newTestProvider(t, idx)
	_, err := provider.Versions(t.Context(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadataDecodesDocument(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("web", "1.0", []string{"base>=1.0"}, map[string][]string{
		"tls": {"certs>=2.0"},
	})

	provider := newTestProvider(t, idx)
	meta, err := provider.Metadata(t.Context(), "web", domain.MustParseVersion("1.0"))
	require.NoError(t, err)

	require.Len(t, meta.Requires, 1)
	assert.Equal(t, "base", meta.Requires[0].Name.String())
	require.Len(t, meta.ExtraRequires["tls"], 1)
	require.Len(t, meta.Artifacts, 1)
	assert.Equal(t, "py3-none-any", meta.Artifacts[0].CompatTag)
}

func TestMetadataCachedAcrossProviders(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("pkg", "1.0", nil, nil)

	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	indexDir := t.TempDir()

	first, err := NewProvider(idx.server.URL, store, indexDir, WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	_, err = first.Metadata(t.Context(), "pkg", domain.MustParseVersion("1.0"))
	require.NoError(t, err)
	network := idx.hits.Load()

	// A fresh provider sharing the store must not refetch the document.
	second, err := NewProvider(idx.server.URL, store, indexDir, WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	meta, err := second.Metadata(t.Context(), "pkg", domain.MustParseVersion("1.0"))
	require.NoError(t, err)
	assert.Equal(t, "pkg", meta.Name.String())
	assert.Equal(t, network, idx.hits.Load())
}

func TestMetadataMemoizedInProcess(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("pkg", "1.0", nil, nil)

	provider := newTestProvider(t, idx)
	_, err := provider.Metadata(t.Context(), "pkg", domain.MustParseVersion("1.0"))
	require.NoError(t, err)
	network := idx.hits.Load()

	_, err = provider.Metadata(t.Context(), "pkg", domain.MustParseVersion("1.0"))
	require.NoError(t, err)
	assert.Equal(t, network, idx.hits.Load())
}

func TestVersionsConsultsSourcesBeforeDefault(t *testing.T) {
	fallback := newTestIndex(t)
	fallback.add("pkg", "1.0", nil, nil)
	source := newTestIndex(t)
	source.add("pkg", "2.0", nil, nil)

	provider := newTestProvider(t, fallback)
	provider.SetSources([]string{source.server.URL})

	versions, err := provider.Versions(t.Context(), "pkg")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "2.0", versions[0].String())
	// The winning source answered, so the default index stays untouched.
	assert.Equal(t, int32(0), fallback.hits.Load())
}

func TestVersionsFallsBackWhenSourceMissesPackage(t *testing.T) {
	fallback := newTestIndex(t)
	fallback.add("pkg", "1.0", nil, nil)
	source := newTestIndex(t)

	provider := newTestProvider(t, fallback)
	provider.SetSources([]string{source.server.URL})

	versions, err := provider.Versions(t.Context(), "pkg")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0", versions[0].String())
	assert.Equal(t, int32(1), source.hits.Load())
}

func TestMetadataConsultsSourcesBeforeDefault(t *testing.T) {
	fallback := newTestIndex(t)
	source := newTestIndex(t)
	source.add("pkg", "1.0", []string{"base>=1.0"}, nil)

	provider := newTestProvider(t, fallback)
	provider.SetSources([]string{source.server.URL})

	meta, err := provider.Metadata(t.Context(), "pkg", domain.MustParseVersion("1.0"))
	require.NoError(t, err)
	require.Len(t, meta.Requires, 1)
	assert.Equal(t, "base", meta.Requires[0].Name.String())
	assert.Equal(t, int32(0), fallback.hits.Load())
}

func TestMetadataRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(projectDocument{Name: "pkg", Versions: []string{"1.0"}}))
	}))
	defer server.Close()

	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	provider, err := NewProvider(server.URL, store, t.TempDir(), WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	versions, err := provider.Versions(t.Context(), "pkg")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVersionsSkipsUnparsableEntries(t *testing.T) {
	idx := newTestIndex(t)
	idx.add("pkg", "1.0", nil, nil)
	proj := idx.projects["pkg"]
	proj.Versions = append(proj.Versions, "not a version")
	idx.projects["pkg"] = proj

	provider := newTestProvider(t, idx)
	versions, err := provider.Versions(t.Context(), "pkg")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}
