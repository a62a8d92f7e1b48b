// Package registry implements the metadata provider against a package
// index's JSON API. Version documents are immutable per name+version, so
// they are cached through the content-addressed store with a small key
// index; version listings are always fetched live.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 250 * time.Millisecond
)

// Provider is an HTTP ports.MetadataProvider.
type Provider struct {
	baseURL     string
	client      *http.Client
	store       ports.CacheStore
	indexDir    string
	maxAttempts int
	baseDelay   time.Duration

	mu      sync.RWMutex
	sources []string
	memo    map[string]*domain.PackageMetadata
}

// Option configures a Provider.
type Option func(*Provider)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithRetry overrides the retry schedule.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Provider) {
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
	}
}

// NewProvider creates a Provider for the index at baseURL. Fetched
// version documents are persisted through store, with the name+version
// to content-hash mapping kept under indexDir.
func NewProvider(baseURL string, store ports.CacheStore, indexDir string, opts ...Option) (*Provider, error) {
	if err := os.MkdirAll(indexDir, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	p := &Provider{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: time.Minute},
		store:       store,
		indexDir:    filepath.Clean(indexDir),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		memo:        make(map[string]*domain.PackageMetadata),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetSources installs a project's index sources, highest priority
// first. It implements ports.SourceConfigurer and must be called before
// resolution starts querying the provider.
func (p *Provider) SetSources(urls []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = p.sources[:0]
	for _, u := range urls {
		u = strings.TrimSuffix(strings.TrimSpace(u), "/")
		if u != "" && u != p.baseURL {
			p.sources = append(p.sources, u)
		}
	}
}

// bases returns the index base URLs in lookup order: project sources
// first, then the configured default.
func (p *Provider) bases() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.sources)+1)
	out = append(out, p.sources...)
	return append(out, p.baseURL)
}

// lookup fetches path from each index base in order. A source that does
// not carry the package falls through to the next one; any other
// failure aborts the chain.
func (p *Provider) lookup(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for _, base := range p.bases() {
		body, err := p.get(ctx, base+path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrNotFound) {
			break
		}
	}
	return nil, lastErr
}

// Versions lists a package's published versions, newest first.
// Listings change when versions are published, so they are never cached.
func (p *Provider) Versions(ctx context.Context, name string) ([]domain.Version, error) {
	canonical := domain.CanonicalName(name)
	body, err := p.lookup(ctx, "/"+url.PathEscape(canonical)+"/json")
	if err != nil {
		return nil, p.fetchErr(err, canonical, "")
	}

	var doc projectDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, p.fetchErr(err, canonical, "")
	}

	versions := make([]domain.Version, 0, len(doc.Versions))
	for _, raw := range doc.Versions {
		v, err := domain.ParseVersion(raw)
		if err != nil {
			// An unparsable version is the index's problem, not a reason
			// to fail the whole listing.
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) > 0 })
	return versions, nil
}

// Metadata returns the document for one name+version, from memory, the
// persistent cache, or the network, in that order.
func (p *Provider) Metadata(ctx context.Context, name string, version domain.Version) (*domain.PackageMetadata, error) {
	canonical := domain.CanonicalName(name)
	key := canonical + " " + version.String()

	p.mu.RLock()
	meta, ok := p.memo[key]
	p.mu.RUnlock()
	if ok {
		return meta, nil
	}

	body, cached := p.cachedDocument(canonical, version)
	if !cached {
		var err error
		body, err = p.lookup(ctx, "/"+url.PathEscape(canonical)+"/"+url.PathEscape(version.String())+"/json")
		if err != nil {
			return nil, p.fetchErr(err, canonical, version.String())
		}
		p.persistDocument(canonical, version, body)
	}

	meta, err := p.decode(body, canonical, version)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.memo[key] = meta
	p.mu.Unlock()
	return meta, nil
}

func (p *Provider) decode(body []byte, name string, version domain.Version) (*domain.PackageMetadata, error) {
	var doc versionDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, p.fetchErr(err, name, version.String())
	}

	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString(name),
		Version: version,
	}
	for _, raw := range doc.Requires {
		req, err := domain.ParseRequirement(raw)
		if err != nil {
			return nil, p.fetchErr(err, name, version.String())
		}
		meta.Requires = append(meta.Requires, req)
	}
	if len(doc.Extras) > 0 {
		meta.ExtraRequires = make(map[string][]domain.Requirement, len(doc.Extras))
		for extra, raws := range doc.Extras {
			for _, raw := range raws {
				req, err := domain.ParseRequirement(raw)
				if err != nil {
					return nil, p.fetchErr(err, name, version.String())
				}
				meta.ExtraRequires[extra] = append(meta.ExtraRequires[extra], req)
			}
		}
	}
	for _, a := range doc.Artifacts {
		meta.Artifacts = append(meta.Artifacts, domain.Artifact{
			Filename:  a.Filename,
			URL:       a.URL,
			Hash:      a.Sha256,
			CompatTag: a.Tag,
		})
	}
	return meta, nil
}

// keyPath is the index file holding the content hash of a cached
// version document.
func (p *Provider) keyPath(name string, version domain.Version) string {
	return filepath.Join(p.indexDir, name+"-"+version.String()+".key")
}

func (p *Provider) cachedDocument(name string, version domain.Version) ([]byte, bool) {
	//nolint:gosec // path is built from canonicalized name and version
	hash, err := os.ReadFile(p.keyPath(name, version))
	if err != nil {
		return nil, false
	}
	body, err := p.store.Get(strings.TrimSpace(string(hash)))
	if err != nil {
		// Evicted or corrupted underneath the key: refetch.
		return nil, false
	}
	return body, true
}

func (p *Provider) persistDocument(name string, version domain.Version, body []byte) {
	hash, err := p.store.Put(body)
	if err != nil {
		return // caching is best effort
	}
	_ = os.WriteFile(p.keyPath(name, version), []byte(hash), domain.FilePerm)
}

// get performs a GET with bounded exponential backoff on transient
// failures, mirroring the artifact fetcher's schedule.
func (p *Provider) get(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := p.attempt(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (p *Provider) attempt(ctx context.Context, target string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return data, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, true, zerr.With(domain.ErrMetadataFetchFailed, "status", strconv.Itoa(resp.StatusCode))
	default:
		return nil, false, zerr.With(domain.ErrMetadataFetchFailed, "status", strconv.Itoa(resp.StatusCode))
	}
}

func (p *Provider) fetchErr(err error, name, version string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return zerr.With(domain.ErrNotFound, "package", name)
	}
	wrapped := zerr.With(zerr.Wrap(err, domain.ErrMetadataFetchFailed.Error()), "package", name)
	if version != "" {
		wrapped = zerr.With(wrapped, "version", version)
	}
	return wrapped
}
