package resolver

import (
	"context"
	"sync"

	"go.trai.ch/pakt/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// prefetcher warms the metadata provider's cache for packages the
// decision loop is likely to visit. Fetches are advisory: failures are
// swallowed here and surface later, on the blocking fetch that actually
// needs the data.
type prefetcher struct {
	provider ports.MetadataProvider
	group    *errgroup.Group
	ctx      context.Context

	mu   sync.Mutex
	seen map[string]bool
}

func newPrefetcher(ctx context.Context, provider ports.MetadataProvider, limit int) *prefetcher {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	return &prefetcher{
		provider: provider,
		group:    group,
		ctx:      gctx,
		seen:     make(map[string]bool),
	}
}

// enqueue schedules a version-listing fetch for pkg, once per package.
func (p *prefetcher) enqueue(pkg string) {
	p.mu.Lock()
	if p.seen[pkg] {
		p.mu.Unlock()
		return
	}
	p.seen[pkg] = true
	p.mu.Unlock()

	p.group.Go(func() error {
		//nolint:errcheck // advisory fetch, the caller retries on demand
		p.provider.Versions(p.ctx, pkg)
		return nil
	})
}

// close waits for in-flight fetches so the provider is not used after
// the resolver returns.
func (p *prefetcher) close() {
	_ = p.group.Wait()
}
