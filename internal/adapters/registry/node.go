package registry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/cas"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
)

const NodeID graft.ID = "adapter.metadata_provider"

// defaultIndexURL is used when PAKT_INDEX_URL is not set.
const defaultIndexURL = "https://index.pakt.dev/simple"

func init() {
	graft.Register(graft.Node[ports.MetadataProvider]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cas.NodeID},
		Run: func(ctx context.Context) (ports.MetadataProvider, error) {
			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}
			baseURL := os.Getenv("PAKT_INDEX_URL")
			if baseURL == "" {
				baseURL = defaultIndexURL
			}
			return NewProvider(baseURL, store, domain.DefaultMetadataCachePath())
		},
	})
}
