package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
)

const NodeID graft.ID = "adapter.cache_store"

func init() {
	graft.Register(graft.Node[ports.CacheStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.CacheStore, error) {
			store, err := NewStore(domain.DefaultStorePath())
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
}
