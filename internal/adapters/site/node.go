package site

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
)

const NodeID graft.ID = "adapter.materializer"

func init() {
	graft.Register(graft.Node[ports.Materializer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Materializer, error) {
			return New(domain.DefaultSitePath())
		},
	})
}
