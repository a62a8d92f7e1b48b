package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/fetch"     //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/registry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/site"      //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/pakt/internal/core/ports"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			registry.NodeID,
			fetch.NodeID,
			cas.NodeID,
			site.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			provider, err := graft.Dep[ports.MetadataProvider](ctx)
			if err != nil {
				return nil, err
			}
			fetcher, err := graft.Dep[ports.ArtifactFetcher](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}
			materializer, err := graft.Dep[ports.Materializer](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			return New(loader, provider, fetcher, store, materializer, log, tel), nil
		},
	})
}
