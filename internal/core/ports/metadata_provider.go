// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/pakt/internal/core/domain"
)

// MetadataProvider fetches package metadata from an index.
//
// Versions lists the available versions of a package; Metadata returns
// the immutable metadata document for one name+version. Implementations
// cache metadata documents indefinitely and may be queried concurrently.
//
//go:generate go run go.uber.org/mock/mockgen -source=metadata_provider.go -destination=mocks/mock_metadata_provider.go -package=mocks
type MetadataProvider interface {
	// Versions returns the available versions of a package in descending
	// order.
	Versions(ctx context.Context, name string) ([]domain.Version, error)

	// Metadata returns the metadata for a specific package version.
	Metadata(ctx context.Context, name string, version domain.Version) (*domain.PackageMetadata, error)
}

// SourceConfigurer is implemented by metadata providers that can take a
// project's index sources ahead of a resolution. Sources are consulted
// in order before the provider's configured default index.
type SourceConfigurer interface {
	SetSources(urls []string)
}
