package ports

import (
	"context"

	"go.trai.ch/pakt/internal/core/domain"
)

// Materializer installs artifacts into a runtime environment and removes
// them. The engine treats it as an opaque external collaborator: archive
// extraction and interpreter mechanics live behind it.
//
//go:generate go run go.uber.org/mock/mockgen -source=materializer.go -destination=mocks/mock_materializer.go -package=mocks
type Materializer interface {
	// Install materializes a package's artifact bytes into the environment.
	Install(ctx context.Context, pkg domain.ResolvedPackage, artifact []byte) error

	// Remove deletes a materialized package by name.
	Remove(ctx context.Context, name string) error

	// Installed introspects the environment and returns its current state.
	Installed(ctx context.Context) (domain.InstalledState, error)

	// Lock acquires the environment's exclusive apply lock. The returned
	// release function must be called when the apply phase ends.
	Lock(ctx context.Context) (release func(), err error)

	// Verify re-hashes materialized artifacts against their recorded
	// hashes and reports packages whose content has drifted.
	Verify(ctx context.Context) ([]domain.IntegrityViolation, error)
}
