package ports

import "context"

// ArtifactFetcher retrieves a distribution artifact from a remote source.
//
// Fetch verifies the downloaded bytes against expectedHash before
// returning them; a mismatch fails without caching. Concurrent fetches of
// the same hash are collapsed into one request.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type ArtifactFetcher interface {
	// Fetch downloads the artifact at url and returns its bytes after
	// verifying their sha256 equals expectedHash.
	Fetch(ctx context.Context, url, expectedHash string) ([]byte, error)
}
