package ports

// EvictPolicy bounds the cache store's size and entry age for an eviction
// sweep. Zero values leave the corresponding dimension unbounded.
type EvictPolicy struct {
	// MaxBytes is the total size the store may occupy after the sweep.
	MaxBytes int64

	// MaxAgeSeconds evicts entries not accessed within this window.
	MaxAgeSeconds int64
}

// CacheStore is a content-addressed persistent store for artifact and
// metadata bytes. Keys are the hex sha256 of the stored content, giving
// deduplication and tamper detection. Entries are immutable once written
// and removed only by explicit eviction.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Put stores bytes and returns their content hash. Storing the same
	// bytes twice returns the same hash without duplicating storage.
	Put(data []byte) (hash string, err error)

	// Get returns the bytes stored under hash, re-verifying their
	// integrity. Returns domain.ErrNotFound for absent entries and
	// domain.ErrIntegrityMismatch for corrupted ones.
	Get(hash string) ([]byte, error)

	// Has reports whether an entry exists without reading it.
	Has(hash string) bool

	// Evict removes entries per the policy. Entries with an in-flight
	// Get or Put are never removed.
	Evict(policy EvictPolicy) error
}
