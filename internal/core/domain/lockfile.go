package domain

// LockFormatVersion is the current lock file schema version, bumped on
// incompatible changes to allow migrations.
const LockFormatVersion = 1

// ResolverVersion identifies the resolution algorithm that produced a
// lock. A lock resolved by a different algorithm version is treated as
// stale even when the manifest fingerprint still matches.
const ResolverVersion = "pubgrub/1"

// Lockfile is the persisted form of a resolution: the full graph plus the
// fingerprint of the inputs that produced it. It is created by the
// resolver and lock codec, consumed by the synchronizer, and mutated only
// by re-resolution.
type Lockfile struct {
	// Version is the lock file format version.
	Version int

	// Fingerprint is the manifest fingerprint the lock was resolved from.
	Fingerprint string

	// Resolver is the algorithm version that produced the lock.
	Resolver string

	// Graph is the resolved package set.
	Graph *ResolutionGraph
}

// Fresh reports whether the lock still matches a manifest fingerprint and
// the current resolver algorithm.
func (l *Lockfile) Fresh(fingerprint string) bool {
	return l.Fingerprint == fingerprint && l.Resolver == ResolverVersion
}
