package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidVersion is returned when a version string cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrInvalidSpecifier is returned when a version constraint expression cannot be parsed.
	ErrInvalidSpecifier = zerr.New("invalid version specifier")

	// ErrInvalidMarker is returned when an environment marker cannot be parsed.
	ErrInvalidMarker = zerr.New("invalid environment marker")

	// ErrInvalidRequirement is returned when a requirement declaration cannot be parsed.
	ErrInvalidRequirement = zerr.New("invalid requirement")

	// ErrDuplicatePackage is returned when a resolution graph already contains the package name.
	ErrDuplicatePackage = zerr.New("package already resolved")

	// ErrDanglingEdge is returned when a graph edge references a package absent from the node set.
	ErrDanglingEdge = zerr.New("edge references unresolved package")

	// ErrNoCompatibleVersion is returned when no version of a package satisfies all requirements on it.
	ErrNoCompatibleVersion = zerr.New("no compatible version")

	// ErrMetadataFetchFailed is returned when package metadata cannot be retrieved from the index.
	ErrMetadataFetchFailed = zerr.New("failed to fetch package metadata")

	// ErrCyclicExtraActivation is returned when extras activate each other without converging.
	ErrCyclicExtraActivation = zerr.New("cyclic extra activation")

	// ErrRuntimeIncompatible is returned when the target runtime version falls outside the manifest's runtime constraint.
	ErrRuntimeIncompatible = zerr.New("target runtime outside the supported range")

	// ErrMalformedLock is returned when a lock file fails structural validation.
	ErrMalformedLock = zerr.New("malformed lock file")

	// ErrStaleLock is returned when a lock's fingerprint does not match the current manifest.
	ErrStaleLock = zerr.New("lock file is stale, re-resolution required")

	// ErrIntegrityMismatch is returned when stored or fetched bytes do not match their expected hash.
	ErrIntegrityMismatch = zerr.New("content hash mismatch")

	// ErrNotFound is returned when a cache entry is absent.
	ErrNotFound = zerr.New("cache entry not found")

	// ErrPartialSyncFailure is returned when some packages of a sync failed while others were applied.
	ErrPartialSyncFailure = zerr.New("environment sync partially failed")

	// ErrNoCompatibleArtifact is returned when a resolved version publishes no artifact the target environment accepts.
	ErrNoCompatibleArtifact = zerr.New("no compatible artifact for target environment")

	// ErrManifestReadFailed is returned when the manifest file cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestParseFailed is returned when the manifest file cannot be parsed.
	ErrManifestParseFailed = zerr.New("failed to parse manifest")

	// ErrStoreCreateFailed is returned when the cache store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache store directory")

	// ErrStoreWriteFailed is returned when the cache store cannot publish an entry.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrStoreReadFailed is returned when a cache entry cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrFetchFailed is returned when an artifact download fails after retry exhaustion.
	ErrFetchFailed = zerr.New("failed to fetch artifact")

	// ErrInstallFailed is returned when materializing a package into an environment fails.
	ErrInstallFailed = zerr.New("failed to install package")

	// ErrRemoveFailed is returned when removing a package from an environment fails.
	ErrRemoveFailed = zerr.New("failed to remove package")

	// ErrEnvironmentLocked is returned when another synchronizer holds the environment's apply lock.
	ErrEnvironmentLocked = zerr.New("environment is locked by another sync")

	// ErrLockReadFailed is returned when the lock file cannot be read.
	ErrLockReadFailed = zerr.New("failed to read lock file")

	// ErrLockWriteFailed is returned when the lock file cannot be written.
	ErrLockWriteFailed = zerr.New("failed to write lock file")
)
