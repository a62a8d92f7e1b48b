package domain

import "path/filepath"

const (
	// PaktDirName is the name of the internal workspace directory.
	PaktDirName = ".pakt"

	// StoreDirName is the name of the content addressable store directory.
	StoreDirName = "store"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// MetadataDirName is the name of the metadata cache directory.
	MetadataDirName = "metadata"

	// SiteDirName is the name of the materialized environment directory.
	SiteDirName = "site"

	// ManifestFileName is the name of the project manifest file.
	ManifestFileName = "pakt.yaml"

	// LockFileName is the name of the lock file.
	LockFileName = "pakt.lock"

	// SiteLockFileName is the name of the per-environment apply lock.
	SiteLockFileName = ".sync.lock"

	// SyncStateFileName is the marker recording which lock bytes the
	// environment was last synchronized against.
	SyncStateFileName = "last-sync"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultPaktPath returns the default root directory for pakt metadata.
func DefaultPaktPath() string {
	return PaktDirName
}

// DefaultStorePath returns the default path for the content addressable store.
// It joins .pakt and store.
func DefaultStorePath() string {
	return filepath.Join(PaktDirName, StoreDirName)
}

// DefaultMetadataCachePath returns the default path for the metadata cache index.
// It joins .pakt, cache, and metadata.
func DefaultMetadataCachePath() string {
	return filepath.Join(PaktDirName, CacheDirName, MetadataDirName)
}

// DefaultSitePath returns the default path for the materialized environment.
// It joins .pakt and site.
func DefaultSitePath() string {
	return filepath.Join(PaktDirName, SiteDirName)
}
