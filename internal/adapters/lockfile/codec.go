// Package lockfile implements the canonical lock codec. Encoding is
// deterministic: packages and edges are emitted in their canonical sort
// order with a fixed field layout, so the same graph always produces the
// same bytes and lock diffs stay reviewable.
package lockfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// lockDocument is the YAML schema of the lock file.
type lockDocument struct {
	Version      int               `yaml:"version"`
	Fingerprint  string            `yaml:"fingerprint"`
	Resolver     string            `yaml:"resolver"`
	Packages     []packageEntry    `yaml:"packages"`
	Dependencies []dependencyEntry `yaml:"dependencies,omitempty"`
}

type packageEntry struct {
	Name     string        `yaml:"name"`
	Version  string        `yaml:"version"`
	Extras   []string      `yaml:"extras,omitempty"`
	Dev      bool          `yaml:"dev,omitempty"`
	Artifact artifactEntry `yaml:"artifact,omitempty"`
}

type artifactEntry struct {
	Filename string `yaml:"filename,omitempty"`
	URL      string `yaml:"url,omitempty"`
	Sha256   string `yaml:"sha256,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
}

type dependencyEntry struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Marker string `yaml:"marker,omitempty"`
}

// Encode renders a lockfile into its canonical byte form.
func Encode(lock *domain.Lockfile) ([]byte, error) {
	doc := lockDocument{
		Version:     lock.Version,
		Fingerprint: lock.Fingerprint,
		Resolver:    lock.Resolver,
	}
	for _, pkg := range lock.Graph.SortedPackages() {
		doc.Packages = append(doc.Packages, packageEntry{
			Name:    pkg.Name.String(),
			Version: pkg.Version.String(),
			Extras:  pkg.Extras,
			Dev:     pkg.Dev,
			Artifact: artifactEntry{
				Filename: pkg.Artifact.Filename,
				URL:      pkg.Artifact.URL,
				Sha256:   pkg.Artifact.Hash,
				Tag:      pkg.Artifact.CompatTag,
			},
		})
	}
	for _, e := range lock.Graph.SortedEdges() {
		doc.Dependencies = append(doc.Dependencies, dependencyEntry{
			From:   e.From.String(),
			To:     e.To.String(),
			Marker: e.Marker,
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	return data, nil
}

// Decode parses lock bytes and validates internal consistency. Any
// structural problem is ErrMalformedLock.
func Decode(data []byte) (*domain.Lockfile, error) {
	var doc lockDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(err, domain.ErrMalformedLock.Error())
	}
	if doc.Version != domain.LockFormatVersion {
		return nil, zerr.With(domain.ErrMalformedLock, "format_version", strconv.Itoa(doc.Version))
	}
	if doc.Fingerprint == "" {
		return nil, zerr.With(domain.ErrMalformedLock, "field", "fingerprint")
	}

	graph := domain.NewResolutionGraph()
	for _, entry := range doc.Packages {
		if entry.Name == "" {
			return nil, zerr.With(domain.ErrMalformedLock, "field", "name")
		}
		version, err := domain.ParseVersion(entry.Version)
		if err != nil {
			wrapped := zerr.Wrap(err, domain.ErrMalformedLock.Error())
			return nil, zerr.With(wrapped, "package", entry.Name)
		}
		pkg := domain.ResolvedPackage{
			Name:    domain.NewInternedString(entry.Name),
			Version: version,
			Extras:  entry.Extras,
			Dev:     entry.Dev,
			Artifact: domain.Artifact{
				Filename:  entry.Artifact.Filename,
				URL:       entry.Artifact.URL,
				Hash:      entry.Artifact.Sha256,
				CompatTag: entry.Artifact.Tag,
			},
		}
		if err := graph.AddPackage(pkg); err != nil {
			return nil, zerr.Wrap(err, domain.ErrMalformedLock.Error())
		}
	}
	for _, entry := range doc.Dependencies {
		graph.AddEdge(domain.Edge{
			From:   domain.NewInternedString(entry.From),
			To:     domain.NewInternedString(entry.To),
			Marker: entry.Marker,
		})
	}
	if err := graph.Validate(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrMalformedLock.Error())
	}

	return &domain.Lockfile{
		Version:     doc.Version,
		Fingerprint: doc.Fingerprint,
		Resolver:    doc.Resolver,
		Graph:       graph,
	}, nil
}

// Stale returns ErrStaleLock when the lock no longer matches the
// manifest's fingerprint or was produced by a different resolver
// algorithm.
func Stale(lock *domain.Lockfile, manifest *domain.Manifest) error {
	if lock.Fresh(manifest.Fingerprint()) {
		return nil
	}
	err := zerr.With(domain.ErrStaleLock, "lock_fingerprint", lock.Fingerprint)
	return zerr.With(err, "manifest_fingerprint", manifest.Fingerprint())
}

// FileHash is a fast whole-file hash for "lock unchanged" checks. It is
// not a security boundary; artifact integrity uses sha256.
func FileHash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Load reads and decodes the lock at path. A missing file returns
// ErrNotFound so callers can distinguish "never locked".
func Load(path string) (*domain.Lockfile, error) {
	//nolint:gosec // path comes from the project layout, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrNotFound, "path", path)
		}
		return nil, zerr.Wrap(err, domain.ErrLockReadFailed.Error())
	}
	return Decode(data)
}

// Save encodes and writes the lock atomically.
func Save(path string, lock *domain.Lockfile) error {
	data, err := Encode(lock)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	tmp, err := os.CreateTemp(dir, domain.LockFileName+".tmp*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.Wrap(err, domain.ErrLockWriteFailed.Error())
	}
	return nil
}
