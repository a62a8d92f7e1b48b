// Package site implements the default materializer: packages are
// materialized as directories under the site root, each carrying a
// pakt-meta.json record that makes the environment introspectable
// without any external database.
package site

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/zerr"
)

// metaFileName is the per-package installation record.
const metaFileName = "pakt-meta.json"

// metaRecord is the persisted shape of one installed package.
type metaRecord struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Extras   []string `json:"extras,omitempty"`
	Hash     string   `json:"hash"`
	Filename string   `json:"filename"`
	Dev      bool     `json:"dev,omitempty"`
}

// Site is a filesystem ports.Materializer.
type Site struct {
	root string
}

// New creates a Site rooted at dir, creating it if needed.
func New(dir string) (*Site, error) {
	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}
	return &Site{root: root}, nil
}

func (s *Site) packageDir(name string) string {
	return filepath.Join(s.root, domain.CanonicalName(name))
}

// Install materializes a package: the artifact bytes land next to the
// metadata record inside the package's directory. The record is written
// last, so a half-installed package is never reported by Installed.
func (s *Site) Install(ctx context.Context, pkg domain.ResolvedPackage, artifact []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := pkg.Name.String()
	dir := s.packageDir(name)

	// Reinstall replaces whatever was there.
	if err := os.RemoveAll(dir); err != nil {
		return s.installErr(err, name)
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return s.installErr(err, name)
	}

	filename := pkg.Artifact.Filename
	if filename == "" {
		filename = name + "-" + pkg.Version.String() + ".artifact"
	}
	//nolint:gosec // path is rooted in the site dir with a canonical name
	if err := os.WriteFile(filepath.Join(dir, filename), artifact, domain.FilePerm); err != nil {
		return s.installErr(err, name)
	}

	record := metaRecord{
		Name:     name,
		Version:  pkg.Version.String(),
		Extras:   pkg.Extras,
		Hash:     pkg.Artifact.Hash,
		Filename: filename,
		Dev:      pkg.Dev,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return s.installErr(err, name)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), data, domain.FilePerm); err != nil {
		return s.installErr(err, name)
	}
	return nil
}

func (s *Site) installErr(err error, name string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "package", name)
}

// Remove deletes a materialized package. Removing an absent package is
// not an error: the desired state is already true.
func (s *Site) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.packageDir(name)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRemoveFailed.Error()), "package", name)
	}
	return nil
}

// Installed scans the site and returns the current state. Directories
// without a readable record are skipped: they are half-installed
// leftovers the next Apply will replace.
func (s *Site) Installed(ctx context.Context) (domain.InstalledState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.InstalledState{}, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	state := make(domain.InstalledState)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		//nolint:gosec // path is rooted in the site dir
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name(), metaFileName))
		if err != nil {
			continue
		}
		var record metaRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		version, err := domain.ParseVersion(record.Version)
		if err != nil {
			continue
		}
		state[record.Name] = version
	}
	return state, nil
}

// Verify re-hashes every installed artifact against the hash its record
// was installed with. Packages without a readable record are ignored,
// matching Installed.
func (s *Site) Verify(ctx context.Context) ([]domain.IntegrityViolation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var violations []domain.IntegrityViolation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		//nolint:gosec // path is rooted in the site dir
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name(), metaFileName))
		if err != nil {
			continue
		}
		var record metaRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}

		//nolint:gosec // filename comes from the installation record
		artifact, err := os.ReadFile(filepath.Join(s.root, entry.Name(), record.Filename))
		if err != nil {
			violations = append(violations, domain.IntegrityViolation{
				Package: record.Name,
				Reason:  "artifact file missing",
			})
			continue
		}
		if record.Hash != "" && fmt.Sprintf("%x", sha256.Sum256(artifact)) != record.Hash {
			violations = append(violations, domain.IntegrityViolation{
				Package: record.Name,
				Reason:  "artifact content drifted from recorded hash",
			})
		}
	}
	return violations, nil
}

// Lock acquires the environment's exclusive apply lock via an O_EXCL
// lock file. A second locker gets ErrEnvironmentLocked immediately; the
// engine does not queue behind a running apply.
func (s *Site) Lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, domain.SiteLockFileName)
	//nolint:gosec // path is rooted in the site dir
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, zerr.With(domain.ErrEnvironmentLocked, "path", path)
		}
		return nil, zerr.Wrap(err, domain.ErrEnvironmentLocked.Error())
	}
	_, _ = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	_ = file.Close()

	return func() { _ = os.Remove(path) }, nil
}
