// Package cas implements the content-addressed artifact store. Entries
// are keyed by the hex sha256 of their content and laid out in a
// two-level directory fan-out, so the same bytes are stored exactly once
// and corruption is detectable on every read.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store is a filesystem-backed ports.CacheStore. Writes are atomic
// (temp file + rename), so a crashed writer never leaves a partial
// entry under its final name.
type Store struct {
	root string

	// inflight counts active readers/writers per hash so eviction never
	// removes an entry mid-operation.
	mu       sync.Mutex
	inflight map[string]int
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	return &Store{
		root:     root,
		inflight: make(map[string]int),
	}, nil
}

// entryPath fans entries out by the first two hash characters to keep
// directory sizes bounded.
func (s *Store) entryPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

func (s *Store) acquire(hash string) {
	s.mu.Lock()
	s.inflight[hash]++
	s.mu.Unlock()
}

func (s *Store) release(hash string) {
	s.mu.Lock()
	if s.inflight[hash]--; s.inflight[hash] <= 0 {
		delete(s.inflight, hash)
	}
	s.mu.Unlock()
}

func (s *Store) busy(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[hash] > 0
}

// Put stores data under its content hash. Concurrent Puts of the same
// bytes are safe: each writes its own temp file and the rename is
// atomic, last one wins with identical content.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	s.acquire(hash)
	defer s.release(hash)

	path := s.entryPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), hash+".tmp*")
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return hash, nil
}

// Get reads an entry and re-verifies its hash, catching on-disk
// corruption. Reads refresh the entry's timestamp so eviction can order
// entries by last use.
func (s *Store) Get(hash string) ([]byte, error) {
	if len(hash) < 3 {
		return nil, zerr.With(domain.ErrNotFound, "hash", hash)
	}
	s.acquire(hash)
	defer s.release(hash)

	path := s.entryPath(hash)
	//nolint:gosec // path is derived from the store root and a hex hash
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrNotFound, "hash", hash)
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != hash {
		return nil, zerr.With(domain.ErrIntegrityMismatch, "hash", hash)
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return data, nil
}

// Has reports entry existence without reading or verifying it.
func (s *Store) Has(hash string) bool {
	if len(hash) < 3 {
		return false
	}
	_, err := os.Stat(s.entryPath(hash))
	return err == nil
}

type entryInfo struct {
	hash    string
	path    string
	size    int64
	modTime time.Time
}

// Evict removes entries per policy, oldest first. Entries with an
// in-flight Get or Put are skipped and counted against the budget as if
// they were kept.
func (s *Store) Evict(policy ports.EvictPolicy) error {
	entries, err := s.scan()
	if err != nil {
		return err
	}

	// Oldest last-use first.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	var total int64
	for _, e := range entries {
		total += e.size
	}

	now := time.Now()
	for _, e := range entries {
		tooOld := policy.MaxAgeSeconds > 0 && now.Sub(e.modTime) > time.Duration(policy.MaxAgeSeconds)*time.Second
		tooBig := policy.MaxBytes > 0 && total > policy.MaxBytes
		if !tooOld && !tooBig {
			continue
		}
		if s.busy(e.hash) {
			continue
		}
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
		}
		total -= e.size
	}
	return nil
}

func (s *Store) scan() ([]entryInfo, error) {
	var entries []entryInfo
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, entryInfo{
			hash:    d.Name(),
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return entries, nil
}
