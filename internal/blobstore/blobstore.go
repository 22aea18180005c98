// Package blobstore persists encoded chunk blobs to a filesystem scratch
// directory with deterministic, collision-free paths (spec §6.2).
package blobstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/logging"
)

// Store writes and locates chunk blobs under a root directory. Paths follow
// chunks/{track_id}/{preset}_{intensity*10}/{chunk_index:06d}.webm.
type Store struct {
	root string
	log  *slog.Logger
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("dir", dir).
			Build()
	}
	return &Store{root: dir, log: logging.ForService("blobstore")}, nil
}

// Path returns the deterministic on-disk path for a chunk, without touching
// the filesystem.
func (s *Store) Path(trackID uint64, preset string, intensity float64, chunkIndex int) string {
	intensityTenths := uint8(intensity*10 + 0.5)
	subdir := fmt.Sprintf("%s_%d", preset, intensityTenths)
	filename := fmt.Sprintf("%06d.webm", chunkIndex)
	return filepath.Join(s.root, fmt.Sprintf("%d", trackID), subdir, filename)
}

// Exists reports whether a chunk blob is already present (ChunkProcessor's
// idempotency check, spec §4.6 step 1).
func (s *Store) Exists(trackID uint64, preset string, intensity float64, chunkIndex int) bool {
	_, err := os.Stat(s.Path(trackID, preset, intensity, chunkIndex))
	return err == nil
}

// Write persists blob atomically: write to a temp file in the same
// directory, then rename, so concurrent readers never observe a partial
// file.
func (s *Store) Write(trackID uint64, preset string, intensity float64, chunkIndex int, blob []byte) (string, error) {
	dest := s.Path(trackID, preset, intensity, chunkIndex)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("dir", dir).
			Build()
	}

	tmp := dest + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return "", errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("path", tmp).
			Build()
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("path", dest).
			Build()
	}

	s.log.Debug("wrote chunk blob", "path", dest, "bytes", len(blob))
	return dest, nil
}

// Read loads a previously written chunk blob.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("path", path).
			Build()
	}
	return data, nil
}

// RemoveTrack deletes every blob for a track, used when evicting a fully
// stale scratch subtree.
func (s *Store) RemoveTrack(trackID uint64) error {
	dir := filepath.Join(s.root, fmt.Sprintf("%d", trackID))
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err).
			Component("blobstore").
			Category(errors.CategoryCacheIO).
			Context("dir", dir).
			Build()
	}
	return nil
}
