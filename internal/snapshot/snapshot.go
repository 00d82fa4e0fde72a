// Package snapshot provides a content-addressed file snapshot store so
// checkpoints can revert tracked files to an earlier state.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store keeps file contents as content-addressed blobs under a single
// objects directory, keyed by the sha256 of the content.
type Store struct {
	dir string
}

// New creates a snapshot store rooted at dir.
func New(dir string) (*Store, error) {
	objects := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objects, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Snapshot hashes and stores the content of each path, returning the
// path-to-hash mapping. Paths that do not exist are skipped; a milestone
// may legitimately not have produced all declared artifacts yet.
func (s *Store) Snapshot(paths []string) (map[string]string, error) {
	files := make(map[string]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		if err := s.writeBlob(hash, data); err != nil {
			return nil, err
		}
		files[path] = hash
	}
	return files, nil
}

// Restore writes the snapshotted content back to each path. Returns
// false without touching any file if a blob is missing, so a partially
// garbage-collected snapshot never half-reverts the tree.
func (s *Store) Restore(files map[string]string) (bool, error) {
	blobs := make(map[string][]byte, len(files))
	for path, hash := range files {
		data, err := os.ReadFile(s.blobPath(hash))
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("read blob %s: %w", hash, err)
		}
		blobs[path] = data
	}

	for path, data := range blobs {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return false, fmt.Errorf("create directory for %s: %w", path, err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return false, fmt.Errorf("restore %s: %w", path, err)
		}
	}
	return true, nil
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.dir, "objects", hash)
}

func (s *Store) writeBlob(hash string, data []byte) error {
	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write blob %s: %w", hash, err)
	}
	return nil
}
