// Package storage persists uploaded file bytes under per-user
// directories. A file's metadata row must never be committed before
// its bytes are durably written here.
package storage

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store writes raw upload bytes to a filesystem root. Backed by the OS
// filesystem in production and a memory filesystem in tests.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a store rooted at dir on the OS filesystem
func New(dir string) *Store {
	return &Store{fs: afero.NewOsFs(), root: dir}
}

// NewWithFs creates a store over an arbitrary afero filesystem
func NewWithFs(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, root: dir}
}

// Write durably persists the bytes for (ownerUserID, fileID), creating
// the owner's directory if needed. The write goes through a temp file
// and a rename so a crash never leaves a partial file at the final
// path.
func (s *Store) Write(ownerUserID, fileID string, src io.Reader) (int64, error) {
	dir := filepath.Join(s.root, ownerUserID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create user directory: %v", err)
	}

	tmpPath := filepath.Join(dir, fileID+".part")
	finalPath := filepath.Join(dir, fileID)

	out, err := s.fs.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %v", err)
	}

	written, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		s.fs.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write file bytes: %v", err)
	}
	if err := out.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close file: %v", err)
	}

	if err := s.fs.Rename(tmpPath, finalPath); err != nil {
		s.fs.Remove(tmpPath)
		return 0, fmt.Errorf("failed to finalize file: %v", err)
	}

	return written, nil
}

// Open returns a reader over the stored bytes for (ownerUserID, fileID)
func (s *Store) Open(ownerUserID, fileID string) (io.ReadCloser, error) {
	return s.fs.Open(filepath.Join(s.root, ownerUserID, fileID))
}

// Exists reports whether bytes for (ownerUserID, fileID) are present
func (s *Store) Exists(ownerUserID, fileID string) (bool, error) {
	return afero.Exists(s.fs, filepath.Join(s.root, ownerUserID, fileID))
}
