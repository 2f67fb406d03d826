// Package profile stores the engine's opaque save blob on disk.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrCorrupt is returned by Load when a profile exists but cannot be used.
var ErrCorrupt = errors.New("profile is corrupt")

const fileName = "tox_mrprickles"

// DefaultPath is $HOME/.cache/tox_mrprickles, or the same name under the
// system temp dir when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), fileName)
	}
	return filepath.Join(home, ".cache", fileName)
}

// Store reads and writes one profile file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store for path. An empty path selects DefaultPath.
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultPath()
	}
	return &Store{fs: fs, path: path}
}

// Path returns the file the store uses.
func (s *Store) Path() string { return s.path }

// Load returns the saved blob. found is false when no profile exists yet,
// which is not an error. An unreadable or empty file is.
func (s *Store) Load() (blob []byte, found bool, err error) {
	info, err := s.fs.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("failed to stat profile %s: %w", s.path, err)
	}
	if info.IsDir() {
		return nil, true, fmt.Errorf("%s is a directory: %w", s.path, ErrCorrupt)
	}

	blob, err = afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read profile %s: %w", s.path, err)
	}
	if len(blob) == 0 {
		return nil, true, fmt.Errorf("%s is empty: %w", s.path, ErrCorrupt)
	}
	return blob, true, nil
}

// Save writes blob next to the profile and renames it into place, so a crash
// mid-write leaves the previous profile intact.
func (s *Store) Save(blob []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}
