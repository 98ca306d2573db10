// Package file implements a DeviceKV over a directory of per-key files, the
// on-disk analogue of one device's local storage.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fieldreport/pkg/domain"
)

var _ domain.DeviceKV = (*Store)(nil)

// Store maps keys to files under a root directory. Writes go through a temp
// file and rename so a crashed write never leaves a truncated value behind.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a file-backed store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./devicedata"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create device store root: %w", err)
	}
	return &Store{root: root}, nil
}

func keyPath(root, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(root, key+".json"), nil
}

// GetString reads the value for key; a missing file is an absent key.
func (s *Store) GetString(key string) (string, bool, error) {
	path, err := keyPath(s.root, key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

// SetString writes the value for key atomically.
func (s *Store) SetString(key, value string) error {
	path, err := keyPath(s.root, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o640); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}
