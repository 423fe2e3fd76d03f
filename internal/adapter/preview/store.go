// Package preview keeps transient thumbnails for ingested items and reads
// image dimensions.
package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrOutsideStore = errors.New("preview is outside the store")

// Store hands out unique file paths under one directory and removes them
// again on release.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve preview dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Root() string { return s.root }

// NewPath returns a fresh path for a preview of id. Nothing is created.
func (s *Store) NewPath(id, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("invalid preview extension %q", ext)
	}
	prefix := sanitizeID(id)
	return filepath.Join(s.root, prefix+"-"+uuid.NewString()+"."+ext), nil
}

// Release deletes ref. Refs outside the store are refused and a file that
// is already gone is not an error.
func (s *Store) Release(ref string) error {
	if ref == "" {
		return nil
	}
	clean := filepath.Clean(ref)
	if filepath.Dir(clean) != s.root {
		return fmt.Errorf("%w: %s", ErrOutsideStore, ref)
	}
	if err := os.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

// Purge removes every preview left behind by a previous run.
func (s *Store) Purge() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read preview dir: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 40 {
			break
		}
	}
	if b.Len() == 0 {
		return "preview"
	}
	return b.String()
}
