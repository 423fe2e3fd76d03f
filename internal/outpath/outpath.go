// Package outpath computes where converted files are written.
package outpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidSource   = errors.New("invalid source path")
	ErrInvalidFormat   = errors.New("invalid target format")
	ErrInvalidOverride = errors.New("output directory must be an absolute path")
	ErrPathEscapesRoot = errors.New("destination escapes output directory")
)

// Join returns the destination for converting source into format. With an
// override directory the file lands in that directory, otherwise next to the
// source. The extension of source is replaced, never appended to.
func Join(source, overrideDir, format string) (string, error) {
	if source == "" || strings.ContainsRune(source, 0) {
		return "", ErrInvalidSource
	}
	if !validFormat(format) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q has no file name", ErrInvalidSource, source)
	}

	// The extension counts against the single-element name limit.
	nameLimit := maxNameBytes - len(format) - 1

	if overrideDir == "" {
		return filepath.Join(filepath.Dir(source), truncateToBytes(stem, nameLimit)+"."+format), nil
	}

	if strings.ContainsRune(overrideDir, 0) || !filepath.IsAbs(overrideDir) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOverride, overrideDir)
	}
	root := filepath.Clean(overrideDir)
	dest := filepath.Join(root, truncateToBytes(SanitizeFilename(stem), nameLimit)+"."+format)
	if err := within(root, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func within(root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrPathEscapesRoot, path)
	}
	if filepath.Dir(path) != root {
		return fmt.Errorf("%w: %s", ErrPathEscapesRoot, path)
	}
	return nil
}

func validFormat(format string) bool {
	if format == "" || len(format) > 8 {
		return false
	}
	for _, r := range format {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
