// Package fs is the local filesystem behind port.FileSystem.
package fs

import (
	"fmt"
	"os"

	"github.com/bnema/mediaconv/internal/port"
)

type Local struct{}

func New() Local { return Local{} }

// Size returns the size of a regular file.
func (Local) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}

// Exists reports whether anything occupies path. Broken symlinks count.
func (Local) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

var _ port.FileSystem = Local{}
