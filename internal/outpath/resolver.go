package outpath

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Resolver hands out destinations that do not clobber each other. A
// destination already claimed by another source, or already present on disk
// without being claimed by this source, gets a " (N)" suffix. All methods
// are goroutine-safe.
type Resolver struct {
	mu     sync.Mutex
	owners map[string]string // destination -> source that claimed it
	exists func(path string) bool
}

// NewResolver creates a resolver. exists may be nil, in which case only
// claims made through this resolver count as collisions.
func NewResolver(exists func(path string) bool) *Resolver {
	if exists == nil {
		exists = func(string) bool { return false }
	}
	return &Resolver{
		owners: make(map[string]string),
		exists: exists,
	}
}

// Resolve joins the destination for source and claims it.
func (r *Resolver) Resolve(source, overrideDir, format string) (string, error) {
	requested, err := Join(source, overrideDir, format)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.available(requested, source) {
		r.owners[requested] = source
		return requested, nil
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if r.available(candidate, source) {
			r.owners[candidate] = source
			return candidate, nil
		}
	}
}

// Forget drops every claim held by source.
func (r *Resolver) Forget(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dest, owner := range r.owners {
		if owner == source {
			delete(r.owners, dest)
		}
	}
}

func (r *Resolver) available(dest, source string) bool {
	if dest == source {
		return false
	}
	owner, claimed := r.owners[dest]
	if claimed {
		return owner == source
	}
	return !r.exists(dest)
}
