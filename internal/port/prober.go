package port

import (
	"context"

	"github.com/bnema/mediaconv/internal/domain"
)

type MediaProber interface {
	Probe(ctx context.Context, path string) (*domain.ProbeResult, error)
}

type ImageInspector interface {
	Inspect(ctx context.Context, path string) (*domain.ImageInfo, error)
}

// PreviewStore owns transient preview files such as thumbnails.
type PreviewStore interface {
	NewPath(id, ext string) (string, error)
	Release(ref string) error
}
