package preview

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/port"
)

const (
	thumbMaxSide = 320
	thumbQuality = 80
)

// Inspector reads image dimensions and writes a small JPEG thumbnail.
// Formats the standard decoders cannot read (heic, avif, raw) yield an error
// and the item simply has no metadata.
type Inspector struct {
	previews port.PreviewStore
	log      zerolog.Logger
}

func NewInspector(previews port.PreviewStore, log zerolog.Logger) *Inspector {
	return &Inspector{previews: previews, log: log}
}

func (i *Inspector) Inspect(ctx context.Context, path string) (*domain.ImageInfo, error) {
	cfg, err := decodeConfig(path)
	if err != nil {
		return nil, err
	}
	info := &domain.ImageInfo{Width: cfg.Width, Height: cfg.Height}

	if i.previews == nil || ctx.Err() != nil {
		return info, ctx.Err()
	}
	thumb, err := i.thumbnail(path)
	if err != nil {
		i.log.Debug().Err(err).Msg("image thumbnail failed")
		return info, nil
	}
	info.Thumbnail = thumb
	return info, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode image header: %w", err)
	}
	return cfg, nil
}

func (i *Inspector) thumbnail(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	ref, err := i.previews.NewPath("image", "jpg")
	if err != nil {
		return "", err
	}
	thumb := imaging.Fit(img, thumbMaxSide, thumbMaxSide, imaging.Lanczos)
	if err := imaging.Save(thumb, ref, imaging.JPEGQuality(thumbQuality)); err != nil {
		_ = i.previews.Release(ref)
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return ref, nil
}

var _ port.ImageInspector = (*Inspector)(nil)
