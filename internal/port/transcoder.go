package port

import (
	"context"

	"github.com/bnema/mediaconv/internal/domain"
)

// ProgressFunc receives completion percentages (0-100) for one invocation.
type ProgressFunc func(percent int)

// Transcoder runs one external transcoder invocation. Cancelling ctx must
// terminate the running process, not merely stop waiting for it.
type Transcoder interface {
	Transcode(ctx context.Context, req domain.TranscodeRequest, onProgress ProgressFunc) error
}
