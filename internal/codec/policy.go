// Package codec maps a media kind, target format and quality setting to the
// transcoder argument list. Every function here is pure.
package codec

import (
	"fmt"
	"strconv"

	"github.com/bnema/mediaconv/internal/domain"
)

// Options are the user-controlled knobs that apply to every policy.
type Options struct {
	Quality          int
	PreserveMetadata bool
}

type policyFunc func(quality int) []string

type policyKey struct {
	kind   domain.MediaType
	format string
}

var policies = map[policyKey]policyFunc{
	{domain.MediaTypeVideo, "mp4"}:  h264(true),
	{domain.MediaTypeVideo, "m4v"}:  h264(true),
	{domain.MediaTypeVideo, "mkv"}:  h264(false),
	{domain.MediaTypeVideo, "avi"}:  h264(false),
	{domain.MediaTypeVideo, "mov"}:  h264(false),
	{domain.MediaTypeVideo, "3gp"}:  h264(false),
	{domain.MediaTypeVideo, "ts"}:   h264(false),
	{domain.MediaTypeVideo, "webm"}: vp9,
	{domain.MediaTypeVideo, "gif"}:  gif,

	{domain.MediaTypeAudio, "mp3"}:  mp3,
	{domain.MediaTypeAudio, "ogg"}:  vorbis,
	{domain.MediaTypeAudio, "opus"}: opus,
	{domain.MediaTypeAudio, "flac"}: flac,
	{domain.MediaTypeAudio, "wav"}:  wav,
	{domain.MediaTypeAudio, "aac"}:  aac(false),
	{domain.MediaTypeAudio, "m4a"}:  aac(true),

	{domain.MediaTypeImage, "jpg"}:  jpeg,
	{domain.MediaTypeImage, "png"}:  png,
	{domain.MediaTypeImage, "webp"}: webp,
	{domain.MediaTypeImage, "avif"}: avif,
	{domain.MediaTypeImage, "bmp"}:  bmp,
	{domain.MediaTypeImage, "tiff"}: tiff,
}

// Supported reports whether a policy exists for the kind and format.
func Supported(kind domain.MediaType, format string) bool {
	_, ok := policies[policyKey{kind, domain.NormalizeFormat(format)}]
	return ok
}

// BuildArgs returns the transcoder arguments converting item into dest.
// The list has the shape -i <source> <policy> <metadata> <dest>.
func BuildArgs(item domain.MediaItem, dest, format string, opts Options) ([]string, error) {
	format = domain.NormalizeFormat(format)
	policy, ok := policies[policyKey{item.MediaType, format}]
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrUnsupportedFormat, item.MediaType, format)
	}
	if item.FilePath == "" || dest == "" {
		return nil, fmt.Errorf("source and destination are required")
	}

	args := make([]string, 0, 24)
	args = append(args, "-hide_banner", "-y", "-i", item.FilePath)
	args = append(args, policy(ClampQuality(opts.Quality))...)
	args = append(args, metadataArgs(opts.PreserveMetadata)...)
	args = append(args, dest)
	return args, nil
}

func metadataArgs(preserve bool) []string {
	if preserve {
		return []string{"-map_metadata", "0"}
	}
	return []string{"-map_metadata", "-1"}
}

// ClampQuality pins q into the supported 1-100 range.
func ClampQuality(q int) int {
	return max(domain.MinQuality, min(q, domain.MaxQuality))
}

func h264(fastStart bool) policyFunc {
	return func(q int) []string {
		args := []string{
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", strconv.Itoa(H264CRF(q)),
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-b:a", "128k",
		}
		if fastStart {
			args = append(args, "-movflags", "+faststart")
		}
		return args
	}
}

func vp9(q int) []string {
	return []string{
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(VP9CRF(q)),
		"-b:v", "0",
		"-row-mt", "1",
		"-pix_fmt", "yuv420p",
		"-c:a", "libopus",
		"-b:a", "128k",
	}
}

func gif(q int) []string {
	graph := fmt.Sprintf("fps=15,split[s0][s1];[s0]palettegen=max_colors=%d[p];[s1][p]paletteuse", GIFColors(q))
	return []string{"-vf", graph, "-loop", "0", "-an"}
}

func mp3(q int) []string {
	return []string{"-vn", "-c:a", "libmp3lame", "-q:a", strconv.Itoa(MP3VBR(q))}
}

func vorbis(q int) []string {
	return []string{"-vn", "-c:a", "libvorbis", "-q:a", strconv.Itoa(VorbisQuality(q))}
}

func opus(q int) []string {
	return []string{"-vn", "-c:a", "libopus", "-b:a", kbps(OpusBitrate(q))}
}

func flac(int) []string {
	return []string{"-vn", "-c:a", "flac", "-compression_level", "8"}
}

func wav(int) []string {
	return []string{"-vn", "-c:a", "pcm_s16le"}
}

func aac(fastStart bool) policyFunc {
	return func(q int) []string {
		args := []string{"-vn", "-c:a", "aac", "-b:a", kbps(AACBitrate(q))}
		if fastStart {
			args = append(args, "-movflags", "+faststart")
		}
		return args
	}
}

func jpeg(q int) []string {
	return []string{"-frames:v", "1", "-c:v", "mjpeg", "-q:v", strconv.Itoa(JPEGQScale(q))}
}

func png(q int) []string {
	graph := fmt.Sprintf("split[a][b];[a]palettegen=max_colors=%d[p];[b][p]paletteuse", PNGColors(q))
	return []string{"-frames:v", "1", "-vf", graph, "-c:v", "png"}
}

func webp(q int) []string {
	return []string{"-frames:v", "1", "-c:v", "libwebp", "-quality", strconv.Itoa(WebPQuality(q))}
}

func avif(q int) []string {
	return []string{"-frames:v", "1", "-c:v", "libaom-av1", "-still-picture", "1", "-crf", strconv.Itoa(AVIFCRF(q)), "-b:v", "0"}
}

func bmp(int) []string {
	return []string{"-frames:v", "1", "-c:v", "bmp"}
}

func tiff(int) []string {
	return []string{"-frames:v", "1", "-c:v", "tiff", "-compression_algo", "deflate"}
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}
