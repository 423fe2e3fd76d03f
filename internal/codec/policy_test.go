package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediaconv/internal/domain"
)

func item(kind domain.MediaType, path string) domain.MediaItem {
	return domain.MediaItem{ID: "id", MediaType: kind, FilePath: path}
}

func TestBuildArgs_Policies(t *testing.T) {
	tests := []struct {
		name   string
		item   domain.MediaItem
		format string
		opts   Options
		want   []string
	}{
		{
			name:   "mov to mp4 uses h264 with faststart",
			item:   item(domain.MediaTypeVideo, "/in/clip.mov"),
			format: "mp4",
			opts:   Options{Quality: 100},
			want: []string{
				"-hide_banner", "-y", "-i", "/in/clip.mov",
				"-c:v", "libx264", "-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p",
				"-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart",
				"-map_metadata", "-1",
				"/out/clip.mp4",
			},
		},
		{
			name:   "mkv has no container flag",
			item:   item(domain.MediaTypeVideo, "/in/clip.mov"),
			format: "mkv",
			opts:   Options{Quality: 1, PreserveMetadata: true},
			want: []string{
				"-hide_banner", "-y", "-i", "/in/clip.mov",
				"-c:v", "libx264", "-preset", "medium", "-crf", "51", "-pix_fmt", "yuv420p",
				"-c:a", "aac", "-b:a", "128k",
				"-map_metadata", "0",
				"/out/clip.mkv",
			},
		},
		{
			name:   "webm uses vp9 and opus",
			item:   item(domain.MediaTypeVideo, "/in/clip.mp4"),
			format: "webm",
			opts:   Options{Quality: 100},
			want: []string{
				"-hide_banner", "-y", "-i", "/in/clip.mp4",
				"-c:v", "libvpx-vp9", "-crf", "15", "-b:v", "0", "-row-mt", "1", "-pix_fmt", "yuv420p",
				"-c:a", "libopus", "-b:a", "128k",
				"-map_metadata", "-1",
				"/out/clip.webm",
			},
		},
		{
			name:   "gif uses palette graph without audio",
			item:   item(domain.MediaTypeVideo, "/in/clip.mp4"),
			format: "gif",
			opts:   Options{Quality: 100},
			want: []string{
				"-hide_banner", "-y", "-i", "/in/clip.mp4",
				"-vf", "fps=15,split[s0][s1];[s0]palettegen=max_colors=256[p];[s1][p]paletteuse",
				"-loop", "0", "-an",
				"-map_metadata", "-1",
				"/out/clip.gif",
			},
		},
		{
			name:   "wav to mp3 drops video",
			item:   item(domain.MediaTypeAudio, "/src/x.wav"),
			format: "mp3",
			opts:   Options{Quality: 100},
			want: []string{
				"-hide_banner", "-y", "-i", "/src/x.wav",
				"-vn", "-c:a", "libmp3lame", "-q:a", "0",
				"-map_metadata", "-1",
				"/out/x.mp3",
			},
		},
		{
			name:   "m4a is aac with faststart",
			item:   item(domain.MediaTypeAudio, "/src/x.wav"),
			format: "m4a",
			opts:   Options{Quality: 1},
			want: []string{
				"-hide_banner", "-y", "-i", "/src/x.wav",
				"-vn", "-c:a", "aac", "-b:a", "64k", "-movflags", "+faststart",
				"-map_metadata", "-1",
				"/out/x.m4a",
			},
		},
		{
			name:   "png to jpeg alias",
			item:   item(domain.MediaTypeImage, "/p/photo.png"),
			format: "jpeg",
			opts:   Options{Quality: 100},
			want: []string{
				"-hide_banner", "-y", "-i", "/p/photo.png",
				"-frames:v", "1", "-c:v", "mjpeg", "-q:v", "2",
				"-map_metadata", "-1",
				"/out/photo.jpg",
			},
		},
		{
			name:   "webp passes quality through",
			item:   item(domain.MediaTypeImage, "/p/photo.png"),
			format: "webp",
			opts:   Options{Quality: 42},
			want: []string{
				"-hide_banner", "-y", "-i", "/p/photo.png",
				"-frames:v", "1", "-c:v", "libwebp", "-quality", "42",
				"-map_metadata", "-1",
				"/out/photo.webp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildArgs(tt.item, tt.want[len(tt.want)-1], tt.format, tt.opts)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildArgs_EveryOfferedFormat(t *testing.T) {
	sources := map[domain.MediaType]string{
		domain.MediaTypeVideo: "/in/a.mov",
		domain.MediaTypeAudio: "/in/a.flac",
		domain.MediaTypeImage: "/in/a.heic",
	}

	for _, kind := range domain.MediaTypes() {
		for _, format := range domain.OutputFormats(kind) {
			t.Run(string(kind)+"/"+format, func(t *testing.T) {
				assert.True(t, Supported(kind, format))
				it := item(kind, sources[kind])
				first, err := BuildArgs(it, "/out/a."+format, format, Options{Quality: 60})
				require.NoError(t, err)
				second, err := BuildArgs(it, "/out/a."+format, format, Options{Quality: 60})
				require.NoError(t, err)
				assert.Empty(t, cmp.Diff(first, second), "BuildArgs must be deterministic")

				assert.Equal(t, []string{"-i", sources[kind]}, first[2:4])
				assert.Equal(t, "/out/a."+format, first[len(first)-1])
				switch kind {
				case domain.MediaTypeAudio:
					assert.Contains(t, first, "-vn")
				case domain.MediaTypeImage:
					assert.Equal(t, []string{"-frames:v", "1"}, first[4:6])
				}
			})
		}
	}
}

func TestBuildArgs_Errors(t *testing.T) {
	_, err := BuildArgs(item(domain.MediaTypeAudio, "/a.wav"), "/a.mp4", "mp4", Options{Quality: 50})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = BuildArgs(item(domain.MediaTypeImage, "/a.png"), "/a.mp3", "mp3", Options{Quality: 50})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = BuildArgs(item(domain.MediaTypeImage, ""), "/a.jpg", "jpg", Options{Quality: 50})
	assert.Error(t, err)
}

func TestBuildArgs_MetadataSwitch(t *testing.T) {
	it := item(domain.MediaTypeAudio, "/a.wav")
	keep, err := BuildArgs(it, "/a.flac", "flac", Options{Quality: 50, PreserveMetadata: true})
	require.NoError(t, err)
	strip, err := BuildArgs(it, "/a.flac", "flac", Options{Quality: 50})
	require.NoError(t, err)

	assert.Equal(t, []string{"-map_metadata", "0"}, keep[len(keep)-3:len(keep)-1])
	assert.Equal(t, []string{"-map_metadata", "-1"}, strip[len(strip)-3:len(strip)-1])
}

func TestBuildArgs_QualityClamped(t *testing.T) {
	it := item(domain.MediaTypeImage, "/a.png")
	low, err := BuildArgs(it, "/a.webp", "webp", Options{Quality: -20})
	require.NoError(t, err)
	high, err := BuildArgs(it, "/a.webp", "webp", Options{Quality: 500})
	require.NoError(t, err)

	assert.Equal(t, "1", valueAfter(low, "-quality"))
	assert.Equal(t, "100", valueAfter(high, "-quality"))
}

func valueAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
