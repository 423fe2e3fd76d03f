package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

var videoExts = map[string]bool{
	"mp4": true, "mkv": true, "avi": true, "mov": true, "webm": true,
	"m4v": true, "3gp": true, "ts": true, "mts": true, "m2ts": true,
	"flv": true, "wmv": true, "mpg": true, "mpeg": true, "ogv": true,
}

var audioExts = map[string]bool{
	"mp3": true, "wav": true, "ogg": true, "oga": true, "opus": true,
	"flac": true, "aac": true, "m4a": true, "wma": true, "aiff": true,
	"aif": true,
}

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "avif": true,
	"bmp": true, "tif": true, "tiff": true, "gif": true, "heic": true,
}

var outputFormats = map[MediaType][]string{
	MediaTypeVideo: {"mp4", "mkv", "avi", "mov", "m4v", "3gp", "webm", "gif", "ts"},
	MediaTypeAudio: {"mp3", "ogg", "opus", "flac", "wav", "aac", "m4a"},
	MediaTypeImage: {"jpg", "png", "webp", "avif", "bmp", "tiff"},
}

var defaultOutputFormat = map[MediaType]string{
	MediaTypeVideo: "mp4",
	MediaTypeAudio: "mp3",
	MediaTypeImage: "jpg",
}

// Classify maps a path to its media kind by extension. The second return
// value is false for extensions outside the three known sets.
func Classify(path string) (MediaType, bool) {
	ext := Extension(path)
	switch {
	case videoExts[ext]:
		return MediaTypeVideo, true
	case audioExts[ext]:
		return MediaTypeAudio, true
	case imageExts[ext]:
		return MediaTypeImage, true
	}
	return "", false
}

// Extension returns the lowercased extension of path without the dot.
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// NormalizeFormat folds format aliases so "jpeg" and "jpg" compare equal.
func NormalizeFormat(format string) string {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	switch f {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return f
}

func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaTypeVideo:
		return MediaTypeVideo, true
	case MediaTypeAudio:
		return MediaTypeAudio, true
	case MediaTypeImage:
		return MediaTypeImage, true
	}
	return "", false
}

func MediaTypes() []MediaType {
	return []MediaType{MediaTypeVideo, MediaTypeAudio, MediaTypeImage}
}

// OutputFormats returns the target formats offered for a kind.
func OutputFormats(kind MediaType) []string {
	return slices.Clone(outputFormats[kind])
}

func DefaultOutputFormat(kind MediaType) string {
	return defaultOutputFormat[kind]
}

func SupportsOutputFormat(kind MediaType, format string) bool {
	return slices.Contains(outputFormats[kind], NormalizeFormat(format))
}

// InputExtensions lists the extensions Classify accepts for a kind, sorted.
func InputExtensions(kind MediaType) []string {
	var set map[string]bool
	switch kind {
	case MediaTypeVideo:
		set = videoExts
	case MediaTypeAudio:
		set = audioExts
	case MediaTypeImage:
		set = imageExts
	}
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
