package codec

// Quality knobs. Each maps the clamped 1-100 quality setting linearly onto an
// encoder's native scale. For scales where a lower value means better output
// (crf, qscale, lame VBR) the mapping is decreasing so that raising quality
// never lowers the effective result.

// scale maps q in [1,100] onto [from,to] with integer arithmetic.
func scale(q, from, to int) int {
	q = ClampQuality(q)
	return from + (q-1)*(to-from)/99
}

// H264CRF returns the x264 constant rate factor (51 worst, 18 best).
func H264CRF(q int) int { return scale(q, 51, 18) }

// VP9CRF returns the libvpx-vp9 constant quality value (63 worst, 15 best).
func VP9CRF(q int) int { return scale(q, 63, 15) }

// GIFColors returns the palette ceiling for animated GIF output.
func GIFColors(q int) int { return scale(q, 16, 256) }

// PNGColors returns the palette ceiling for PNG output.
func PNGColors(q int) int { return scale(q, 16, 256) }

// JPEGQScale returns the mjpeg quantizer (31 worst, 2 best).
func JPEGQScale(q int) int { return scale(q, 31, 2) }

// WebPQuality passes quality through unchanged.
func WebPQuality(q int) int { return ClampQuality(q) }

// AVIFCRF maps quality onto libaom's 0-63 crf, which has no 0-100 scale.
func AVIFCRF(q int) int { return 63 - ClampQuality(q)*63/100 }

// MP3VBR returns the LAME VBR level (9 worst, 0 best).
func MP3VBR(q int) int { return scale(q, 9, 0) }

// VorbisQuality returns the libvorbis -q:a level (0-10).
func VorbisQuality(q int) int { return scale(q, 0, 10) }

// OpusBitrate returns the Opus bitrate in kbps.
func OpusBitrate(q int) int { return scale(q, 32, 256) }

// AACBitrate returns the AAC bitrate in kbps.
func AACBitrate(q int) int { return scale(q, 64, 320) }
