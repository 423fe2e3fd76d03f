package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain path", input: "/media/in/clip.mov", want: "/media/in/clip.mov"},
		{name: "empty", input: "", want: ""},
		{name: "unicode kept", input: "/photos/été 🌍/写真.png", want: "/photos/été 🌍/写真.png"},
		{name: "newline", input: "clip.mov\nERROR forged", want: `clip.mov\nERROR forged`},
		{name: "crlf", input: "a\r\nb", want: `a\r\nb`},
		{name: "tab", input: "a\tb", want: `a\tb`},
		{name: "nul", input: "a\x00b", want: `a\x00b`},
		{name: "ansi escape", input: "\x1b[2Jclear.wav", want: `\x1b[2Jclear.wav`},
		{name: "del", input: "x\x7fy", want: `x\x7fy`},
		{name: "quotes untouched", input: `my "clip" (1).mp4`, want: `my "clip" (1).mp4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForLog(tt.input))
		})
	}
}

func TestSanitizeForLog_NoRawControlRunes(t *testing.T) {
	for i := 0; i < 32; i++ {
		got := SanitizeForLog("a" + string(rune(i)) + "b")
		for _, r := range got {
			assert.False(t, isControl(r), "control rune 0x%02x leaked", i)
		}
	}
}

func TestPath(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	Path(log.Info(), "in\nject.wav").Msg("ingested")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, `in\nject.wav`, line["path"])
}
