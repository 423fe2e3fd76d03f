package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { _ = Configure(Config{}) })

	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "warn", Output: &buf}))

	log := WithComponent("registry")
	log.Info().Msg("dropped")
	log.Warn().Str("id", "abc").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "registry", line["component"])
	assert.Equal(t, "mediaconv", line["service"])
	assert.Equal(t, "abc", line["id"])
}

func TestConfigure_Console(t *testing.T) {
	t.Cleanup(func() { _ = Configure(Config{}) })

	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Format: "console", Output: &buf}))
	log := Base()
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestConfigure_Invalid(t *testing.T) {
	assert.Error(t, Configure(Config{Level: "loud"}))
	assert.Error(t, Configure(Config{Format: "xml"}))
}
