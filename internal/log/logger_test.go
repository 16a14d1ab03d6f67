package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithComponentAnnotatesEntries(t *testing.T) {
	var buf bytes.Buffer
	mu.Lock()
	configured = false
	mu.Unlock()
	Configure(Config{Level: "debug", Output: &buf, Version: "test"})

	l := WithComponent("library")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "library", entry["component"])
	require.Equal(t, "vidgallery", entry["service"])
	require.Equal(t, "test", entry["version"])
	require.Equal(t, "hello", entry["message"])
}

func TestConfigureOnlyOnce(t *testing.T) {
	var first, second bytes.Buffer
	mu.Lock()
	configured = false
	mu.Unlock()
	Configure(Config{Output: &first})
	Configure(Config{Output: &second})

	logger := WithComponent("x")
	logger.Info().Msg("once")
	require.NotZero(t, first.Len())
	require.Zero(t, second.Len())
}
