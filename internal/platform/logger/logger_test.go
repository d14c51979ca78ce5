package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sante/internal/platform/config"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Log{Level: "warn", Format: "json"})

	log.Info("dropped")
	log.Warn("kept", "event_type", "auth.user_registered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "sante", entry["service"])
	assert.Equal(t, "auth.user_registered", entry["event_type"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Log{Level: "debug", Format: "text"})

	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
