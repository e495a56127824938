package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "production", "info")
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Int("issue", 4).Msg("closed duplicate")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "dupsweep", entry["service"])
	assert.Equal(t, "closed duplicate", entry["message"])
	assert.EqualValues(t, 4, entry["issue"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "local", "debug")
	require.NoError(t, err)

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("local", "loud")
	assert.Error(t, err)
}
