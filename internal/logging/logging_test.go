package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/logging"
)

func TestNew_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := logging.Component(logging.New(&buf, "warn"), "editor")

	log.Info().Msg("hidden")
	log.Warn().Str("blockId", "b1").Msg("save failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "editor", entry["component"])
	assert.Equal(t, "b1", entry["blockId"])
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "chatty")
	log.Debug().Msg("dropped")
	log.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}
