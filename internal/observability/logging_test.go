package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossland/Algora-sub004/internal/types"
)

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", "json", &buf)
	require.NoError(t, err)

	logger.Info("workflow admitted", "workflow_id", "wf-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "workflow admitted", entry["msg"])
	assert.Equal(t, "wf-1", entry["workflow_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNewLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", "text", &buf)
	require.NoError(t, err)

	logger.Debug("noise")
	logger.Info("still noise")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewLogger("shouting", "json", &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.CONFIG_VALIDATION_FAILED, "")))
}

func TestNewLogger_RejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewLogger("info", "xml", &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.CONFIG_VALIDATION_FAILED, "")))
}
