package common

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Bulk matching completed", "items", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Bulk matching completed", line["msg"])
	assert.InDelta(t, 3, line["items"], 0)

	buf.Reset()
	logger, err = NewLogger(&buf, slog.LevelDebug, "console")
	require.NoError(t, err)
	logger.Debug("cache miss", "key", "rebar_5")
	assert.Contains(t, buf.String(), "key=rebar_5")

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
