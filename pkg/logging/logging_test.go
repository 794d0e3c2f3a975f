package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: FormatJSON, Output: &buf})

	logger.Debug("connecting", slog.String("transport", "websocket"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "connecting", record["msg"])
	assert.Equal(t, "websocket", record["transport"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Output: &buf})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestErrAttrClassified(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: FormatJSON, Output: &buf})

	logger.Error("call failed", ErrAttr(mcperrors.CallTimeout("tools/call", 5000)))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	group, ok := record["error"].(map[string]any)
	require.True(t, ok, "classified errors expand into a group")
	assert.Equal(t, "timeout", group["category"])
	assert.Equal(t, float64(mcperrors.CodeCallTimeout), group["code"])
	assert.Equal(t, "tools/call", group["method"])
}

func TestErrAttrPlain(t *testing.T) {
	attr := ErrAttr(errors.New("plain failure"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "plain failure", attr.Value.String())
}
