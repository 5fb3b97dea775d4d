package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/internal/logging"
)

func TestNewJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", "auto")
	require.NoError(t, err)

	logger.Info().Str("view", "abc").Msg("mounted")
	logger.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["view"])
	assert.Equal(t, "mounted", entry["message"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "debug", "console")
	require.NoError(t, err)

	logger.Debug().Msg("relayout")
	assert.Contains(t, buf.String(), "DBG")
	assert.Contains(t, buf.String(), "relayout")
}

func TestNewRejectsUnknownInput(t *testing.T) {
	_, err := logging.New(&bytes.Buffer{}, "loud", "json")
	require.Error(t, err)

	_, err = logging.New(&bytes.Buffer{}, "info", "xml")
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = logging.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)
}
