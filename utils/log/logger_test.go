package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONComponents(t *testing.T) {
	defer Init(Options{LogLevel: zerolog.InfoLevel})

	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: JSONLogger, Out: &buf})
	WAL.Info().Uint32("records", 3).Msg("replayed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "wal", line["component"])
	assert.Equal(t, "replayed", line["message"])
	assert.EqualValues(t, 3, line["records"])
}

func TestLevelFilter(t *testing.T) {
	defer Init(Options{LogLevel: zerolog.InfoLevel})

	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.WarnLevel, Type: ConsoleLogger, Out: &buf})
	DB.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	DB.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
