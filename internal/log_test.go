package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLogger_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, LogLevelWarn, true).WithFields(Fields{"run_id": "r1"})

	l.Info("hidden %d", 1)
	assert.Zero(t, buf.Len())

	l.Warn("shown %d", 2)
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown 2", line["msg"])
	assert.Equal(t, "r1", line["run_id"])
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, LogLevelWarn, l.GetLevel())
}
