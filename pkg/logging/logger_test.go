package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New("test-service", level)
	l.SetOutput(&buf)
	return l, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger_WritesStructuredJSON(t *testing.T) {
	l, buf := capture(InfoLevel)

	l.Info("simulation complete", Fields{"steps": 8760})

	out := decode(t, buf)
	assert.Equal(t, "INFO", out["level"])
	assert.Equal(t, "test-service", out["service"])
	assert.Equal(t, "simulation complete", out["message"])
	assert.NotEmpty(t, out["timestamp"])

	fields, ok := out["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 8760.0, fields["steps"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := capture(WarnLevel)

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	assert.Zero(t, buf.Len())

	l.Warn("shown", nil)
	assert.NotZero(t, buf.Len())
}

func TestLogger_ErrorAttachesErrorAndCaller(t *testing.T) {
	l, buf := capture(ErrorLevel)

	l.Error("run failed", nil, errors.New("solver diverged"))

	out := decode(t, buf)
	assert.Equal(t, "ERROR", out["level"])
	assert.Equal(t, "solver diverged", out["error"])
	assert.Contains(t, out["file"], "logger_test.go")
	assert.NotZero(t, out["line"])
}

func TestLogger_WithFieldsCarriesBaseFields(t *testing.T) {
	l, buf := capture(InfoLevel)
	run := l.WithFields(Fields{"run_id": "run-1"})

	run.Info("step", Fields{"step": 12})

	fields, ok := decode(t, buf)["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, 12.0, fields["step"])

	// Per-call fields win on collision.
	buf.Reset()
	run.Info("override", Fields{"run_id": "run-2"})
	fields = decode(t, buf)["fields"].(map[string]interface{})
	assert.Equal(t, "run-2", fields["run_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}
