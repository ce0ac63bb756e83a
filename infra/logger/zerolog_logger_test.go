package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerComponentField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter(&buf, "control-centre")
	l.Debugw("allocated", map[string]any{"drone": "d1", "ev": "ev3"})
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "control-centre", line["component"])
	assert.Equal(t, "d1", line["drone"])
	assert.Equal(t, "debug", line["level"])
}

func TestZerologLoggerLevelFilter(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter(&buf, "engine")
	l.Infof("hidden")
	l.Warnf("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogrusLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLoggerWithWriter(&buf, "memsim")
	l.Infof("loaded %d vehicles", 4)
	out := strings.TrimSpace(buf.String())
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, "memsim", line["component"])
	assert.Equal(t, "loaded 4 vehicles", line["msg"])
}

func TestNewSelectsBackend(t *testing.T) {
	t.Setenv("LOG_BACKEND", "logrus")
	_, ok := New("x").(*LogrusLogger)
	assert.True(t, ok)
	t.Setenv("LOG_BACKEND", "")
	_, ok = New("x").(*ZerologLogger)
	assert.True(t, ok)
}
