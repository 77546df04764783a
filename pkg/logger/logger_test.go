package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_Levels(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	tests := []struct {
		name  string
		level string
		dev   bool
		want  logrus.Level
	}{
		{"explicit", "warn", false, logrus.WarnLevel},
		{"upper case", "ERROR", false, logrus.ErrorLevel},
		{"dev default", "", true, logrus.DebugLevel},
		{"prod default", "", false, logrus.InfoLevel},
		{"invalid", "loud", false, logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := initLogger(tt.level, tt.dev, &bytes.Buffer{})
			assert.Equal(t, tt.want, log.GetLevel())
			assert.Same(t, log, GetLogger())
		})
	}
}

func TestInitLogger_EnvLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "trace")
	log := initLogger("", false, &bytes.Buffer{})
	assert.Equal(t, logrus.TraceLevel, log.GetLevel())
}

func TestInitLogger_Formatter(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	assert.IsType(t, &logrus.JSONFormatter{}, initLogger("info", false, &bytes.Buffer{}).Formatter)
	assert.IsType(t, &logrus.TextFormatter{}, initLogger("info", true, &bytes.Buffer{}).Formatter)

	t.Setenv("LOG_FORMAT", "json")
	assert.IsType(t, &logrus.JSONFormatter{}, initLogger("info", true, &bytes.Buffer{}).Formatter)
}

func TestContextHelpers(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	initLogger("info", false, &buf)

	WithService("gridiron-sim").Info("a")
	WithForecastID("abc").Info("b")
	WithSeason(2024).Info("c")
	WithHTTPContext("GET", "/health", "test").Info("d")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)

	decode := func(b []byte) map[string]interface{} {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &m))
		return m
	}
	assert.Equal(t, "gridiron-sim", decode(lines[0])["service"])
	assert.Equal(t, "abc", decode(lines[1])["forecast_id"])
	assert.Equal(t, float64(2024), decode(lines[2])["season"])
	assert.Equal(t, "/health", decode(lines[3])["http_path"])
}
