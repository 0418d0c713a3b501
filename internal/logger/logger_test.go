package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerJSONOutput(t *testing.T) {
	buf := new(bytes.Buffer)

	logg := NewLogger(
		WithOutput(buf),
		WithLevel(slog.LevelWarn),
		WithFormat(LogFormatJSON),
	)

	logg.Info("dropped")
	logg.Warn("kept", slog.String("module", "test"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "test", rec["module"])
}

func TestParseLogFormat(t *testing.T) {
	f, err := ParseLogFormat("TEXT")
	require.NoError(t, err)
	assert.Equal(t, LogFormatText, f)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}
