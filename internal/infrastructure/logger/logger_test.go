package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), tt.input)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json", Level: "debug"}, &buf)

	accrual := Component(log, "accrual")
	accrual.Info().Str("position_id", "p-1").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "accrual", line["component"])
	assert.Equal(t, "p-1", line["position_id"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "console", Level: "info"}, &buf)

	log.Info().Msg("hello")

	assert.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	assert.Contains(t, buf.String(), "hello")
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json", Level: "warn"}, &buf)

	log.Info().Msg("dropped")

	assert.Empty(t, buf.String())
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Format: "json"}, &buf)

	ctx := WithRequest(context.Background(), base, "req-1", "user-1")
	scoped := FromContext(ctx, zerolog.Nop())
	scoped.Info().Msg("scoped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "user-1", line["user_id"])
}

func TestFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewWithWriter(Config{Format: "json"}, &buf)

	got := FromContext(context.Background(), fallback)
	got.Info().Msg("fallback")

	assert.Contains(t, buf.String(), "fallback")
}
