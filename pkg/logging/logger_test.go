package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LogLevel("warning"), zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{LogLevel("DEBUG"), zerolog.DebugLevel},
		{LogLevel("unknown"), zerolog.InfoLevel},
		{LogLevel(""), zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty should default to false")
	}
	if cfg.Output == nil {
		t.Error("Output should default to a writer")
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  LevelDebug,
		Pretty: false,
		Output: &buf,
	})

	logger.Info().Str("endpoint", "/items").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, `"endpoint":"/items"`) {
		t.Errorf("Output missing structured field: %s", out)
	}
	if !strings.Contains(out, `"message":"test message"`) {
		t.Errorf("Output missing message: %s", out)
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  LevelWarn,
		Output: &buf,
	})

	logger.Debug().Msg("should be filtered")
	logger.Info().Msg("should be filtered too")
	logger.Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("Levels below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warn level should pass: %s", out)
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelDebug, Output: &buf})

	logger := NewLogger("paginator")
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"paginator"`) {
		t.Errorf("Output missing component field: %s", buf.String())
	}
}
