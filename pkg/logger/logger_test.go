package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/agrimet/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var logEntry map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", line, err)
	}
	return logEntry
}

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level}, &buf)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { logger.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { logger.Info("info message") }, "info message", "info"},
		{"warn", func() { logger.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { logger.Error("error message") }, "error message", "error"},
		{"infof", func() { logger.Infof("rows: %d", 42) }, "rows: 42", "info"},
		{"warnf", func() { logger.Warnf("retry attempt: %d", 3) }, "retry attempt: 3", "warn"},
		{"errorf", func() { logger.Errorf("Job failed after %d attempts", 4) }, "Job failed after 4 attempts", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			logEntry := decodeLine(t, &buf)
			if logEntry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %q", tt.wantLevel, logEntry["level"])
			}
			if logEntry["message"] != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, logEntry["message"])
			}
			if logEntry["service"] != "agrimet" {
				t.Errorf("Expected service agrimet, got %v", logEntry["service"])
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)

	logger.WithFields(map[string]interface{}{
		"field":   "RR",
		"missing": 3,
	}).WithField("policy", "ffill").Info("gaps filled")

	logEntry := decodeLine(t, &buf)
	if logEntry["field"] != "RR" {
		t.Errorf("Expected field RR, got %v", logEntry["field"])
	}
	if logEntry["missing"] != float64(3) {
		t.Errorf("Expected missing 3, got %v", logEntry["missing"])
	}
	if logEntry["policy"] != "ffill" {
		t.Errorf("Expected policy ffill, got %v", logEntry["policy"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)

	logger.WithError(errors.New("dataset not found")).Error("load failed")

	logEntry := decodeLine(t, &buf)
	if logEntry["error"] != "dataset not found" {
		t.Errorf("Expected error 'dataset not found', got %v", logEntry["error"])
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)

	zl := logger.Component("normalize")
	zl.Info().Msg("parsed")

	logEntry := decodeLine(t, &buf)
	if logEntry["component"] != "normalize" {
		t.Errorf("Expected component normalize, got %v", logEntry["component"])
	}
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("a", 1).Info("discarded")
}

func TestUseConsole(t *testing.T) {
	tests := []struct {
		format string
		env    string
		want   bool
	}{
		{"console", "production", true},
		{"pretty", "production", true},
		{"json", "development", false},
		{"", "development", true},
		{"", "production", false},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.env, func(t *testing.T) {
			if got := useConsole(&config.Config{LogFormat: tt.format, Env: tt.env}); got != tt.want {
				t.Errorf("useConsole(%q, %q) = %v, want %v", tt.format, tt.env, got, tt.want)
			}
		})
	}
}
