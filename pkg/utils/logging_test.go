package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected logrus.Level
		wantErr  bool
	}{
		{name: "debug level", input: "DEBUG", expected: logrus.DebugLevel},
		{name: "info level", input: "INFO", expected: logrus.InfoLevel},
		{name: "empty defaults to info", input: "", expected: logrus.InfoLevel},
		{name: "warn level", input: "WARN", expected: logrus.WarnLevel},
		{name: "warning level", input: "WARNING", expected: logrus.WarnLevel},
		{name: "error level", input: "ERROR", expected: logrus.ErrorLevel},
		{name: "case insensitive", input: "debug", expected: logrus.DebugLevel},
		{name: "invalid level", input: "INVALID", expected: logrus.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if result != tt.expected {
				t.Errorf("ParseLogLevel() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "client.log")

	logger, err := NewLogger("debug", file, "json")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}

	logger.WithField("container", "photos").Debug("listing")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"container":"photos"`) {
		t.Errorf("expected JSON field in log output, got %s", data)
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := NewLogger("loud", "", "text"); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := NewLogger("info", "", "xml"); err == nil {
		t.Error("expected error for invalid format")
	}
}
