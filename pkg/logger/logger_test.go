package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/social/pkg/config"
)

func TestNewWithWriterFormats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"text format", "text", "msg=hello"},
		{"json format", "json", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(config.Logging{Level: "info", Format: tt.format}, &buf)
			l.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Logging{Level: "info", Format: "text"}, &buf).WithComponent("projector")

	l.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "component=projector") {
		t.Errorf("expected component field, got: %s", output)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	tests := []struct {
		level    string
		expected bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"bogus", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := NewWithWriter(config.Logging{Level: tt.level, Format: "text"}, &bytes.Buffer{})
			if l.IsDebugEnabled() != tt.expected {
				t.Errorf("expected IsDebugEnabled to be %v, got %v", tt.expected, l.IsDebugEnabled())
			}
		})
	}
}

func TestLevelFiltersDebugHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Logging{Level: "info", Format: "text"}, &buf)

	l.LogStorageOperation("posts.get", 0, nil)
	l.LogEventOutcome("social.identity.v1", "1-0", "CREATED", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected debug output to be filtered, got: %s", buf.String())
	}

	l.LogEventOutcome("social.identity.v1", "1-0", "UPDATED", errors.New("boom"))
	if !strings.Contains(buf.String(), "event projection failed") {
		t.Errorf("expected failure to be logged, got: %s", buf.String())
	}
}
