package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		log, err := New(Options{Level: tt.level})
		if err != nil {
			t.Errorf("New(%q): %v", tt.level, err)
			continue
		}
		if !log.Core().Enabled(tt.want) {
			t.Errorf("New(%q): expected %s enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
			t.Errorf("New(%q): expected %s disabled", tt.level, tt.want-1)
		}
	}
}

func TestNewDevelopment(t *testing.T) {
	log, err := New(Options{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug enabled")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("Expected error for an unknown level")
	}
}
