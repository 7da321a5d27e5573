package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "glitchcity.log")
	logger, err := New(Config{Level: "info", File: path, JSON: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Info("persona replied", zap.String("persona", "u2"))
	logger.Debug("hidden")
	logger.Sync() //nolint:errcheck

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"persona":"u2"`) {
		t.Errorf("log missing field:\n%s", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("debug entry written at info level:\n%s", got)
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want zapcore.Level
	}{
		{"default info", Config{}, zapcore.InfoLevel},
		{"warn", Config{Level: "warn"}, zapcore.WarnLevel},
		{"verbose wins", Config{Level: "error", Verbose: true}, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.File = filepath.Join(t.TempDir(), "x.log")
			logger, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("level %s enabled, want minimum %s", tt.want-1, tt.want)
			}
		})
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() with bad level: want error")
	}
}

func TestNewDisabled(t *testing.T) {
	logger, err := New(Config{Disable: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("disabled logger should be a no-op")
	}
}
