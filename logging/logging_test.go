package logging

import (
	"log/slog"
	"testing"

	"github.com/johanjanssens/tulsafeed/config"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	logger := New(config.LogConfig{Level: "debug", Format: "json"})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	logger.Info("hello", "key", "value")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("parseLevel() = %v, want LevelInfo", got)
	}
}

func TestParseLevelRecognizesAllLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
