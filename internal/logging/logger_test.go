package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  *slog.Level
	}{
		{"debug", levelPtr(slog.LevelDebug)},
		{"info", levelPtr(slog.LevelInfo)},
		{"INFO", levelPtr(slog.LevelInfo)},
		{"warn", levelPtr(slog.LevelWarn)},
		{"warning", levelPtr(slog.LevelWarn)},
		{"error", levelPtr(slog.LevelError)},
		{"bogus", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, *tt.want)
			}
		})
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("test-module")
	b := GetLogger("test-module")
	if a != b {
		t.Error("GetLogger returned different instances for the same module")
	}
}

func TestInitializeAppliesModuleLevels(t *testing.T) {
	// Logger created before Initialize must pick up the configured level.
	_ = GetLogger("pre-init-module")

	Initialize(Config{
		Level:  "warn",
		Format: "text",
		Modules: map[string]string{
			"pre-init-module": "debug",
		},
	})

	mutex.RLock()
	defer mutex.RUnlock()
	if lv, ok := moduleLevelVars["pre-init-module"]; !ok || lv.Level() != slog.LevelDebug {
		t.Errorf("module level not applied, got %v", lv)
	}
}

func levelPtr(l slog.Level) *slog.Level { return &l }
