package logging

import (
	"context"
	"log/slog"
	"testing"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"supervisor": "debug",
			"ffmpeg":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"supervisor", true, true, true},
		{"ffmpeg", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			if got := handler.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(context.Background(), slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(context.Background(), slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestInitializeRelevelsExistingLoggers(t *testing.T) {
	resetState()

	// Logger created before Initialize defaults to info
	handler := GetLogger("early").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug disabled before Initialize")
	}

	Initialize(Config{
		Level:   "info",
		Modules: map[string]string{"early": "debug"},
	})

	handler = GetLogger("early").Handler()
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled after Initialize with module override")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  *slog.Level
	}{
		{"debug", levelPtr(slog.LevelDebug)},
		{"INFO", levelPtr(slog.LevelInfo)},
		{"warning", levelPtr(slog.LevelWarn)},
		{"error", levelPtr(slog.LevelError)},
		{"bogus", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseLevel(tt.input)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, *tt.want)
		}
	}
}

func levelPtr(l slog.Level) *slog.Level { return &l }
