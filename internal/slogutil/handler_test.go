package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandler_Line(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{
			"plain attrs",
			func(l *slog.Logger) { l.Info("Collected inputs", "files", 3) },
			"INFO  Collected inputs files=3\n",
		},
		{
			"quoted values",
			func(l *slog.Logger) { l.Warn("Snapshot storage unavailable", "error", "disk full", "path", "") },
			"WARN  Snapshot storage unavailable error=\"disk full\" path=\"\"\n",
		},
		{
			"with attrs and group",
			func(l *slog.Logger) {
				l.With("cmd", "analyze").WithGroup("file").Error("Extraction failed", "name", "routes.js")
			},
			"ERROR Extraction failed cmd=analyze file.name=routes.js\n",
		},
		{
			"group attr",
			func(l *slog.Logger) {
				l.Debug("Scored", slog.Group("risk", "score", 6.5, "level", "HIGH"))
			},
			"DEBUG Scored risk.score=6.5 risk.level=HIGH\n",
		},
		{
			"duration",
			func(l *slog.Logger) { l.Info("Done", "took", 1500*time.Millisecond) },
			"INFO  Done took=1.5s\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(&buf, slog.LevelDebug))
			if buf.String() != tt.want {
				t.Errorf("line = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHandler_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, HandlerOptions{Timestamps: true}))
	logger.Info("Snapshot saved")

	line := buf.String()
	stamp, rest, ok := strings.Cut(line, " ")
	if !ok {
		t.Fatalf("line = %q", line)
	}
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Errorf("timestamp %q: %v", stamp, err)
	}
	if rest != "INFO  Snapshot saved\n" {
		t.Errorf("rest = %q", rest)
	}
}

func TestHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	for _, hidden := range []string{"debug message", "info message"} {
		if strings.Contains(out, hidden) {
			t.Errorf("%q should be filtered at warn", hidden)
		}
	}
	for _, shown := range []string{"warn message", "error message"} {
		if !strings.Contains(out, shown) {
			t.Errorf("%q missing from %q", shown, out)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should be disabled at every level")
	}
	logger.Error("dropped")
}

func TestFanout(t *testing.T) {
	var info, warn bytes.Buffer
	logger := slog.New(fanout{
		NewHandler(&info, HandlerOptions{Level: slog.LevelInfo}),
		NewHandler(&warn, HandlerOptions{Level: slog.LevelWarn}),
	}).With("run", "r1")

	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(info.String(), "info message run=r1") || !strings.Contains(info.String(), "warn message run=r1") {
		t.Errorf("info handler = %q", info.String())
	}
	if strings.Contains(warn.String(), "info message") || !strings.Contains(warn.String(), "warn message") {
		t.Errorf("warn handler = %q", warn.String())
	}
}
