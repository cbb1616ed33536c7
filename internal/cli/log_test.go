package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	if logger == nil {
		t.Fatal("newLogger returned nil")
	}

	logger.Info("projected 100 points")
	if !strings.Contains(buf.String(), "projected 100 points") {
		t.Errorf("output %q missing logged message", buf.String())
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info passes at info", log.InfoLevel, func(l *log.Logger) { l.Info("m") }, true},
		{"debug dropped at info", log.InfoLevel, func(l *log.Logger) { l.Debug("m") }, false},
		{"debug passes at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("m") }, true},
		{"warn passes at info", log.InfoLevel, func(l *log.Logger) { l.Warn("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("logged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressReportsDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	if prog == nil {
		t.Fatal("newProgress returned nil")
	}
	time.Sleep(10 * time.Millisecond)
	prog.done("flatten finished")

	out := buf.String()
	if !strings.Contains(out, "flatten finished") {
		t.Errorf("output %q missing completion message", out)
	}
	if !strings.Contains(out, "ms)") {
		t.Errorf("output %q missing elapsed time", out)
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := log.Default()
	ctx := withLogger(context.Background(), logger)

	if got := loggerFromContext(ctx); got != logger {
		t.Error("loggerFromContext returned a different logger")
	}
}

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext should never return nil")
	}
}

func TestLoggerFromContextIgnoresWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), loggerKey, "not a logger")
	if loggerFromContext(ctx) == nil {
		t.Error("loggerFromContext should fall back when the value has the wrong type")
	}
}
