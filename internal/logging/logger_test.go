package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl))

	NewComponentLogger(logger, "segmenter").Info("timeline built",
		Int("segments", 4),
		Duration("total", 10*time.Second),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO segmenter: timeline built") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "segments=4") || !strings.Contains(line, "total=10s") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestPrettyHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl))

	logger.Warn("cue skipped", String("reason", "end before start"))
	if !strings.Contains(buf.String(), `reason="end before start"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
