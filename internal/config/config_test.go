package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path mismatch: %s", resolved)
	}
	if cfg.Slideshow.MaxFrameLength != defaultMaxFrameLength {
		t.Fatalf("expected default max_frame_length, got %v", cfg.Slideshow.MaxFrameLength)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + dir + `/work"
log_dir = "` + dir + `/logs"

[slideshow]
min_frame_length = 0.5
max_frame_length = 4.0
dialogue_offset = 0.25

[output]
selected_tracks = [2, 0, 2]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if got := cfg.MinFrameLength(); got != 500*time.Millisecond {
		t.Fatalf("min frame length = %v", got)
	}
	if got := cfg.DialogueOffset(); got != 250*time.Millisecond {
		t.Fatalf("dialogue offset = %v", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	want := []int{0, 2}
	if len(cfg.Output.SelectedTracks) != len(want) {
		t.Fatalf("selected tracks = %v", cfg.Output.SelectedTracks)
	}
	for i, idx := range want {
		if cfg.Output.SelectedTracks[i] != idx {
			t.Fatalf("selected tracks = %v, want %v", cfg.Output.SelectedTracks, want)
		}
	}
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	cfg := Default()
	cfg.Slideshow.MinFrameLength = 5
	cfg.Slideshow.MaxFrameLength = 1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "min_frame_length") {
		t.Fatalf("expected inverted bounds error, got %v", err)
	}
}

func TestValidateRejectsNegativeDurations(t *testing.T) {
	cfg := Default()
	cfg.Slideshow.FadeDuration = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative fade_duration")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[slideshow]") {
		t.Fatal("sample config missing slideshow section")
	}

	// The sample must itself load cleanly.
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestFFmpegBinaryOverride(t *testing.T) {
	cfg := Default()
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatal("expected stock binary names by default")
	}
	cfg.Output.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("override ignored: %s", cfg.FFmpegBinary())
	}
}
