package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Slideshow contains the segmentation parameters. All durations are seconds.
type Slideshow struct {
	MinFrameLength float64 `toml:"min_frame_length"`
	MaxFrameLength float64 `toml:"max_frame_length"`
	DialogueOffset float64 `toml:"dialogue_offset"`
	FadeDuration   float64 `toml:"fade_duration"`
	PreviewLimit   float64 `toml:"preview_limit"`
	FrameRate      int     `toml:"frame_rate"`
	Workers        int     `toml:"workers"`
}

// Output contains stream selection and transcoder invocation settings.
type Output struct {
	SelectedTracks    []int  `toml:"selected_tracks"`
	KeepOriginalVideo bool   `toml:"keep_original_video"`
	TranscodeTimeout  int    `toml:"transcode_timeout"`
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	Verbose           bool   `toml:"verbose"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains configuration for the render history store.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for slidecast.
//
// Sections by subsystem:
//   - Paths: working and log directories
//   - Slideshow: segmentation bounds, offsets, fades, worker count
//   - Output: track selection, mux policy toggles, ffmpeg binaries
//   - Logging: log format and level
//   - History: render history store toggle
type Config struct {
	Paths     Paths     `toml:"paths"`
	Slideshow Slideshow `toml:"slideshow"`
	Output    Output    `toml:"output"`
	Logging   Logging   `toml:"logging"`
	History   History   `toml:"history"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slidecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a render needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Output.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Output.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// MinFrameLength returns the minimum slide hold as a duration.
func (c *Config) MinFrameLength() time.Duration { return seconds(c.Slideshow.MinFrameLength) }

// MaxFrameLength returns the maximum filler hold as a duration.
func (c *Config) MaxFrameLength() time.Duration { return seconds(c.Slideshow.MaxFrameLength) }

// DialogueOffset returns the cue start offset as a duration.
func (c *Config) DialogueOffset() time.Duration { return seconds(c.Slideshow.DialogueOffset) }

// FadeDuration returns the fade transition length as a duration. Zero
// disables fades.
func (c *Config) FadeDuration() time.Duration { return seconds(c.Slideshow.FadeDuration) }

// PreviewLimit returns the preview horizon, or zero when rendering the full
// video.
func (c *Config) PreviewLimit() time.Duration { return seconds(c.Slideshow.PreviewLimit) }

// TranscodeTimeout returns the per-request transcoder timeout, or zero when
// unbounded.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Output.TranscodeTimeout) * time.Second
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
