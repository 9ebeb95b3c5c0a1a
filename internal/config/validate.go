package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSlideshow(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSlideshow() error {
	s := c.Slideshow
	for name, value := range map[string]float64{
		"slideshow.min_frame_length": s.MinFrameLength,
		"slideshow.max_frame_length": s.MaxFrameLength,
		"slideshow.dialogue_offset":  s.DialogueOffset,
		"slideshow.fade_duration":    s.FadeDuration,
		"slideshow.preview_limit":    s.PreviewLimit,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0 (seconds)", name)
		}
	}
	if s.MinFrameLength > s.MaxFrameLength {
		return errors.New("slideshow.min_frame_length must not exceed slideshow.max_frame_length")
	}
	if s.MaxFrameLength == 0 {
		return errors.New("slideshow.max_frame_length must be positive")
	}
	if s.FrameRate <= 0 {
		return errors.New("slideshow.frame_rate must be positive")
	}
	if s.Workers < 0 {
		return errors.New("slideshow.workers must be >= 0 (0 selects the CPU count)")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.TranscodeTimeout < 0 {
		return errors.New("output.transcode_timeout must be >= 0 (seconds, 0 disables)")
	}
	for _, idx := range c.Output.SelectedTracks {
		if idx < 0 {
			return errors.New("output.selected_tracks entries must be >= 0")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
