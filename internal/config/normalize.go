package config

import (
	"sort"
	"strings"
)

// normalize expands paths and tidies user-supplied values before validation.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Output.FFmpegBinary = strings.TrimSpace(c.Output.FFmpegBinary)
	c.Output.FFprobeBinary = strings.TrimSpace(c.Output.FFprobeBinary)
	c.Output.SelectedTracks = normalizeTracks(c.Output.SelectedTracks)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// normalizeTracks deduplicates and sorts a track index selection.
func normalizeTracks(tracks []int) []int {
	if len(tracks) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(tracks))
	out := make([]int, 0, len(tracks))
	for _, idx := range tracks {
		if idx < 0 {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
