package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/services"
)

// ParseFile parses a subtitle sidecar, choosing the format by extension.
func ParseFile(r io.Reader, path string, trackIndex int) ([]Cue, []Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return ParseVTT(r, trackIndex)
	case ".srt":
		return ParseSRT(r, trackIndex)
	default:
		return nil, nil, services.Wrap(services.ErrValidation, "cue source", "parse", fmt.Sprintf("unsupported subtitle format %q", filepath.Ext(path)), nil)
	}
}

// ParseVTT reads WEBVTT cues. Malformed cue lines are skipped and recorded as
// warnings; only a missing header is fatal.
func ParseVTT(r io.Reader, trackIndex int) ([]Cue, []Warning, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, nil, services.Wrap(services.ErrValidation, "cue source", "parse", "empty WEBVTT file", nil)
	}
	header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "\ufeff")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, nil, services.Wrap(services.ErrValidation, "cue source", "parse", "missing WEBVTT header", nil)
	}

	var (
		cues     []Cue
		warnings []Warning
		line     = 1
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if !strings.Contains(text, "-->") {
			continue
		}
		cue, err := parseCueLine(text, ".", trackIndex)
		if err != nil {
			warnings = append(warnings, Warning{Line: line, Detail: err.Error()})
			continue
		}
		cues = append(cues, cue)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("read vtt: %w", err)
	}
	return cues, warnings, nil
}

// ParseSRT reads SubRip cues. Same warning semantics as ParseVTT.
func ParseSRT(r io.Reader, trackIndex int) ([]Cue, []Warning, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues     []Cue
		warnings []Warning
		line     int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if !strings.Contains(text, "-->") {
			continue
		}
		cue, err := parseCueLine(text, ",", trackIndex)
		if err != nil {
			warnings = append(warnings, Warning{Line: line, Detail: err.Error()})
			continue
		}
		cues = append(cues, cue)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("read srt: %w", err)
	}
	return cues, warnings, nil
}

// parseCueLine parses "start --> end" with an optional settings tail.
func parseCueLine(text, decimalSep string, trackIndex int) (Cue, error) {
	parts := strings.SplitN(text, "-->", 2)
	if len(parts) != 2 {
		return Cue{}, fmt.Errorf("malformed cue timing %q", text)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]), decimalSep)
	if err != nil {
		return Cue{}, err
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return Cue{}, fmt.Errorf("missing cue end in %q", text)
	}
	end, err := parseTimestamp(endField[0], decimalSep)
	if err != nil {
		return Cue{}, err
	}
	return Cue{Start: start, End: end, TrackIndex: trackIndex}, nil
}

// parseTimestamp accepts hh:mm:ss.mmm or mm:ss.mmm (comma decimals for SRT).
func parseTimestamp(value, decimalSep string) (time.Duration, error) {
	normalized := strings.Replace(value, decimalSep, ".", 1)
	fields := strings.Split(normalized, ":")

	var hours, minutes int
	var secondsField string
	switch len(fields) {
	case 3:
		h, err := strconv.Atoi(fields[0])
		if err != nil || h < 0 {
			return 0, fmt.Errorf("invalid hours in timestamp %q", value)
		}
		hours = h
		fields = fields[1:]
		fallthrough
	case 2:
		m, err := strconv.Atoi(fields[0])
		if err != nil || m < 0 {
			return 0, fmt.Errorf("invalid minutes in timestamp %q", value)
		}
		minutes = m
		secondsField = fields[1]
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	seconds, err := strconv.ParseFloat(secondsField, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", value)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, nil
}
