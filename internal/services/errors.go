package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid configuration; nothing runs after it.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks unusable input (bad container, no subtitle tracks).
	ErrValidation = errors.New("validation error")
	// ErrEmptyTimeline marks a source with no usable video duration.
	ErrEmptyTimeline = errors.New("empty timeline")
	// ErrExtraction marks a segment whose frame or clip capture failed twice.
	// Fatal to its track only.
	ErrExtraction = errors.New("extraction failure")
	// ErrAssembly marks a failed concat or mux step. Fatal to its track only.
	ErrAssembly = errors.New("assembly failure")
	// ErrExternalTool marks a transport-level failure of ffmpeg/ffprobe.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TrackFatal reports whether an error aborts only the track it occurred on,
// as opposed to the whole render.
func TrackFatal(err error) bool {
	return errors.Is(err, ErrExtraction) || errors.Is(err, ErrAssembly)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
