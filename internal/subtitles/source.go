package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"slidecast/internal/language"
	"slidecast/internal/logging"
	"slidecast/internal/media/ffprobe"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
)

// Source discovers subtitle tracks in a container and loads their cues. It
// leans on ffprobe for discovery and the transcoder for sidecar extraction.
type Source struct {
	probeBinary string
	transcoder  ffmpeg.Transcoder
	logger      *slog.Logger
}

// NewSource constructs a cue source.
func NewSource(probeBinary string, transcoder ffmpeg.Transcoder, logger *slog.Logger) *Source {
	return &Source{
		probeBinary: probeBinary,
		transcoder:  transcoder,
		logger:      logging.NewComponentLogger(logger, "cue-source"),
	}
}

// ListTracks returns the subtitle tracks present in the container, in
// subtitle-relative order.
func (s *Source) ListTracks(ctx context.Context, path string) ([]Track, error) {
	result, err := ffprobe.Inspect(ctx, s.probeBinary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "cue source", "list tracks", path, err)
	}

	streams := result.SubtitleStreams()
	tracks := make([]Track, 0, len(streams))
	for i, stream := range streams {
		tracks = append(tracks, Track{
			Index:       i,
			StreamIndex: stream.Index,
			Codec:       stream.CodecName,
			Language:    language.ExtractFromTags(stream.Tags),
			Title:       stream.Tag("title"),
		})
	}
	return tracks, nil
}

// LoadCues extracts the track to a VTT sidecar under dir and parses it.
// Malformed cues come back as warnings; bitmap tracks are rejected because
// they carry no text timing that survives conversion.
func (s *Source) LoadCues(ctx context.Context, input string, track Track, dir string) ([]Cue, []Warning, error) {
	if track.IsBitmap() {
		return nil, nil, services.Wrap(services.ErrValidation, "cue source", "load cues",
			fmt.Sprintf("track %d is a bitmap subtitle (%s); only text tracks can drive segmentation", track.Index, track.Codec), nil)
	}

	sidecar := filepath.Join(dir, fmt.Sprintf("subtitle_%d.vtt", track.Index))
	if err := s.transcoder.ExtractSubtitle(ctx, input, track.Index, sidecar); err != nil {
		return nil, nil, err
	}

	file, err := os.Open(sidecar)
	if err != nil {
		return nil, nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer file.Close()

	cues, warnings, err := ParseVTT(file, track.Index)
	if err != nil {
		return nil, warnings, err
	}

	for _, warning := range warnings {
		s.logger.Warn("cue skipped",
			logging.Int(logging.FieldTrack, track.Index),
			logging.Int("line", warning.Line),
			logging.String("detail", warning.Detail),
		)
	}
	s.logger.Debug("cues loaded",
		logging.Int(logging.FieldTrack, track.Index),
		logging.Int("cues", len(cues)),
		logging.Int("warnings", len(warnings)),
	)
	return cues, warnings, nil
}
