package ffmpeg

import (
	"context"
	"time"
)

// FrameRequest asks for a single still captured from the source.
type FrameRequest struct {
	Input  string
	At     time.Duration
	Output string
	// RelaxedSeek trades seek accuracy for robustness. Used on the retry
	// after an accurate-seek extraction failed.
	RelaxedSeek bool
}

// ClipRequest asks for a short video clip holding one still, with optional
// fade-in/out at the boundaries.
type ClipRequest struct {
	Image     string
	Duration  time.Duration
	FadeIn    time.Duration
	FadeOut   time.Duration
	FrameRate int
	Output    string
}

// ConcatRequest concatenates artifacts listed in a concat-demuxer file into
// one contiguous video stream.
type ConcatRequest struct {
	ListPath string
	Output   string
	// Encode selects still-image mode: the list entries are images with
	// per-entry durations and the result is encoded. When false the entries
	// are clips sharing a codec and are stream-copied.
	Encode    bool
	FrameRate int
}

// MuxRequest combines a slideshow video stream with the original audio and
// subtitle streams.
type MuxRequest struct {
	VideoPath string
	Source    string
	Output    string
	// KeepOriginalVideo maps the source's video stream ahead of the
	// slideshow stream.
	KeepOriginalVideo bool
	// SubtitleCodec is "copy" for Matroska outputs and a timed-text codec
	// (mov_text) for the MP4 family.
	SubtitleCodec string
	// VideoLanguage tags the slideshow stream with its subtitle track's
	// language (ISO 639-2).
	VideoLanguage string
}

// Transcoder is the external transcode/extract boundary the core calls
// through. Implementations surface the tool's exit status and stderr in
// returned errors rather than swallowing them.
type Transcoder interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractFrame(ctx context.Context, req FrameRequest) error
	EncodeClip(ctx context.Context, req ClipRequest) error
	ExtractSubtitle(ctx context.Context, input string, subtitleIndex int, output string) error
	Concat(ctx context.Context, req ConcatRequest) error
	Mux(ctx context.Context, req MuxRequest) error
}
