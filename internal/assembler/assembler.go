package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"slidecast/internal/fileutil"
	"slidecast/internal/logging"
	"slidecast/internal/producer"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
)

// Assembler concatenates per-segment artifacts into the slideshow stream and
// muxes it with the source's audio and subtitle streams.
type Assembler struct {
	transcoder ffmpeg.Transcoder
	logger     *slog.Logger
	frameRate  int
}

// New constructs an assembler.
func New(transcoder ffmpeg.Transcoder, logger *slog.Logger, frameRate int) *Assembler {
	return &Assembler{
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "assembler"),
		frameRate:  frameRate,
	}
}

// Request describes one final output to assemble.
type Request struct {
	// Source is the original video whose audio and subtitles carry over.
	Source    string
	Artifacts []producer.Artifact
	// WorkDir holds the concat list and staged intermediates.
	WorkDir string
	Output  string
	// KeepOriginalVideo maps the source video stream ahead of the slideshow.
	KeepOriginalVideo bool
	// VideoLanguage tags the slideshow stream (ISO 639-2), empty to skip.
	VideoLanguage string
}

// SubtitleCodecFor returns the subtitle codec the output container requires:
// the MP4 family only carries timed text, Matroska can hold the source codec
// unchanged.
func SubtitleCodecFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return "mov_text", nil
	case ".mkv":
		return "copy", nil
	default:
		return "", services.Wrap(services.ErrValidation, "assembler", "container policy",
			fmt.Sprintf("unsupported output container %q; use .mkv, .mp4, .m4v, or .mov", filepath.Ext(path)), nil)
	}
}

// Assemble concatenates the artifacts, muxes the result with the source's
// audio and subtitle streams, and moves the finished file to req.Output.
// Intermediates stay in req.WorkDir; a failed mux leaves no partial output.
func (a *Assembler) Assemble(ctx context.Context, req Request) error {
	if len(req.Artifacts) == 0 {
		return services.Wrap(services.ErrEmptyTimeline, "assembler", "assemble", "no artifacts to assemble", nil)
	}

	subtitleCodec, err := SubtitleCodecFor(req.Output)
	if err != nil {
		return err
	}

	useClips := req.Artifacts[0].ClipPath != ""
	listPath := filepath.Join(req.WorkDir, "concat.txt")
	if err := writeConcatList(listPath, req.Artifacts, useClips); err != nil {
		return services.Wrap(services.ErrAssembly, "assembler", "write concat list", listPath, err)
	}

	extension := filepath.Ext(req.Output)
	slideshowPath := filepath.Join(req.WorkDir, "slideshow"+extension)
	a.logger.Info("concatenating segments",
		logging.Int("artifacts", len(req.Artifacts)),
		logging.Bool("clips", useClips),
	)
	if err := a.transcoder.Concat(ctx, ffmpeg.ConcatRequest{
		ListPath:  listPath,
		Output:    slideshowPath,
		Encode:    !useClips,
		FrameRate: a.frameRate,
	}); err != nil {
		return services.Wrap(services.ErrAssembly, "assembler", "concat", slideshowPath, err)
	}

	stagedPath := filepath.Join(req.WorkDir, "muxed"+extension)
	if err := a.transcoder.Mux(ctx, ffmpeg.MuxRequest{
		VideoPath:         slideshowPath,
		Source:            req.Source,
		Output:            stagedPath,
		KeepOriginalVideo: req.KeepOriginalVideo,
		SubtitleCodec:     subtitleCodec,
		VideoLanguage:     req.VideoLanguage,
	}); err != nil {
		_ = os.Remove(stagedPath)
		return services.Wrap(services.ErrAssembly, "assembler", "mux", req.Output, err)
	}

	if err := fileutil.MoveFile(stagedPath, req.Output); err != nil {
		_ = os.Remove(req.Output)
		return services.Wrap(services.ErrAssembly, "assembler", "finalize", req.Output, err)
	}
	a.logger.Info("output written", logging.String("path", req.Output))
	return nil
}

// writeConcatList emits a concat-demuxer list. Still-image entries carry an
// explicit duration and repeat the final image so its duration is honored;
// clip entries already encode their own length.
func writeConcatList(path string, artifacts []producer.Artifact, useClips bool) error {
	var builder strings.Builder
	for _, artifact := range artifacts {
		if useClips {
			fmt.Fprintf(&builder, "file '%s'\n", escapeConcatPath(artifact.ClipPath))
			continue
		}
		fmt.Fprintf(&builder, "file '%s'\n", escapeConcatPath(artifact.ImagePath))
		fmt.Fprintf(&builder, "duration %s\n", strconv.FormatFloat(artifact.Segment.Duration.Seconds(), 'f', 3, 64))
	}
	if !useClips {
		last := artifacts[len(artifacts)-1]
		fmt.Fprintf(&builder, "file '%s'\n", escapeConcatPath(last.ImagePath))
	}
	return os.WriteFile(path, []byte(builder.String()), 0o644)
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
