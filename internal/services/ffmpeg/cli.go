package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/media/ffprobe"
	"slidecast/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Option configures the CLI transcoder.
type Option func(*CLI)

// WithBinaries overrides the ffmpeg and ffprobe binary names.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(ffmpegBin) != "" {
			c.ffmpeg = ffmpegBin
		}
		if strings.TrimSpace(ffprobeBin) != "" {
			c.ffprobe = ffprobeBin
		}
	}
}

// WithTimeout bounds each transcoder request. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithVerbose passes tool output through instead of quieting it.
func WithVerbose(verbose bool) Option {
	return func(c *CLI) { c.verbose = verbose }
}

// WithCommandRunner injects a custom command runner for tests.
func WithCommandRunner(run commandRunner) Option {
	return func(c *CLI) {
		if run != nil {
			c.run = run
		}
	}
}

// CLI drives the ffmpeg and ffprobe command-line tools.
type CLI struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	verbose bool
	run     commandRunner
}

// NewCLI constructs a CLI transcoder using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	cli.run = cli.runCommand
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ProbeDuration returns the container duration of the given file.
func (c *CLI) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, c.ffprobe, path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "transcoder", "probe duration", path, err)
	}
	return result.Duration(), nil
}

// ExtractFrame captures one still at the requested offset.
func (c *CLI) ExtractFrame(ctx context.Context, req FrameRequest) error {
	if req.Input == "" || req.Output == "" {
		return errors.New("extract frame: input and output paths required")
	}

	args := c.baseArgs()
	if req.RelaxedSeek {
		args = append(args, "-noaccurate_seek")
	}
	args = append(args,
		"-ss", formatSeconds(req.At),
		"-i", req.Input,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", req.Output,
	)
	return c.exec(ctx, "extract frame", args)
}

// EncodeClip renders a still into a hold clip with optional boundary fades.
func (c *CLI) EncodeClip(ctx context.Context, req ClipRequest) error {
	if req.Image == "" || req.Output == "" {
		return errors.New("encode clip: image and output paths required")
	}
	if req.Duration <= 0 {
		return errors.New("encode clip: duration must be positive")
	}

	rate := req.FrameRate
	if rate <= 0 {
		rate = 24
	}

	args := c.baseArgs()
	args = append(args,
		"-loop", "1",
		"-framerate", strconv.Itoa(rate),
		"-i", req.Image,
		"-t", formatSeconds(req.Duration),
		"-vf", clipFilter(req),
		"-c:v", "libx264",
		"-r", strconv.Itoa(rate),
		"-y", req.Output,
	)
	return c.exec(ctx, "encode clip", args)
}

// ExtractSubtitle demuxes one subtitle track into a sidecar file. The index
// is subtitle-relative (ffmpeg 0:s:N mapping).
func (c *CLI) ExtractSubtitle(ctx context.Context, input string, subtitleIndex int, output string) error {
	if input == "" || output == "" {
		return errors.New("extract subtitle: input and output paths required")
	}
	if subtitleIndex < 0 {
		return fmt.Errorf("extract subtitle: invalid track index %d", subtitleIndex)
	}

	args := c.baseArgs()
	args = append(args,
		"-i", input,
		"-map", fmt.Sprintf("0:s:%d", subtitleIndex),
		"-y", output,
	)
	return c.exec(ctx, "extract subtitle", args)
}

// Concat joins the artifacts in the concat list into one video stream.
func (c *CLI) Concat(ctx context.Context, req ConcatRequest) error {
	if req.ListPath == "" || req.Output == "" {
		return errors.New("concat: list and output paths required")
	}

	rate := req.FrameRate
	if rate <= 0 {
		rate = 24
	}

	args := c.baseArgs()
	args = append(args, "-f", "concat", "-safe", "0", "-i", req.ListPath)
	if req.Encode {
		args = append(args,
			"-c:v", "libx264",
			"-r", strconv.Itoa(rate),
			"-pix_fmt", "yuv420p",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, "-y", req.Output)
	return c.exec(ctx, "concat", args)
}

// Mux combines the slideshow stream with the source's audio and subtitles.
// Audio is always stream-copied; video length follows the shortest stream.
func (c *CLI) Mux(ctx context.Context, req MuxRequest) error {
	if req.VideoPath == "" || req.Source == "" || req.Output == "" {
		return errors.New("mux: video, source, and output paths required")
	}

	subtitleCodec := req.SubtitleCodec
	if subtitleCodec == "" {
		subtitleCodec = "copy"
	}

	args := c.baseArgs()
	args = append(args, "-i", req.VideoPath, "-i", req.Source)

	slideshowStream := 0
	if req.KeepOriginalVideo {
		args = append(args, "-map", "1:v")
		slideshowStream = 1
	}
	args = append(args, "-map", "0:v")
	// Audio and subtitles are optional in the source.
	args = append(args, "-map", "1:a?", "-map", "1:s?")

	if lang := strings.TrimSpace(req.VideoLanguage); lang != "" {
		args = append(args, fmt.Sprintf("-metadata:s:v:%d", slideshowStream), "language="+lang)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", subtitleCodec,
		"-shortest",
		"-y", req.Output,
	)
	return c.exec(ctx, "mux", args)
}

func (c *CLI) baseArgs() []string {
	if c.verbose {
		return []string{"-hide_banner"}
	}
	return []string{"-hide_banner", "-loglevel", "error"}
}

func (c *CLI) exec(ctx context.Context, operation string, args []string) error {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	if err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcoder", operation, "", err)
	}
	return nil
}

func (c *CLI) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *CLI) runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if c.verbose {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func clipFilter(req ClipRequest) string {
	filters := make([]string, 0, 3)
	if req.FadeIn > 0 {
		filters = append(filters, fmt.Sprintf("fade=t=in:st=0:d=%s", formatSeconds(req.FadeIn)))
	}
	if req.FadeOut > 0 {
		start := req.Duration - req.FadeOut
		if start < 0 {
			start = 0
		}
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", formatSeconds(start), formatSeconds(req.FadeOut)))
	}
	filters = append(filters, "format=yuv420p")
	return strings.Join(filters, ",")
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Second), 'f', 3, 64)
}

var _ Transcoder = (*CLI)(nil)
