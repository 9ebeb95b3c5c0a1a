package producer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/segmenter"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
)

// Artifact is the rendered output for one segment: always a still image,
// plus an encoded clip when fades are enabled.
type Artifact struct {
	Segment   segmenter.Segment
	ImagePath string
	ClipPath  string
}

// Options control the render pool and per-segment encoding.
type Options struct {
	// Workers bounds concurrent transcoder invocations. Zero means one
	// worker per CPU.
	Workers      int
	FadeDuration time.Duration
	FrameRate    int
}

// Producer turns a timeline into per-segment artifacts on disk.
type Producer struct {
	transcoder ffmpeg.Transcoder
	logger     *slog.Logger
	opts       Options
}

// New constructs a producer.
func New(transcoder ffmpeg.Transcoder, logger *slog.Logger, opts Options) *Producer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Producer{
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "producer"),
		opts:       opts,
	}
}

// Render extracts a still for every segment under dir, encoding fade clips
// when a fade duration is configured. Artifacts come back in timeline order.
// The first failure cancels the remaining work and fails the whole render.
func (p *Producer) Render(ctx context.Context, input string, segments []segmenter.Segment, dir string) ([]Artifact, error) {
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrEmptyTimeline, "producer", "render", "no segments to render", nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.opts.Workers
	if workers > len(segments) {
		workers = len(segments)
	}
	p.logger.Info("rendering segments",
		logging.Int("segments", len(segments)),
		logging.Int("workers", workers),
	)

	artifacts := make([]Artifact, len(segments))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				artifact, err := p.renderSegment(ctx, input, index, segments[index], dir)
				if err != nil {
					fail(err)
					return
				}
				artifacts[index] = artifact
			}
		}()
	}

dispatch:
	for index := range segments {
		select {
		case jobs <- index:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (p *Producer) renderSegment(ctx context.Context, input string, index int, segment segmenter.Segment, dir string) (Artifact, error) {
	artifact := Artifact{
		Segment:   segment,
		ImagePath: filepath.Join(dir, fmt.Sprintf("frame_%05d.jpg", index)),
	}

	if err := p.extractStill(ctx, input, segment, artifact.ImagePath); err != nil {
		return Artifact{}, err
	}

	if p.opts.FadeDuration > 0 {
		artifact.ClipPath = filepath.Join(dir, fmt.Sprintf("clip_%05d.mp4", index))
		if err := p.encodeClip(ctx, segment, artifact.ImagePath, artifact.ClipPath); err != nil {
			return Artifact{}, err
		}
	}

	p.logger.Debug("segment rendered",
		logging.Int("segment", index),
		logging.Duration("source_time", segment.SourceFrameTime),
		logging.Duration("hold", segment.Duration),
	)
	return artifact, nil
}

// extractStill captures the segment's frame, retrying once with relaxed
// seeking before giving up. Frames near keyframe boundaries sometimes fail
// the accurate seek but survive the relaxed one.
func (p *Producer) extractStill(ctx context.Context, input string, segment segmenter.Segment, output string) error {
	request := ffmpeg.FrameRequest{
		Input:  input,
		At:     segment.SourceFrameTime,
		Output: output,
	}
	err := p.transcoder.ExtractFrame(ctx, request)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.logger.Warn("frame extraction failed, retrying with relaxed seek",
		logging.Duration("source_time", segment.SourceFrameTime),
		logging.Error(err),
	)
	request.RelaxedSeek = true
	if retryErr := p.transcoder.ExtractFrame(ctx, request); retryErr != nil {
		return services.Wrap(services.ErrExtraction, "producer", "extract frame",
			fmt.Sprintf("frame at %s failed after relaxed-seek retry", segment.SourceFrameTime), retryErr)
	}
	return nil
}

func (p *Producer) encodeClip(ctx context.Context, segment segmenter.Segment, image, output string) error {
	fade := p.opts.FadeDuration
	// A fade may not consume more than half the hold, or in and out would
	// overlap.
	if max := segment.Duration / 2; fade > max {
		fade = max
	}
	request := ffmpeg.ClipRequest{
		Image:     image,
		Duration:  segment.Duration,
		FadeIn:    fade,
		FadeOut:   fade,
		FrameRate: p.opts.FrameRate,
		Output:    output,
	}
	if err := p.transcoder.EncodeClip(ctx, request); err != nil {
		return services.Wrap(services.ErrExtraction, "producer", "encode clip",
			fmt.Sprintf("clip for segment at %s", segment.Start), err)
	}
	return nil
}
