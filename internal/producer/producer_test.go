package producer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/segmenter"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
)

type recordingTranscoder struct {
	mu     sync.Mutex
	frames []ffmpeg.FrameRequest
	clips  []ffmpeg.ClipRequest

	// failAccurate makes accurate-seek extraction fail; relaxed retries
	// succeed unless failRelaxed is also set.
	failAccurate bool
	failRelaxed  bool
	clipErr      error
}

func (r *recordingTranscoder) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 0, nil
}

func (r *recordingTranscoder) ExtractFrame(_ context.Context, req ffmpeg.FrameRequest) error {
	r.mu.Lock()
	r.frames = append(r.frames, req)
	r.mu.Unlock()
	if !req.RelaxedSeek && r.failAccurate {
		return errors.New("accurate seek failed")
	}
	if req.RelaxedSeek && r.failRelaxed {
		return errors.New("relaxed seek failed")
	}
	return nil
}

func (r *recordingTranscoder) EncodeClip(_ context.Context, req ffmpeg.ClipRequest) error {
	r.mu.Lock()
	r.clips = append(r.clips, req)
	r.mu.Unlock()
	return r.clipErr
}

func (r *recordingTranscoder) ExtractSubtitle(context.Context, string, int, string) error {
	return nil
}

func (r *recordingTranscoder) Concat(context.Context, ffmpeg.ConcatRequest) error { return nil }

func (r *recordingTranscoder) Mux(context.Context, ffmpeg.MuxRequest) error { return nil }

func timeline() []segmenter.Segment {
	return []segmenter.Segment{
		{Start: 0, Duration: 2 * time.Second, SourceFrameTime: 0, Kind: segmenter.KindFiller},
		{Start: 2 * time.Second, Duration: 3 * time.Second, SourceFrameTime: 2 * time.Second, Kind: segmenter.KindDialogue},
		{Start: 5 * time.Second, Duration: time.Second, SourceFrameTime: 5 * time.Second, Kind: segmenter.KindFiller},
	}
}

func TestRenderStillsOnly(t *testing.T) {
	transcoder := &recordingTranscoder{}
	producer := New(transcoder, logging.NewNop(), Options{Workers: 2, FrameRate: 24})

	artifacts, err := producer.Render(context.Background(), "movie.mkv", timeline(), t.TempDir())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("artifacts = %d", len(artifacts))
	}
	for i, artifact := range artifacts {
		if artifact.ClipPath != "" {
			t.Fatalf("artifact %d has clip without fades: %+v", i, artifact)
		}
		if !strings.Contains(artifact.ImagePath, "frame_0000") {
			t.Fatalf("artifact %d image path = %q", i, artifact.ImagePath)
		}
	}
	// Artifacts stay in timeline order regardless of worker scheduling.
	if artifacts[1].Segment.Kind != segmenter.KindDialogue {
		t.Fatalf("artifact order lost: %+v", artifacts[1].Segment)
	}
	if len(transcoder.frames) != 3 {
		t.Fatalf("frame extractions = %d", len(transcoder.frames))
	}
	if len(transcoder.clips) != 0 {
		t.Fatalf("unexpected clip encodes: %d", len(transcoder.clips))
	}
}

func TestRenderWithFadesEncodesClips(t *testing.T) {
	transcoder := &recordingTranscoder{}
	producer := New(transcoder, logging.NewNop(), Options{
		Workers:      1,
		FadeDuration: 800 * time.Millisecond,
		FrameRate:    24,
	})

	artifacts, err := producer.Render(context.Background(), "movie.mkv", timeline(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(transcoder.clips) != 3 {
		t.Fatalf("clip encodes = %d", len(transcoder.clips))
	}
	for _, artifact := range artifacts {
		if artifact.ClipPath == "" {
			t.Fatalf("missing clip path: %+v", artifact)
		}
	}
	for _, clip := range transcoder.clips {
		if clip.FrameRate != 24 {
			t.Fatalf("clip frame rate = %d", clip.FrameRate)
		}
		if clip.FadeIn > clip.Duration/2 {
			t.Fatalf("fade %v exceeds half of %v", clip.FadeIn, clip.Duration)
		}
	}
}

func TestRenderClampsFadeToHalfDuration(t *testing.T) {
	transcoder := &recordingTranscoder{}
	producer := New(transcoder, logging.NewNop(), Options{
		Workers:      1,
		FadeDuration: 5 * time.Second,
		FrameRate:    24,
	})

	segments := []segmenter.Segment{{Start: 0, Duration: time.Second, Kind: segmenter.KindFiller}}
	if _, err := producer.Render(context.Background(), "movie.mkv", segments, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if got := transcoder.clips[0].FadeIn; got != 500*time.Millisecond {
		t.Fatalf("fade in = %v, want 500ms", got)
	}
}

func TestRenderRetriesWithRelaxedSeek(t *testing.T) {
	transcoder := &recordingTranscoder{failAccurate: true}
	producer := New(transcoder, logging.NewNop(), Options{Workers: 1, FrameRate: 24})

	segments := timeline()[:1]
	if _, err := producer.Render(context.Background(), "movie.mkv", segments, t.TempDir()); err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if len(transcoder.frames) != 2 {
		t.Fatalf("frame attempts = %d, want 2", len(transcoder.frames))
	}
	if transcoder.frames[0].RelaxedSeek || !transcoder.frames[1].RelaxedSeek {
		t.Fatalf("attempts = %+v", transcoder.frames)
	}
}

func TestRenderFailsAfterRelaxedRetry(t *testing.T) {
	transcoder := &recordingTranscoder{failAccurate: true, failRelaxed: true}
	producer := New(transcoder, logging.NewNop(), Options{Workers: 2, FrameRate: 24})

	_, err := producer.Render(context.Background(), "movie.mkv", timeline(), t.TempDir())
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestRenderClipFailureIsExtractionError(t *testing.T) {
	transcoder := &recordingTranscoder{clipErr: errors.New("encoder exploded")}
	producer := New(transcoder, logging.NewNop(), Options{
		Workers:      1,
		FadeDuration: time.Second,
		FrameRate:    24,
	})

	_, err := producer.Render(context.Background(), "movie.mkv", timeline(), t.TempDir())
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestRenderEmptyTimeline(t *testing.T) {
	producer := New(&recordingTranscoder{}, logging.NewNop(), Options{Workers: 1})
	_, err := producer.Render(context.Background(), "movie.mkv", nil, t.TempDir())
	if !errors.Is(err, services.ErrEmptyTimeline) {
		t.Fatalf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestRenderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	producer := New(&recordingTranscoder{}, logging.NewNop(), Options{Workers: 2})
	_, err := producer.Render(ctx, "movie.mkv", timeline(), t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
