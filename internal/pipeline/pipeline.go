// Package pipeline orchestrates a render run: preflight, track selection,
// segmentation, artifact production, and assembly, one output per selected
// subtitle track.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"slidecast/internal/assembler"
	"slidecast/internal/config"
	"slidecast/internal/deps"
	"slidecast/internal/history"
	"slidecast/internal/language"
	"slidecast/internal/logging"
	"slidecast/internal/producer"
	"slidecast/internal/segmenter"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/subtitles"
)

// CueSource lists subtitle tracks and loads their cues.
type CueSource interface {
	ListTracks(ctx context.Context, path string) ([]subtitles.Track, error)
	LoadCues(ctx context.Context, input string, track subtitles.Track, dir string) ([]subtitles.Cue, []subtitles.Warning, error)
}

// Pipeline drives full renders over one source file.
type Pipeline struct {
	cfg        *config.Config
	transcoder ffmpeg.Transcoder
	source     CueSource
	store      *history.Store
	logger     *slog.Logger
}

// New constructs a pipeline. The history store may be nil when recording is
// disabled.
func New(cfg *config.Config, transcoder ffmpeg.Transcoder, source CueSource, store *history.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		transcoder: transcoder,
		source:     source,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// TrackOutcome is the result of rendering one subtitle track.
type TrackOutcome struct {
	Track    subtitles.Track
	Output   string
	Segments int
	Err      error
}

// RunResult summarizes a render run across all selected tracks.
type RunResult struct {
	JobID    string
	Outcomes []TrackOutcome
}

// Failed reports whether every track failed.
func (r RunResult) Failed() bool {
	if len(r.Outcomes) == 0 {
		return true
	}
	for _, outcome := range r.Outcomes {
		if outcome.Err == nil {
			return false
		}
	}
	return true
}

// Run renders the selected subtitle tracks of input. Tracks render
// concurrently in disjoint temp directories; one track failing never aborts
// its siblings. The returned error is non-nil only when preflight fails or
// every track fails.
func (p *Pipeline) Run(ctx context.Context, input, output string) (RunResult, error) {
	if err := p.preflight(); err != nil {
		return RunResult{}, err
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.WorkDir, "slidecast.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return RunResult{}, fmt.Errorf("acquire render lock: %w", err)
	}
	if !locked {
		return RunResult{}, services.Wrap(services.ErrValidation, "pipeline", "lock",
			"another render is already running against this work directory", nil)
	}
	defer func() { _ = lock.Unlock() }()

	total, err := p.transcoder.ProbeDuration(ctx, input)
	if err != nil {
		return RunResult{}, err
	}
	if total <= 0 {
		return RunResult{}, services.Wrap(services.ErrEmptyTimeline, "pipeline", "probe", input, nil)
	}

	tracks, err := p.selectTracks(ctx, input)
	if err != nil {
		return RunResult{}, err
	}

	if output == "" {
		output = DefaultOutputPath(input)
	}

	result := RunResult{JobID: uuid.NewString()}
	p.recordStart(ctx, result.JobID, input)

	jobDir := filepath.Join(p.cfg.Paths.WorkDir, "job-"+result.JobID)
	defer func() { _ = os.RemoveAll(jobDir) }()

	p.logger.Info("render started",
		logging.String("job", result.JobID),
		logging.String("input", input),
		logging.Int("tracks", len(tracks)),
		logging.Duration("duration", total),
	)

	outcomes := make([]TrackOutcome, len(tracks))
	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func(slot int, track subtitles.Track) {
			defer wg.Done()
			outcomes[slot] = p.renderTrack(ctx, input, output, track, total, jobDir, len(tracks) > 1)
		}(i, track)
	}
	wg.Wait()
	result.Outcomes = outcomes

	p.recordFinish(ctx, result)

	if result.Failed() {
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				return result, outcome.Err
			}
		}
		return result, services.Wrap(services.ErrValidation, "pipeline", "run", "no tracks rendered", nil)
	}
	return result, nil
}

// Plan computes the segment timeline for one track without rendering. A
// negative trackIndex selects the first configured or available track.
func (p *Pipeline) Plan(ctx context.Context, input string, trackIndex int) (subtitles.Track, segmenter.Result, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return subtitles.Track{}, segmenter.Result{}, err
	}

	total, err := p.transcoder.ProbeDuration(ctx, input)
	if err != nil {
		return subtitles.Track{}, segmenter.Result{}, err
	}

	tracks, err := p.selectTracks(ctx, input)
	if err != nil {
		return subtitles.Track{}, segmenter.Result{}, err
	}
	track := tracks[0]
	if trackIndex >= 0 {
		found := false
		all, err := p.source.ListTracks(ctx, input)
		if err != nil {
			return subtitles.Track{}, segmenter.Result{}, err
		}
		for _, candidate := range all {
			if candidate.Index == trackIndex {
				track = candidate
				found = true
				break
			}
		}
		if !found {
			return subtitles.Track{}, segmenter.Result{}, services.Wrap(services.ErrValidation, "pipeline", "plan",
				fmt.Sprintf("no subtitle track with index %d", trackIndex), nil)
		}
	}

	dir, err := os.MkdirTemp(p.cfg.Paths.WorkDir, "plan-")
	if err != nil {
		return subtitles.Track{}, segmenter.Result{}, fmt.Errorf("create plan dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	cues, _, err := p.source.LoadCues(ctx, input, track, dir)
	if err != nil {
		return subtitles.Track{}, segmenter.Result{}, err
	}

	result, err := segmenter.Build(cues, p.segmentOptions(), total)
	if err != nil {
		return subtitles.Track{}, segmenter.Result{}, err
	}
	return track, result, nil
}

// Tracks lists the subtitle tracks of input.
func (p *Pipeline) Tracks(ctx context.Context, input string) ([]subtitles.Track, error) {
	return p.source.ListTracks(ctx, input)
}

func (p *Pipeline) preflight() error {
	if err := deps.Verify(deps.Required(p.cfg.FFmpegBinary(), p.cfg.FFprobeBinary())); err != nil {
		return err
	}
	if err := p.cfg.EnsureDirectories(); err != nil {
		return err
	}
	return deps.CheckDiskSpace(p.cfg.Paths.WorkDir, deps.MinFreeBytes)
}

// selectTracks resolves the configured track indexes against the container,
// defaulting to the first text track.
func (p *Pipeline) selectTracks(ctx context.Context, input string) ([]subtitles.Track, error) {
	tracks, err := p.source.ListTracks(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "select tracks",
			fmt.Sprintf("%s has no subtitle tracks", input), nil)
	}

	byIndex := make(map[int]subtitles.Track, len(tracks))
	for _, track := range tracks {
		byIndex[track.Index] = track
	}

	selected := p.cfg.Output.SelectedTracks
	if len(selected) == 0 {
		for _, track := range tracks {
			if !track.IsBitmap() {
				return []subtitles.Track{track}, nil
			}
		}
		return nil, services.Wrap(services.ErrValidation, "pipeline", "select tracks",
			"all subtitle tracks are bitmap formats; segmentation needs a text track", nil)
	}

	resolved := make([]subtitles.Track, 0, len(selected))
	for _, index := range selected {
		track, ok := byIndex[index]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "pipeline", "select tracks",
				fmt.Sprintf("no subtitle track with index %d (found %d tracks)", index, len(tracks)), nil)
		}
		resolved = append(resolved, track)
	}
	return resolved, nil
}

func (p *Pipeline) renderTrack(ctx context.Context, input, output string, track subtitles.Track, total time.Duration, jobDir string, multi bool) TrackOutcome {
	outcome := TrackOutcome{
		Track:  track,
		Output: OutputPathFor(output, track.Index, multi),
	}

	trackDir := filepath.Join(jobDir, fmt.Sprintf("track_%02d", track.Index))
	if err := os.MkdirAll(trackDir, 0o755); err != nil {
		outcome.Err = fmt.Errorf("create track dir: %w", err)
		return outcome
	}
	defer func() { _ = os.RemoveAll(trackDir) }()

	cues, _, err := p.source.LoadCues(ctx, input, track, trackDir)
	if err != nil {
		outcome.Err = err
		p.logTrackFailure(track, err)
		return outcome
	}

	timeline, err := segmenter.Build(cues, p.segmentOptions(), total)
	if err != nil {
		outcome.Err = err
		p.logTrackFailure(track, err)
		return outcome
	}
	outcome.Segments = len(timeline.Segments)

	for _, warning := range timeline.Warnings {
		p.logger.Warn("cue skipped",
			logging.Int(logging.FieldTrack, track.Index),
			logging.Duration("cue_start", warning.Cue.Start),
			logging.String("detail", warning.Detail),
		)
	}

	prod := producer.New(p.transcoder, p.logger, producer.Options{
		Workers:      p.cfg.Slideshow.Workers,
		FadeDuration: p.cfg.FadeDuration(),
		FrameRate:    p.cfg.Slideshow.FrameRate,
	})
	artifacts, err := prod.Render(ctx, input, timeline.Segments, trackDir)
	if err != nil {
		outcome.Err = err
		p.logTrackFailure(track, err)
		return outcome
	}

	asm := assembler.New(p.transcoder, p.logger, p.cfg.Slideshow.FrameRate)
	if err := asm.Assemble(ctx, assembler.Request{
		Source:            input,
		Artifacts:         artifacts,
		WorkDir:           trackDir,
		Output:            outcome.Output,
		KeepOriginalVideo: p.cfg.Output.KeepOriginalVideo,
		VideoLanguage:     language.ToISO3(track.Language),
	}); err != nil {
		outcome.Err = err
		p.logTrackFailure(track, err)
		return outcome
	}

	p.logger.Info("track rendered",
		logging.Int(logging.FieldTrack, track.Index),
		logging.Int("segments", outcome.Segments),
		logging.String("output", outcome.Output),
	)
	return outcome
}

func (p *Pipeline) logTrackFailure(track subtitles.Track, err error) {
	if services.TrackFatal(err) {
		p.logger.Error("track failed",
			logging.Int(logging.FieldTrack, track.Index),
			logging.Error(err),
		)
		return
	}
	p.logger.Warn("track skipped",
		logging.Int(logging.FieldTrack, track.Index),
		logging.Error(err),
	)
}

func (p *Pipeline) segmentOptions() segmenter.Options {
	return segmenter.Options{
		MinFrameLength: p.cfg.MinFrameLength(),
		MaxFrameLength: p.cfg.MaxFrameLength(),
		DialogueOffset: p.cfg.DialogueOffset(),
		PreviewLimit:   p.cfg.PreviewLimit(),
	}
}

func (p *Pipeline) recordStart(ctx context.Context, jobID, input string) {
	if p.store == nil {
		return
	}
	if err := p.store.StartJob(ctx, jobID, input); err != nil {
		p.logger.Warn("history write failed", logging.Error(err))
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, result RunResult) {
	if p.store == nil {
		return
	}

	succeeded := 0
	for _, outcome := range result.Outcomes {
		trackResult := history.TrackResult{
			JobID:      result.JobID,
			TrackIndex: outcome.Track.Index,
			Language:   outcome.Track.Language,
			Segments:   outcome.Segments,
			OutputPath: outcome.Output,
			Status:     history.StatusSucceeded,
		}
		if outcome.Err != nil {
			trackResult.Status = history.StatusFailed
			trackResult.Error = outcome.Err.Error()
			trackResult.OutputPath = ""
		} else {
			succeeded++
		}
		if err := p.store.RecordTrack(ctx, trackResult); err != nil {
			p.logger.Warn("history write failed", logging.Error(err))
		}
	}

	status := history.StatusSucceeded
	message := ""
	switch {
	case succeeded == 0:
		status = history.StatusFailed
		message = "all tracks failed"
	case succeeded < len(result.Outcomes):
		status = history.StatusPartial
	}
	if err := p.store.FinishJob(ctx, result.JobID, status, message); err != nil {
		p.logger.Warn("history write failed", logging.Error(err))
	}
}

// DefaultOutputPath derives the output location from the input: the same
// directory and container with a ".slideshow" suffix before the extension.
func DefaultOutputPath(input string) string {
	extension := filepath.Ext(input)
	return strings.TrimSuffix(input, extension) + ".slideshow" + extension
}

// OutputPathFor returns the per-track output path. Single-track runs keep the
// base path; multi-track runs insert the track index before the extension.
func OutputPathFor(base string, trackIndex int, multi bool) string {
	if !multi {
		return base
	}
	extension := filepath.Ext(base)
	return fmt.Sprintf("%s.track%d%s", strings.TrimSuffix(base, extension), trackIndex, extension)
}
