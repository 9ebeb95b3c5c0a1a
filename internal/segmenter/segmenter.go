package segmenter

import (
	"fmt"
	"sort"
	"time"

	"slidecast/internal/services"
	"slidecast/internal/subtitles"
)

// Kind labels a segment as dialogue-aligned or silence filler.
type Kind int

const (
	KindDialogue Kind = iota
	KindFiller
)

func (k Kind) String() string {
	switch k {
	case KindDialogue:
		return "dialogue"
	case KindFiller:
		return "filler"
	default:
		return "unknown"
	}
}

// Segment is one slide in the output timeline. Immutable once built.
type Segment struct {
	Start           time.Duration
	Duration        time.Duration
	SourceFrameTime time.Duration
	Kind            Kind
}

// End returns the exclusive end of the segment.
func (s Segment) End() time.Duration {
	return s.Start + s.Duration
}

// Options are the segmentation bounds. All values must be >= 0 and
// MinFrameLength must not exceed MaxFrameLength.
type Options struct {
	MinFrameLength time.Duration
	MaxFrameLength time.Duration
	DialogueOffset time.Duration
	// PreviewLimit truncates the timeline; zero renders the full duration.
	PreviewLimit time.Duration
}

// Warning records a cue the segmenter discarded. Recoverable; never fatal.
type Warning struct {
	Cue    subtitles.Cue
	Detail string
}

// Result is the authoritative timeline for one track plus any cue warnings.
type Result struct {
	Segments []Segment
	Warnings []Warning
}

// Horizon returns the total duration the segments cover.
func (r Result) Horizon() time.Duration {
	if len(r.Segments) == 0 {
		return 0
	}
	return r.Segments[len(r.Segments)-1].End()
}

// interval is a half-open cue span being merged.
type interval struct {
	start time.Duration
	end   time.Duration
}

// Build derives the gap-free slide timeline for one track: cues become
// dialogue segments (merged when closer than MinFrameLength, padded up to it,
// never capped above it), and silence becomes filler segments bounded by
// MaxFrameLength via equal division.
func Build(cues []subtitles.Cue, opts Options, total time.Duration) (Result, error) {
	if err := validate(opts, total); err != nil {
		return Result{}, err
	}

	sorted := make([]subtitles.Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	spans, warnings := normalize(sorted, opts, total)
	dialogue := merge(spans, opts.MinFrameLength)
	pad(dialogue, opts.MinFrameLength, total)

	segments := assemble(dialogue, opts.MaxFrameLength, total)
	horizon := total
	if opts.PreviewLimit > 0 && opts.PreviewLimit < total {
		segments = truncate(segments, opts.PreviewLimit)
		horizon = opts.PreviewLimit
	}

	if err := checkContiguity(segments, horizon); err != nil {
		return Result{}, err
	}
	return Result{Segments: segments, Warnings: warnings}, nil
}

func validate(opts Options, total time.Duration) error {
	if total <= 0 {
		return services.Wrap(services.ErrEmptyTimeline, "segmenter", "build", "video duration is zero", nil)
	}
	if opts.MinFrameLength < 0 || opts.MaxFrameLength < 0 || opts.DialogueOffset < 0 || opts.PreviewLimit < 0 {
		return services.Wrap(services.ErrConfiguration, "segmenter", "build", "durations must not be negative", nil)
	}
	if opts.MaxFrameLength == 0 {
		return services.Wrap(services.ErrConfiguration, "segmenter", "build", "max frame length must be positive", nil)
	}
	if opts.MinFrameLength > opts.MaxFrameLength {
		return services.Wrap(services.ErrConfiguration, "segmenter", "build", "min frame length exceeds max frame length", nil)
	}
	return nil
}

// normalize discards malformed or out-of-range cues and applies the dialogue
// offset, clamping results into [0, total).
func normalize(cues []subtitles.Cue, opts Options, total time.Duration) ([]interval, []Warning) {
	spans := make([]interval, 0, len(cues))
	var warnings []Warning

	for _, cue := range cues {
		if cue.End <= cue.Start {
			warnings = append(warnings, Warning{Cue: cue, Detail: "cue end not after start"})
			continue
		}
		if cue.Start >= total {
			warnings = append(warnings, Warning{Cue: cue, Detail: "cue starts beyond video duration"})
			continue
		}

		start := cue.Start + opts.DialogueOffset
		end := cue.End + opts.DialogueOffset
		if start >= total {
			warnings = append(warnings, Warning{Cue: cue, Detail: "cue shifted beyond video duration"})
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > total {
			end = total
		}
		if end <= start {
			warnings = append(warnings, Warning{Cue: cue, Detail: "cue empty after clipping"})
			continue
		}
		spans = append(spans, interval{start: start, end: end})
	}
	return spans, warnings
}

// merge collapses neighbors whose gap is smaller than min into one span.
// Single left-to-right pass; overlapping cues merge the same way.
func merge(spans []interval, min time.Duration) []interval {
	if len(spans) == 0 {
		return nil
	}

	merged := make([]interval, 0, len(spans))
	current := spans[0]
	for _, span := range spans[1:] {
		if span.start-current.end < min {
			if span.end > current.end {
				current.end = span.end
			}
			continue
		}
		merged = append(merged, current)
		current = span
	}
	return append(merged, current)
}

// pad extends short dialogue spans forward to min, capped at the next span's
// start and the video end. Long spans are left alone: a long line keeps its
// full hold, only filler is bounded above.
func pad(spans []interval, min time.Duration, total time.Duration) {
	for i := range spans {
		if spans[i].end-spans[i].start >= min {
			continue
		}
		end := spans[i].start + min
		if i+1 < len(spans) && end > spans[i+1].start {
			end = spans[i+1].start
		}
		if end > total {
			end = total
		}
		spans[i].end = end
	}
}

// assemble interleaves dialogue spans with filler over the silent gaps.
func assemble(dialogue []interval, max time.Duration, total time.Duration) []Segment {
	segments := make([]Segment, 0, len(dialogue)*2+1)
	cursor := time.Duration(0)
	for _, span := range dialogue {
		segments = appendFiller(segments, cursor, span.start, max)
		segments = append(segments, Segment{
			Start:           span.start,
			Duration:        span.end - span.start,
			SourceFrameTime: span.start,
			Kind:            KindDialogue,
		})
		cursor = span.end
	}
	return appendFiller(segments, cursor, total, max)
}

// appendFiller splits the gap [from, to) into the minimum number of
// equal-length pieces each at most max long. Equal division rather than
// max-then-remainder, so there is no trailing sliver.
func appendFiller(segments []Segment, from, to, max time.Duration) []Segment {
	gap := to - from
	if gap <= 0 {
		return segments
	}

	pieces := int64((gap + max - 1) / max)
	for i := int64(0); i < pieces; i++ {
		start := from + time.Duration(int64(gap)*i/pieces)
		end := from + time.Duration(int64(gap)*(i+1)/pieces)
		segments = append(segments, Segment{
			Start:           start,
			Duration:        end - start,
			SourceFrameTime: start,
			Kind:            KindFiller,
		})
	}
	return segments
}

// truncate clips the timeline to the preview horizon.
func truncate(segments []Segment, limit time.Duration) []Segment {
	out := segments[:0]
	for _, segment := range segments {
		if segment.Start >= limit {
			break
		}
		if segment.End() > limit {
			segment.Duration = limit - segment.Start
		}
		out = append(out, segment)
	}
	return out
}

// checkContiguity asserts the timeline invariant before the result escapes:
// starts at zero, no gaps or overlaps, ends exactly at the horizon.
func checkContiguity(segments []Segment, horizon time.Duration) error {
	if len(segments) == 0 {
		return fmt.Errorf("segmenter: empty timeline for horizon %s", horizon)
	}
	if segments[0].Start != 0 {
		return fmt.Errorf("segmenter: timeline starts at %s, want 0", segments[0].Start)
	}
	for i := 0; i < len(segments)-1; i++ {
		if segments[i].End() != segments[i+1].Start {
			return fmt.Errorf("segmenter: discontinuity between segment %d (ends %s) and %d (starts %s)",
				i, segments[i].End(), i+1, segments[i+1].Start)
		}
		if segments[i].Duration <= 0 {
			return fmt.Errorf("segmenter: segment %d has non-positive duration %s", i, segments[i].Duration)
		}
	}
	if last := segments[len(segments)-1]; last.End() != horizon {
		return fmt.Errorf("segmenter: timeline ends at %s, want %s", last.End(), horizon)
	}
	return nil
}
