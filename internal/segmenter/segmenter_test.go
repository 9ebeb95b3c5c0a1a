package segmenter

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"slidecast/internal/services"
	"slidecast/internal/subtitles"
)

func sec(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func cue(start, end float64) subtitles.Cue {
	return subtitles.Cue{Start: sec(start), End: sec(end)}
}

func defaultOptions() Options {
	return Options{
		MinFrameLength: sec(0.5),
		MaxFrameLength: sec(4),
	}
}

// requireContiguous checks the timeline invariant: starts at zero, gap-free,
// non-overlapping, durations summing to the horizon.
func requireContiguous(t *testing.T, segments []Segment, horizon time.Duration) {
	t.Helper()
	if len(segments) == 0 {
		t.Fatal("empty timeline")
	}
	if segments[0].Start != 0 {
		t.Fatalf("first segment starts at %v", segments[0].Start)
	}
	var sum time.Duration
	for i, segment := range segments {
		if segment.Duration <= 0 {
			t.Fatalf("segment %d has duration %v", i, segment.Duration)
		}
		if i > 0 && segments[i-1].End() != segment.Start {
			t.Fatalf("gap between segment %d and %d: %v != %v", i-1, i, segments[i-1].End(), segment.Start)
		}
		sum += segment.Duration
	}
	if sum != horizon {
		t.Fatalf("durations sum to %v, want %v", sum, horizon)
	}
	if last := segments[len(segments)-1]; last.End() != horizon {
		t.Fatalf("timeline ends at %v, want %v", last.End(), horizon)
	}
}

func TestBuildSpecExample(t *testing.T) {
	// Two cues 0.05s apart merge; the 6s tail splits into two 3s fillers.
	cues := []subtitles.Cue{cue(2.0, 3.0), cue(3.05, 4.0)}
	result, err := Build(cues, defaultOptions(), sec(10))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContiguous(t, result.Segments, sec(10))

	want := []Segment{
		{Start: 0, Duration: sec(2), SourceFrameTime: 0, Kind: KindFiller},
		{Start: sec(2), Duration: sec(2), SourceFrameTime: sec(2), Kind: KindDialogue},
		{Start: sec(4), Duration: sec(3), SourceFrameTime: sec(4), Kind: KindFiller},
		{Start: sec(7), Duration: sec(3), SourceFrameTime: sec(7), Kind: KindFiller},
	}
	if !reflect.DeepEqual(result.Segments, want) {
		t.Fatalf("segments = %+v\nwant %+v", result.Segments, want)
	}
}

func TestBuildEmptyCueList(t *testing.T) {
	// 8s of silence with max 3s: three equal fillers of 8/3s.
	result, err := Build(nil, Options{MinFrameLength: sec(0.1), MaxFrameLength: sec(3)}, sec(8))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContiguous(t, result.Segments, sec(8))
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 fillers, got %d", len(result.Segments))
	}
	for i, segment := range result.Segments {
		if segment.Kind != KindFiller {
			t.Fatalf("segment %d kind = %v", i, segment.Kind)
		}
		if diff := segment.Duration - sec(8)/3; diff < -time.Millisecond || diff > time.Millisecond {
			t.Fatalf("segment %d duration = %v, want ~%v", i, segment.Duration, sec(8)/3)
		}
	}
}

func TestMergeCloseCues(t *testing.T) {
	cues := []subtitles.Cue{cue(1, 2), cue(2.1, 3), cue(3.2, 4)}
	result, err := Build(cues, Options{MinFrameLength: sec(0.5), MaxFrameLength: sec(10)}, sec(5))
	if err != nil {
		t.Fatal(err)
	}
	var dialogue []Segment
	for _, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			dialogue = append(dialogue, segment)
		}
	}
	if len(dialogue) != 1 {
		t.Fatalf("expected one merged dialogue segment, got %d: %+v", len(dialogue), dialogue)
	}
	if dialogue[0].Start != sec(1) || dialogue[0].Duration != sec(3) {
		t.Fatalf("merged segment = %+v", dialogue[0])
	}
}

func TestOverlappingCuesMergeEvenWithZeroMin(t *testing.T) {
	cues := []subtitles.Cue{cue(1, 3), cue(2, 4)}
	result, err := Build(cues, Options{MinFrameLength: 0, MaxFrameLength: sec(10)}, sec(6))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(6))
	for i, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			if segment.Start != sec(1) || segment.Duration != sec(3) {
				t.Fatalf("segment %d = %+v", i, segment)
			}
		}
	}
}

func TestDialogueNotCappedByMax(t *testing.T) {
	// A 30s line keeps its full hold; only filler is bounded above.
	cues := []subtitles.Cue{cue(0, 30)}
	result, err := Build(cues, Options{MinFrameLength: sec(0.1), MaxFrameLength: sec(4)}, sec(40))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(40))
	if result.Segments[0].Kind != KindDialogue || result.Segments[0].Duration != sec(30) {
		t.Fatalf("dialogue segment = %+v", result.Segments[0])
	}
	for _, segment := range result.Segments[1:] {
		if segment.Kind != KindFiller {
			t.Fatalf("expected filler tail, got %+v", segment)
		}
		if segment.Duration > sec(4) {
			t.Fatalf("filler exceeds max: %+v", segment)
		}
	}
}

func TestShortDialoguePaddedToMin(t *testing.T) {
	cues := []subtitles.Cue{cue(2, 2.1)}
	result, err := Build(cues, Options{MinFrameLength: sec(1), MaxFrameLength: sec(5)}, sec(10))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(10))
	for _, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			if segment.Duration != sec(1) {
				t.Fatalf("expected padding to 1s, got %+v", segment)
			}
			return
		}
	}
	t.Fatal("no dialogue segment found")
}

func TestPaddingCappedAtNextDialogue(t *testing.T) {
	// Padding the first cue forward may not overlap the second.
	cues := []subtitles.Cue{cue(1, 1.1), cue(2.2, 3)}
	result, err := Build(cues, Options{MinFrameLength: sec(1), MaxFrameLength: sec(5)}, sec(5))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(5))
}

func TestPaddingCappedAtVideoEnd(t *testing.T) {
	cues := []subtitles.Cue{cue(9.8, 9.9)}
	result, err := Build(cues, Options{MinFrameLength: sec(1), MaxFrameLength: sec(5)}, sec(10))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(10))
}

func TestFillerPieceCount(t *testing.T) {
	cases := []struct {
		gap    float64
		max    float64
		pieces int
	}{
		{6, 4, 2},
		{8, 3, 3},
		{4, 4, 1},
		{4.000001, 4, 2},
		{0.5, 10, 1},
	}
	for _, tc := range cases {
		result, err := Build(nil, Options{MaxFrameLength: sec(tc.max)}, sec(tc.gap))
		if err != nil {
			t.Fatalf("gap %v: %v", tc.gap, err)
		}
		if len(result.Segments) != tc.pieces {
			t.Fatalf("gap %v max %v: %d pieces, want %d", tc.gap, tc.max, len(result.Segments), tc.pieces)
		}
		for _, segment := range result.Segments {
			if segment.Duration > sec(tc.max) {
				t.Fatalf("gap %v: piece %v exceeds max %v", tc.gap, segment.Duration, tc.max)
			}
		}
	}
}

func TestDialogueOffsetShiftsAndClamps(t *testing.T) {
	cues := []subtitles.Cue{cue(1, 2), cue(8.5, 9.5)}
	opts := Options{MinFrameLength: sec(0.1), MaxFrameLength: sec(10), DialogueOffset: sec(1)}
	result, err := Build(cues, opts, sec(10))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(10))

	var dialogue []Segment
	for _, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			dialogue = append(dialogue, segment)
		}
	}
	if len(dialogue) != 2 {
		t.Fatalf("dialogue segments = %v", dialogue)
	}
	if dialogue[0].Start != sec(2) {
		t.Fatalf("first dialogue start = %v, want 2s", dialogue[0].Start)
	}
	// The second cue shifts to [9.5, 10.5) and clips to end at the horizon.
	if dialogue[1].Start != sec(9.5) || dialogue[1].End() != sec(10) {
		t.Fatalf("second dialogue = %+v", dialogue[1])
	}
}

func TestOffsetBeyondDurationDiscardsCueWithWarning(t *testing.T) {
	cues := []subtitles.Cue{cue(9.5, 9.9)}
	opts := Options{MinFrameLength: sec(0.1), MaxFrameLength: sec(10), DialogueOffset: sec(2)}
	result, err := Build(cues, opts, sec(10))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	for _, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			t.Fatalf("unexpected dialogue segment %+v", segment)
		}
	}
}

func TestMalformedCuesSkippedWithWarnings(t *testing.T) {
	cues := []subtitles.Cue{
		cue(5, 4),    // end before start
		cue(12, 13),  // starts beyond duration
		cue(1, 2),    // fine
		cue(3.0, 3.0), // zero length
	}
	result, err := Build(cues, defaultOptions(), sec(10))
	if err != nil {
		t.Fatalf("malformed cues must not fail the build: %v", err)
	}
	if len(result.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", result.Warnings)
	}
	requireContiguous(t, result.Segments, sec(10))
}

func TestUnsortedCuesAreSortedStably(t *testing.T) {
	cues := []subtitles.Cue{cue(6, 7), cue(1, 2)}
	result, err := Build(cues, defaultOptions(), sec(10))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(10))
	var starts []time.Duration
	for _, segment := range result.Segments {
		if segment.Kind == KindDialogue {
			starts = append(starts, segment.Start)
		}
	}
	if len(starts) != 2 || starts[0] != sec(1) || starts[1] != sec(6) {
		t.Fatalf("dialogue starts = %v", starts)
	}
}

func TestPreviewLimitTruncates(t *testing.T) {
	cues := []subtitles.Cue{cue(2, 3), cue(5, 6)}
	opts := defaultOptions()
	opts.PreviewLimit = sec(5.5)
	result, err := Build(cues, opts, sec(60))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(5.5))
	last := result.Segments[len(result.Segments)-1]
	if last.Kind != KindDialogue || last.Start != sec(5) || last.Duration != sec(0.5) {
		t.Fatalf("last segment = %+v", last)
	}
}

func TestPreviewLimitBeyondDurationIsNoop(t *testing.T) {
	opts := defaultOptions()
	opts.PreviewLimit = sec(100)
	result, err := Build(nil, opts, sec(10))
	if err != nil {
		t.Fatal(err)
	}
	requireContiguous(t, result.Segments, sec(10))
}

func TestErrEmptyTimeline(t *testing.T) {
	_, err := Build(nil, defaultOptions(), 0)
	if !errors.Is(err, services.ErrEmptyTimeline) {
		t.Fatalf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestErrInvalidConfiguration(t *testing.T) {
	cases := []Options{
		{MinFrameLength: sec(5), MaxFrameLength: sec(1)},
		{MinFrameLength: -sec(1), MaxFrameLength: sec(1)},
		{MinFrameLength: sec(1), MaxFrameLength: sec(2), DialogueOffset: -sec(1)},
		{MaxFrameLength: 0},
	}
	for i, opts := range cases {
		_, err := Build(nil, opts, sec(10))
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("case %d: expected ErrConfiguration, got %v", i, err)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cues := make([]subtitles.Cue, 0, 50)
	for i := 0; i < 50; i++ {
		start := rng.Float64() * 590
		cues = append(cues, cue(start, start+rng.Float64()*8))
	}
	opts := Options{MinFrameLength: sec(0.3), MaxFrameLength: sec(7), DialogueOffset: sec(0.2)}

	first, err := Build(cues, opts, sec(600))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Build(cues, opts, sec(600))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two builds over identical inputs differ")
	}
	requireContiguous(t, first.Segments, sec(600))
}

func TestContiguityOverRandomizedInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		total := sec(1 + rng.Float64()*3600)
		count := rng.Intn(40)
		cues := make([]subtitles.Cue, 0, count)
		for i := 0; i < count; i++ {
			start := rng.Float64() * 3700
			cues = append(cues, cue(start, start+rng.Float64()*15))
		}
		opts := Options{
			MinFrameLength: sec(rng.Float64() * 2),
			MaxFrameLength: sec(2 + rng.Float64()*10),
			DialogueOffset: sec(rng.Float64()),
		}
		result, err := Build(cues, opts, total)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		requireContiguous(t, result.Segments, total)
		for _, segment := range result.Segments {
			if segment.Kind == KindFiller && segment.Duration > opts.MaxFrameLength {
				t.Fatalf("trial %d: filler %v exceeds max %v", trial, segment.Duration, opts.MaxFrameLength)
			}
		}
	}
}
