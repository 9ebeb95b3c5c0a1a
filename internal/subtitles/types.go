package subtitles

import (
	"fmt"
	"time"
)

// Cue is one subtitle line's time interval. Immutable once parsed.
type Cue struct {
	Start      time.Duration
	End        time.Duration
	TrackIndex int
}

// Track describes one subtitle stream in a container.
type Track struct {
	// Index is the subtitle-relative index (ffmpeg 0:s:N mapping).
	Index int
	// StreamIndex is the absolute stream index in the container.
	StreamIndex int
	Codec       string
	Language    string
	Title       string
}

// Warning records a malformed cue that was skipped during parsing.
// Collected, not thrown: a bad line never fails the track.
type Warning struct {
	Line   int
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Detail)
}

// bitmapCodecs are image-based subtitle formats that carry no text cues and
// cannot be converted to a text sidecar.
var bitmapCodecs = map[string]struct{}{
	"hdmv_pgs_subtitle": {},
	"dvd_subtitle":      {},
	"dvb_subtitle":      {},
	"xsub":              {},
}

// IsBitmap reports whether the track's codec is image-based.
func (t Track) IsBitmap() bool {
	_, ok := bitmapCodecs[t.Codec]
	return ok
}
