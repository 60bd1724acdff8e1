package ffprobe

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SubtitleTrack describes one subtitle stream as the extractor sees it.
type SubtitleTrack struct {
	// StreamIndex is the absolute stream index in the container.
	StreamIndex int
	// Ordinal is the position among subtitle streams, as used by ffmpeg's
	// 0:s:N stream specifier.
	Ordinal   int
	Codec     string
	Language  string
	Title     string
	Extradata string
	TimeBase  TimeBase
	// DurationMS is the track duration in milliseconds, 0 when unknown.
	DurationMS int64
	// Frames is the number of subtitle events, 0 when unknown.
	Frames  int64
	Forced  bool
	Default bool
}

// Density returns subtitle events per millisecond, or 0 when the duration is
// unknown.
func (t SubtitleTrack) Density() float64 {
	if t.DurationMS <= 0 {
		return 0
	}
	return float64(t.Frames) / float64(t.DurationMS)
}

// SubtitleTracks returns the subtitle streams in container order. Duration
// and event counts come from the Matroska statistics tags, falling back to
// the stream's own duration and frame count.
func (r Result) SubtitleTracks() []SubtitleTrack {
	var tracks []SubtitleTrack
	ordinal := 0
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		track := SubtitleTrack{
			StreamIndex: stream.Index,
			Ordinal:     ordinal,
			Codec:       strings.ToLower(strings.TrimSpace(stream.CodecName)),
			Language:    strings.ToLower(stream.Tag("language")),
			Title:       stream.Tag("title"),
			Extradata:   DecodeExtradata(stream.Extradata),
			Forced:      stream.Disposition["forced"] == 1,
			Default:     stream.Disposition["default"] == 1,
		}
		ordinal++

		if tb, err := ParseTimeBase(stream.TimeBase); err == nil {
			track.TimeBase = tb
		} else {
			track.TimeBase = Millisecond
		}
		track.DurationMS = ParseTagDuration(stream.Tag("DURATION-eng", "DURATION"))
		if track.DurationMS == 0 {
			if seconds := parseFloat(stream.Duration); !math.IsNaN(seconds) && seconds > 0 {
				track.DurationMS = int64(math.Round(seconds * 1000))
			}
		}
		track.Frames = parseCount(stream.Tag("NUMBER_OF_FRAMES-eng", "NUMBER_OF_FRAMES"))
		if track.Frames == 0 {
			track.Frames = parseCount(stream.NBFrames)
		}
		tracks = append(tracks, track)
	}
	return tracks
}

var tagDurationPattern = regexp.MustCompile(`^([0-9]{2}):([0-9]{2}):([0-9]{2})\.([0-9]+)$`)

// ParseTagDuration converts an HH:MM:SS.fraction statistics tag to
// milliseconds, rounding the fraction. It returns 0 when value does not match.
func ParseTagDuration(value string) int64 {
	parts := tagDurationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if parts == nil {
		return 0
	}
	h, _ := strconv.ParseInt(parts[1], 10, 64)
	m, _ := strconv.ParseInt(parts[2], 10, 64)
	s, _ := strconv.ParseInt(parts[3], 10, 64)
	frac, _ := strconv.ParseFloat("0."+parts[4], 64)
	ms := int64(frac*1000 + 0.5)
	return ms + 1000*(s+60*(m+60*h))
}

// DecodeExtradata turns ffprobe's hex dump of codec private data back into
// text. Each dump line is an 8-digit offset, a colon, up to eight groups of
// hex digits, and an ASCII column that is ignored.
func DecodeExtradata(dump string) string {
	var digits strings.Builder
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) <= 9 {
			continue
		}
		field := line[9:min(len(line), 51)]
		digits.WriteString(strings.ReplaceAll(field, " ", ""))
	}
	raw := digits.String()
	if len(raw)%2 == 1 {
		raw = raw[:len(raw)-1]
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// TimeBase is a rational tick duration in seconds.
type TimeBase struct {
	Num int64
	Den int64
}

// Millisecond is the Matroska default time base.
var Millisecond = TimeBase{Num: 1, Den: 1000}

// ParseTimeBase parses "num/den".
func ParseTimeBase(value string) (TimeBase, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return TimeBase{}, fmt.Errorf("invalid time base %q", value)
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return TimeBase{}, fmt.Errorf("invalid time base %q: %w", value, err)
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil {
		return TimeBase{}, fmt.Errorf("invalid time base %q: %w", value, err)
	}
	if n <= 0 || d <= 0 {
		return TimeBase{}, fmt.Errorf("invalid time base %q", value)
	}
	return TimeBase{Num: n, Den: d}, nil
}

// Millis converts a tick count to milliseconds, truncating.
func (tb TimeBase) Millis(ticks int64) int64 {
	if tb.Num <= 0 || tb.Den <= 0 {
		return ticks
	}
	if tb == Millisecond {
		return ticks
	}
	return int64(math.Floor(float64(ticks) * 1000 * float64(tb.Num) / float64(tb.Den)))
}

func (tb TimeBase) String() string {
	return fmt.Sprintf("%d/%d", tb.Num, tb.Den)
}

func parseCount(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
