package extract

import (
	"strings"

	"subocr/internal/language"
	"subocr/internal/media/ffprobe"
	"subocr/internal/subpic"
)

// Selection pairs a subtitle track with the OCR language used to read it.
type Selection struct {
	// Language is the OCR engine's code for the track language, e.g. "eng".
	Language string
	Track    ffprobe.SubtitleTrack
}

// Codec returns the bitmap format of the selected track.
func (s Selection) Codec() subpic.Codec {
	return subpic.ParseCodec(s.Track.Codec)
}

// OutputLanguage is the language code used in the output file name and
// header: the track's own tag when present, otherwise the OCR language.
func (s Selection) OutputLanguage() string {
	if tag := strings.TrimSpace(s.Track.Language); tag != "" {
		return tag
	}
	return s.Language
}

// SelectTracks picks, for each language in priority order, the first track
// whose language matches, whose codec has a decoder, and whose event density
// exceeds minDensity. A track is selected at most once.
func SelectTracks(tracks []ffprobe.SubtitleTrack, languages []string, minDensity float64) []Selection {
	var selected []Selection
	taken := make(map[int]struct{}, len(tracks))
	for _, lang := range languages {
		for _, track := range tracks {
			if _, ok := taken[track.StreamIndex]; ok {
				continue
			}
			if !Eligible(track, minDensity) {
				continue
			}
			if !language.Match(track.Language, lang) {
				continue
			}
			taken[track.StreamIndex] = struct{}{}
			selected = append(selected, Selection{Language: lang, Track: track})
			break
		}
	}
	return selected
}

// Eligible reports whether a track can be extracted regardless of language:
// its codec is supported and it carries more than minDensity events per
// millisecond over a known duration.
func Eligible(track ffprobe.SubtitleTrack, minDensity float64) bool {
	if !subpic.ParseCodec(track.Codec).Supported() {
		return false
	}
	if track.DurationMS <= 0 {
		return false
	}
	return track.Density() > minDensity
}

// ResolveLanguages orders the recognition languages for a run. With no
// preferred list every installed language is used in engine order; otherwise
// the preferred languages that are installed are used in preferred order,
// mapped onto the engine's own codes. The second result lists preferred
// languages the engine does not have.
func ResolveLanguages(installed, preferred []string) ([]string, []string) {
	if len(preferred) == 0 {
		return append([]string(nil), installed...), nil
	}
	var resolved, missing []string
	seen := make(map[string]struct{}, len(preferred))
	for _, want := range preferred {
		match := ""
		for _, have := range installed {
			if strings.EqualFold(want, have) {
				match = have
				break
			}
		}
		if match == "" {
			for _, have := range installed {
				if language.Match(want, have) {
					match = have
					break
				}
			}
		}
		if match == "" {
			missing = append(missing, want)
			continue
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		resolved = append(resolved, match)
	}
	return resolved, missing
}
