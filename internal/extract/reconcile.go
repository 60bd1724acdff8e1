package extract

import (
	"sort"
	"strings"
)

// Cue is one timed subtitle event in milliseconds.
type Cue struct {
	Start int64
	End   int64
	Text  string
	Lines []string
}

// Reconcile orders cues by start and closes open-ended ones. A cue whose end
// does not follow its start ends where the next cue starts; the last such
// cue ends at durationMS. Cues with no lines are dropped only afterwards so
// a blank event still terminates the cue before it.
func Reconcile(cues []Cue, durationMS int64) []Cue {
	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i := range sorted {
		if sorted[i].End > sorted[i].Start {
			continue
		}
		if i+1 < len(sorted) {
			sorted[i].End = sorted[i+1].Start
		} else {
			sorted[i].End = durationMS
		}
		if sorted[i].End < sorted[i].Start {
			sorted[i].End = sorted[i].Start
		}
	}

	out := sorted[:0]
	for _, cue := range sorted {
		if len(cue.Lines) == 0 {
			continue
		}
		out = append(out, cue)
	}
	return out
}

func newCue(start, end int64, text string, lines []string) Cue {
	return Cue{Start: start, End: end, Text: strings.TrimSpace(text), Lines: lines}
}
