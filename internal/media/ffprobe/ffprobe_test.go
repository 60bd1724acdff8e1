package ffprobe

import (
	"math"
	"testing"
)

func TestStreamTagMatchesKeysCaseInsensitively(t *testing.T) {
	stream := Stream{Tags: map[string]string{
		"LANGUAGE":     " eng ",
		"DURATION-eng": "",
		"DURATION":     "00:01:00.000000000",
		"handler_name": "SubtitleHandler",
	}}
	if got := stream.Tag("language"); got != "eng" {
		t.Fatalf("Tag(language) = %q", got)
	}
	if got := stream.Tag("DURATION-eng", "DURATION"); got != "00:01:00.000000000" {
		t.Fatalf("expected fallback to second key, got %q", got)
	}
	if got := stream.Tag("title"); got != "" {
		t.Fatalf("expected empty tag, got %q", got)
	}
}

func TestDurationSecondsHandlesMissingAndInvalid(t *testing.T) {
	if got := (Result{Format: Format{Duration: "123.45"}}).DurationSeconds(); got != 123.45 {
		t.Fatalf("unexpected duration: %v", got)
	}
	if got := (Result{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for missing duration, got %v", got)
	}
	if got := (Result{Format: Format{Duration: "bad"}}).DurationSeconds(); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}
