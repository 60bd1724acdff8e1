package main

import (
	"encoding/json"
	"strings"
	"testing"

	"subocr/internal/media/ffprobe"
)

const probePayload = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "mpeg2video"},
    {"index": 1, "codec_type": "subtitle", "codec_name": "dvd_subtitle", "time_base": "1/1000",
     "tags": {"language": "eng", "DURATION-eng": "00:10:00.000000000", "NUMBER_OF_FRAMES-eng": "300"},
     "disposition": {"default": 1, "forced": 0}},
    {"index": 2, "codec_type": "subtitle", "codec_name": "hdmv_pgs_subtitle", "time_base": "1/1000",
     "tags": {"language": "fre", "DURATION-eng": "00:10:00.000000000", "NUMBER_OF_FRAMES-eng": "2"},
     "disposition": {"default": 0, "forced": 1}},
    {"index": 3, "codec_type": "subtitle", "codec_name": "subrip",
     "tags": {"language": "eng", "DURATION-eng": "00:10:00.000000000", "NUMBER_OF_FRAMES-eng": "300"}}
  ],
  "format": {"filename": "movie.mkv", "nb_streams": 4, "duration": "600.0"}
}`

func TestTracksCommandJSON(t *testing.T) {
	env := setupCLIEnv(t)
	env.writeFFprobe(t, probePayload)

	out, _, err := runCLI(t, env, "tracks", "movie.mkv", "--format", "json")
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	var views []trackView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 subtitle tracks, got %d", len(views))
	}
	if v := views[0]; v.Stream != 1 || !v.Eligible || v.OCRLanguage != "eng" || !v.Default {
		t.Fatalf("unexpected first track %+v", v)
	}
	if v := views[1]; v.Eligible || v.OCRLanguage != "" || !v.Forced {
		t.Fatalf("sparse pgs track should be ineligible: %+v", v)
	}
	if v := views[2]; v.Eligible || v.Codec != "subrip" {
		t.Fatalf("text track should be ineligible: %+v", v)
	}
}

func TestTracksCommandTable(t *testing.T) {
	env := setupCLIEnv(t)
	env.writeFFprobe(t, probePayload)

	out, _, err := runCLI(t, env, "tracks", "movie.mkv")
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	requireContains(t, out, "English (eng)")
	requireContains(t, out, "yes (eng)")
	requireContains(t, out, "ineligible")
	requireContains(t, out, "10m0s")
}

func TestTracksCommandRejectsFormat(t *testing.T) {
	env := setupCLIEnv(t)
	if _, _, err := runCLI(t, env, "tracks", "movie.mkv", "--format", "xml"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestBuildTrackViewsWithoutLanguages(t *testing.T) {
	tracks := []ffprobe.SubtitleTrack{{StreamIndex: 4, Codec: "dvd_subtitle", Language: "eng", DurationMS: 1000, Frames: 10}}
	views := buildTrackViews(tracks, nil, 0)
	if len(views) != 1 || !views[0].Eligible || views[0].OCRLanguage != "" {
		t.Fatalf("unexpected views %+v", views)
	}
}
