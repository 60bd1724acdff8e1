package extract_test

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"subocr/internal/config"
	"subocr/internal/extract"
	"subocr/internal/history"
	"subocr/internal/logging"
	"subocr/internal/media/ffprobe"
	"subocr/internal/services"
	"subocr/internal/subpic"
	"subocr/internal/testsupport"
	"subocr/internal/workdir"
)

const idxPalette = "size: 720x480\npalette: 000000, ffffff, 808080, 404040, 000000, 000000, 000000, 000000, " +
	"000000, 000000, 000000, 000000, 000000, 000000, 000000, 000000\n"

// imagePacket builds a 4x2 VobSub packet whose pixels all use color 1, shown
// at pts with no stop command.
func imagePacket() []byte {
	buf := []byte{0, 0, 0, 6, 0x11, 0x11}
	buf = append(buf,
		0x00, 0x00, 0x00, 0x06, // delay 0, last sequence
		0x01,             // start display
		0x03, 0x32, 0x10, // identity color remap
		0x04, 0xFF, 0xF0, // index 0 transparent, others opaque
		0x05, 0x00, 0x00, 0x03, 0x00, 0x00, 0x01, // 4x2 extent
		0x06, 0x00, 0x04, 0x00, 0x05, // field offsets
		0xFF,
	)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(buf)))
	return buf
}

// stopPacket builds a VobSub packet that only stops display.
func stopPacket() []byte {
	return []byte{0, 10, 0, 4, 0x00, 0x00, 0x00, 0x04, 0x02, 0xFF}
}

// malformedPacket carries an unknown control command.
func malformedPacket() []byte {
	return []byte{0, 9, 0, 4, 0x00, 0x00, 0x00, 0x04, 0x42}
}

type fakeProber struct {
	tracks []ffprobe.SubtitleTrack
	err    error
}

func (f fakeProber) SubtitleTracks(context.Context, string) ([]ffprobe.SubtitleTrack, error) {
	return f.tracks, f.err
}

type fakeDemuxer struct {
	mu       sync.Mutex
	packets  map[int]map[string][]byte
	ordinals []int
	// siblings records the track directories present in the run directory
	// when each ordinal is demuxed.
	siblings map[int][]string
}

func (f *fakeDemuxer) Extract(_ context.Context, _ string, ordinal int, dir string) error {
	runDir := filepath.Dir(filepath.Dir(dir))
	entries, _ := os.ReadDir(runDir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	f.mu.Lock()
	f.ordinals = append(f.ordinals, ordinal)
	if f.siblings == nil {
		f.siblings = make(map[int][]string)
	}
	f.siblings[ordinal] = names
	f.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, data := range f.packets[ordinal] {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeEngine struct {
	mu        sync.Mutex
	languages []string
	texts     []string
	calls     []string
}

func (f *fakeEngine) Languages(context.Context) ([]string, error) {
	return f.languages, nil
}

func (f *fakeEngine) Recognize(_ context.Context, path, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("bitmap missing: %w", err)
	}
	i := len(f.calls)
	f.calls = append(f.calls, language)
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "", nil
}

func vobsubTrack(index, ordinal int, lang string, frames int64) ffprobe.SubtitleTrack {
	return ffprobe.SubtitleTrack{
		StreamIndex: index,
		Ordinal:     ordinal,
		Codec:       "dvd_subtitle",
		Language:    lang,
		Extradata:   idxPalette,
		TimeBase:    ffprobe.Millisecond,
		DurationMS:  60_000,
		Frames:      frames,
	}
}

func newInput(t *testing.T) string {
	t.Helper()
	input := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteFile(t, input, []byte("not really matroska"))
	return input
}

func newService(t *testing.T, cfg *config.Config, prober extract.Prober, demuxer extract.Demuxer, engine *fakeEngine, store *history.Store) *extract.Service {
	t.Helper()
	return extract.NewService(cfg, logging.NewNop(),
		extract.WithoutDependencyCheck(),
		extract.WithProber(prober),
		extract.WithDemuxer(demuxer),
		extract.WithEngine(engine),
		extract.WithHistory(store),
	)
}

func TestExtractEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	input := newInput(t)

	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{
		vobsubTrack(2, 0, "eng", 1), // too sparse
		vobsubTrack(3, 1, "eng", 10),
		{StreamIndex: 4, Ordinal: 2, Codec: "subrip", Language: "fre", DurationMS: 60_000, Frames: 50},
	}}
	demuxer := &fakeDemuxer{packets: map[int]map[string][]byte{
		1: {
			"00004000.raw": imagePacket(),
			"00001000.raw": imagePacket(),
			"00006000.raw": stopPacket(),
		},
	}}
	engine := &fakeEngine{
		languages: []string{"eng", "fra", "osd"},
		texts:     []string{"|t works\n\n", "line one\nline two\n\f"},
	}

	outputs, err := newService(t, cfg, prober, demuxer, engine, store).Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %+v", outputs)
	}
	out := outputs[0]
	wantPath := filepath.Join(filepath.Dir(input), "movie.sub.eng.vtt")
	if out.Path != wantPath || out.Language != "eng" || out.Cues != 2 || out.StreamIndex != 3 {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(demuxer.ordinals) != 1 || demuxer.ordinals[0] != 1 {
		t.Fatalf("expected only ordinal 1 demuxed, got %v", demuxer.ordinals)
	}
	if strings.Join(engine.calls, ",") != "eng,eng" {
		t.Fatalf("unexpected OCR calls %v", engine.calls)
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "WEBVTT { \"language\": \"eng\", \"count\": 2 }\r\n\r\n" +
		"00:00:01.000 --> 00:00:04.000\r\nIt works\r\n\r\n" +
		"00:00:04.000 --> 00:00:06.000\r\nline one\r\nline two\r\n\r\n"
	if string(data) != want {
		t.Fatalf("output =\n%q\nwant\n%q", data, want)
	}

	dirs, err := workdir.ListDirectories(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("expected work dir cleaned up, found %+v", dirs)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v %+v", err, runs)
	}
	if runs[0].Status != history.StatusSucceeded || runs[0].InputPath != input || runs[0].Languages != "eng,fra,osd" {
		t.Fatalf("unexpected run %+v", runs[0])
	}
	tracks, err := store.Tracks(context.Background(), runs[0].ID)
	if err != nil || len(tracks) != 1 {
		t.Fatalf("Tracks: %v %+v", err, tracks)
	}
	if tr := tracks[0]; tr.PacketCount != 3 || tr.DroppedCount != 1 || tr.CueCount != 2 || tr.OutputPath != wantPath {
		t.Fatalf("unexpected track record %+v", tr)
	}
}

func TestExtractMalformedPacketFailsOnlyItsTrack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	input := newInput(t)

	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{
		vobsubTrack(2, 0, "eng", 10),
		vobsubTrack(3, 1, "fre", 10),
	}}
	demuxer := &fakeDemuxer{packets: map[int]map[string][]byte{
		0: {"00001000.raw": malformedPacket()},
		1: {"00001000.raw": imagePacket()},
	}}
	engine := &fakeEngine{languages: []string{"eng", "fra"}, texts: []string{"Bonjour"}}

	outputs, err := newService(t, cfg, prober, demuxer, engine, store).Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Language != "fre" {
		t.Fatalf("expected only the French file, got %+v", outputs)
	}
	if !strings.HasSuffix(outputs[0].Path, "movie.sub.fre.vtt") {
		t.Fatalf("unexpected path %s", outputs[0].Path)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(input), "movie.sub.eng.vtt")); !os.IsNotExist(err) {
		t.Fatal("failed track must not leave an output file")
	}

	runs, _ := store.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != history.StatusPartial {
		t.Fatalf("expected partial run, got %+v", runs)
	}
	tracks, _ := store.Tracks(context.Background(), runs[0].ID)
	var failed *history.Track
	for i := range tracks {
		if tracks[i].StreamIndex == 2 {
			failed = &tracks[i]
		}
	}
	if failed == nil || failed.Status != history.StatusFailed || !strings.Contains(failed.Error, "malformed") {
		t.Fatalf("expected failed track record, got %+v", tracks)
	}
}

func TestExtractAllTracksFailing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	input := newInput(t)

	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{vobsubTrack(2, 0, "eng", 10)}}
	demuxer := &fakeDemuxer{packets: map[int]map[string][]byte{0: {"00001000.raw": malformedPacket()}}}
	engine := &fakeEngine{languages: []string{"eng"}}

	_, err := newService(t, cfg, prober, demuxer, engine, nil).Extract(context.Background(), input)
	if !errors.Is(err, subpic.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestExtractWithOutputDirAndLanguageOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory(), testsupport.WithLanguages("eng"))
	input := newInput(t)
	outDir := filepath.Join(t.TempDir(), "subs")

	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{
		vobsubTrack(2, 0, "eng", 10),
		vobsubTrack(3, 1, "ger", 10),
	}}
	demuxer := &fakeDemuxer{packets: map[int]map[string][]byte{
		0: {"00001000.raw": imagePacket()},
		1: {"00001000.raw": imagePacket()},
	}}
	engine := &fakeEngine{languages: []string{"eng", "deu"}, texts: []string{"Hallo"}}

	svc := extract.NewService(cfg, logging.NewNop(),
		extract.WithoutDependencyCheck(),
		extract.WithProber(prober),
		extract.WithDemuxer(demuxer),
		extract.WithEngine(engine),
		extract.WithOutputDir(outDir),
		extract.WithLanguages([]string{"deu"}),
	)
	outputs, err := svc.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Path != filepath.Join(outDir, "movie.sub.ger.vtt") {
		t.Fatalf("unexpected outputs %+v", outputs)
	}
	if strings.Join(engine.calls, ",") != "deu" {
		t.Fatalf("expected OCR with engine code deu, got %v", engine.calls)
	}
}

func TestExtractNoSubtitleTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	input := newInput(t)
	engine := &fakeEngine{languages: []string{"eng"}}

	_, err := newService(t, cfg, fakeProber{}, &fakeDemuxer{}, engine, nil).Extract(context.Background(), input)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExtractNoEligibleTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	input := newInput(t)
	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{vobsubTrack(2, 0, "jpn", 10)}}
	engine := &fakeEngine{languages: []string{"eng"}}

	outputs, err := newService(t, cfg, prober, &fakeDemuxer{}, engine, store).Extract(context.Background(), input)
	if err != nil || len(outputs) != 0 {
		t.Fatalf("expected no outputs and no error, got %+v %v", outputs, err)
	}
	runs, _ := store.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != history.StatusSkipped {
		t.Fatalf("expected skipped run, got %+v", runs)
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	engine := &fakeEngine{languages: []string{"eng"}}
	svc := newService(t, cfg, fakeProber{}, &fakeDemuxer{}, engine, nil)

	if _, err := svc.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mkv")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing input, got %v", err)
	}
	if _, err := svc.Extract(context.Background(), t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for directory, got %v", err)
	}
}

func TestExtractRefusesLockedInput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	input := newInput(t)

	lockPath := extract.LockPath(cfg.Paths.WorkDir, input)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	held := flock.New(lockPath)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	engine := &fakeEngine{languages: []string{"eng"}}
	_, err := newService(t, cfg, fakeProber{}, &fakeDemuxer{}, engine, nil).Extract(context.Background(), input)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error while locked, got %v", err)
	}
}

func TestExtractRemovesTrackDirectoriesAsTracksFinish(t *testing.T) {
	prober := fakeProber{tracks: []ffprobe.SubtitleTrack{
		vobsubTrack(2, 0, "eng", 10),
		vobsubTrack(3, 1, "fre", 10),
	}}
	packets := map[int]map[string][]byte{
		0: {"00001000.raw": imagePacket()},
		1: {"00001000.raw": imagePacket()},
	}

	t.Run("removed", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithoutHistory(), testsupport.WithLanguages("eng", "fra"))
		demuxer := &fakeDemuxer{packets: packets}
		engine := &fakeEngine{languages: []string{"eng", "fra"}, texts: []string{"Hello", "Bonjour"}}

		if _, err := newService(t, cfg, prober, demuxer, engine, nil).Extract(context.Background(), newInput(t)); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if got := demuxer.siblings[1]; len(got) != 0 {
			t.Fatalf("expected earlier track directories removed before the next track, found %v", got)
		}
	})

	t.Run("kept", func(t *testing.T) {
		cfg := testsupport.NewConfig(t, testsupport.WithoutHistory(), testsupport.WithLanguages("eng", "fra"))
		cfg.Extract.KeepWorkDir = true
		demuxer := &fakeDemuxer{packets: packets}
		engine := &fakeEngine{languages: []string{"eng", "fra"}, texts: []string{"Hello", "Bonjour"}}

		if _, err := newService(t, cfg, prober, demuxer, engine, nil).Extract(context.Background(), newInput(t)); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if got := strings.Join(demuxer.siblings[1], ","); got != "track-2" {
			t.Fatalf("expected track-2 kept while track 3 runs, found %q", got)
		}
	})
}
