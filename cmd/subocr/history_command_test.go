package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"subocr/internal/history"
	"subocr/internal/services"
	"subocr/internal/testsupport"
)

func seedHistory(t *testing.T, env *cliEnv) {
	t.Helper()

	store := testsupport.MustOpenHistory(t, env.loadConfig(t))

	ctx := context.Background()
	old := time.Now().Add(-90 * 24 * time.Hour)
	runs := []history.Run{
		{ID: "aaaa1111-0000-0000-0000-000000000001", InputPath: "/media/old.mkv", StartedAt: old},
		{ID: "bbbb2222-0000-0000-0000-000000000002", InputPath: "/media/new.mkv", StartedAt: time.Now().Add(-time.Hour)},
	}
	for _, run := range runs {
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("start run: %v", err)
		}
	}
	if err := store.SetLanguages(ctx, runs[1].ID, "eng,fra"); err != nil {
		t.Fatalf("set languages: %v", err)
	}
	if err := store.RecordTrack(ctx, history.Track{
		RunID: runs[1].ID, StreamIndex: 3, Codec: "dvd_subtitle", Language: "eng",
		Status: history.StatusSucceeded, PacketCount: 12, DroppedCount: 2, CueCount: 10,
		OutputPath: "/media/new.eng.vtt",
	}); err != nil {
		t.Fatalf("record track: %v", err)
	}
	for _, run := range runs {
		if err := store.FinishRun(ctx, run.ID, history.StatusSucceeded, ""); err != nil {
			t.Fatalf("finish run: %v", err)
		}
	}
}

func TestHistoryListJSON(t *testing.T) {
	env := setupCLIEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, env, "history", "list", "--format", "json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var views []runView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(views))
	}
	if views[0].Input != "/media/new.mkv" || views[0].Languages != "eng,fra" {
		t.Fatalf("expected newest run first, got %+v", views[0])
	}

	out, _, err = runCLI(t, env, "history", "list", "--limit", "1")
	if err != nil {
		t.Fatalf("history list table: %v", err)
	}
	requireContains(t, out, "bbbb2222")
	requireContains(t, out, "Succeeded")
}

func TestHistoryShowByPrefix(t *testing.T) {
	env := setupCLIEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, env, "history", "show", "bbbb")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Input:     /media/new.mkv")
	requireContains(t, out, "/media/new.eng.vtt")

	out, _, err = runCLI(t, env, "history", "show", "bbbb", "--format", "yaml")
	if err != nil {
		t.Fatalf("history show yaml: %v", err)
	}
	requireContains(t, out, "cues: 10")

	if _, _, err := runCLI(t, env, "history", "show", "zzzz"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLIEnv(t)
	seedHistory(t, env)

	out, _, err := runCLI(t, env, "history", "prune", "--older-than", "720h")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Pruned 1 run(s)")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLIEnv(t, withHistoryDisabled())
	if _, _, err := runCLI(t, env, "history", "list"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel(history.StatusPartial); got != "Partial" {
		t.Fatalf("statusLabel = %q", got)
	}
	if runStatusKind(history.StatusRejected) != statusError {
		t.Fatal("rejected runs should render as errors")
	}
}
