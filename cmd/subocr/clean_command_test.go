package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subocr/internal/history"
	"subocr/internal/services"
	"subocr/internal/testsupport"
)

func TestCleanStaleDryRunThenRemove(t *testing.T) {
	env := setupCLIEnv(t)
	env.loadConfig(t)

	oldDir := filepath.Join(env.workDir, "old-run")
	newDir := filepath.Join(env.workDir, "new-run")
	mustMkdir(t, oldDir)
	mustMkdir(t, newDir)
	mustMkdir(t, filepath.Join(env.workDir, ".locks"))
	if err := os.WriteFile(filepath.Join(oldDir, "packet.bin"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, env, "clean", "--dry-run")
	if err != nil {
		t.Fatalf("clean dry run: %v", err)
	}
	requireContains(t, out, "old-run")
	requireContains(t, out, "2.0 kB")
	requireContains(t, out, "1 TO REMOVE")
	if _, err := os.Stat(oldDir); err != nil {
		t.Fatalf("dry run removed directory: %v", err)
	}

	out, _, err = runCLI(t, env, "clean")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed "+oldDir)
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err %v", oldDir, err)
	}
	for _, keep := range []string{newDir, filepath.Join(env.workDir, ".locks")} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanOrphanedKeepsRunningRuns(t *testing.T) {
	env := setupCLIEnv(t)
	store := testsupport.MustOpenHistory(t, env.loadConfig(t))
	const liveID = "1f2e3d4c-0000-0000-0000-000000000000"
	if err := store.StartRun(context.Background(), history.Run{ID: liveID, InputPath: "/media/a.mkv"}); err != nil {
		t.Fatalf("start run: %v", err)
	}

	live := filepath.Join(env.workDir, liveID)
	orphan := filepath.Join(env.workDir, "deadbeef-0000-0000-0000-000000000000")
	mustMkdir(t, live)
	mustMkdir(t, orphan)

	if _, _, err := runCLI(t, env, "clean", "--orphaned"); err != nil {
		t.Fatalf("clean orphaned: %v", err)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("running run directory removed: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan removed, stat err %v", err)
	}
}

func TestCleanOrphanedNeedsHistory(t *testing.T) {
	env := setupCLIEnv(t, withHistoryDisabled())
	if _, _, err := runCLI(t, env, "clean", "--orphaned"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
