package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// RunDir is the scratch directory of one extraction run.
type RunDir struct {
	Path string
}

// Create makes the scratch directory for runID under workDir.
func Create(workDir, runID string) (RunDir, error) {
	if workDir == "" || runID == "" {
		return RunDir{}, fmt.Errorf("work dir and run id are required")
	}
	path := filepath.Join(workDir, runID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return RunDir{}, fmt.Errorf("create run dir: %w", err)
	}
	return RunDir{Path: path}, nil
}

// TrackDir returns the directory holding one track's files.
func (d RunDir) TrackDir(streamIndex int) string {
	return filepath.Join(d.Path, "track-"+strconv.Itoa(streamIndex))
}

// PacketDir returns where demuxed packets of a track are written.
func (d RunDir) PacketDir(streamIndex int) string {
	return filepath.Join(d.TrackDir(streamIndex), "raw")
}

// BitmapDir returns where composited bitmaps of a track are written.
func (d RunDir) BitmapDir(streamIndex int) string {
	return filepath.Join(d.TrackDir(streamIndex), "bmp")
}

// Remove deletes the run directory and everything under it.
func (d RunDir) Remove() error {
	if d.Path == "" {
		return nil
	}
	return os.RemoveAll(d.Path)
}
