package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe binary paired with ffmpegCommand.
//
// When ffprobe is left at its bare default name and ffmpeg resolves to a
// concrete file, an ffprobe sitting next to that ffmpeg wins over PATH so both
// tools come from the same build. An explicit ffprobe path is returned as-is.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand == "" {
		ffprobeCommand = "ffprobe"
	}
	if strings.ContainsRune(ffprobeCommand, filepath.Separator) {
		return ffprobeCommand
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary == "" {
		return ffprobeCommand
	}
	resolved, err := exec.LookPath(ffmpegBinary)
	if err != nil {
		return ffprobeCommand
	}
	candidate, ok := siblingCandidate(resolved, ffprobeCommand)
	if !ok {
		return ffprobeCommand
	}
	if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
		return candidate
	}
	return ffprobeCommand
}

func siblingCandidate(binaryPath, name string) (string, bool) {
	if binaryPath == "" || name == "" {
		return "", false
	}
	dir := filepath.Dir(binaryPath)
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
