package demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"subocr/internal/logging"
	"subocr/internal/media/ffprobe"
	"subocr/internal/services"
)

// PacketExt is the extension of demuxed packet files.
const PacketExt = ".raw"

type commandRunner func(ctx context.Context, name string, args ...string) error

// PacketFile is one demuxed display packet on disk.
type PacketFile struct {
	Path string
	// Ticks is the presentation timestamp encoded in the file name, in the
	// track's time base.
	Ticks int64
	// PTS is the presentation timestamp in milliseconds.
	PTS int64
}

// Demuxer splits a subtitle track into per-packet files with ffmpeg.
type Demuxer struct {
	binary  string
	timeout time.Duration
	run     commandRunner
	logger  *slog.Logger
}

// Option customizes a Demuxer.
type Option func(*Demuxer)

// WithCommandRunner overrides process execution (used in tests).
func WithCommandRunner(runner commandRunner) Option {
	return func(d *Demuxer) {
		if runner != nil {
			d.run = runner
		}
	}
}

// WithTimeout bounds a single ffmpeg invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Demuxer) {
		d.timeout = timeout
	}
}

// WithLogger sets the demuxer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Demuxer) {
		d.logger = logging.NewComponentLogger(logger, "demux")
	}
}

// New constructs a demuxer invoking the given ffmpeg binary.
func New(binary string, opts ...Option) *Demuxer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	d := &Demuxer{
		binary: binary,
		run:    defaultCommandRunner,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Args returns the ffmpeg arguments that copy subtitle stream ordinal of
// input into dir, one file per packet named by its presentation timestamp.
func Args(input string, ordinal int, dir string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-map", fmt.Sprintf("0:s:%d", ordinal),
		"-vn",
		"-an",
		"-c:s", "copy",
		"-frame_pts", "1",
		filepath.Join(dir, "%08d"+PacketExt),
	}
}

// Extract demuxes subtitle stream ordinal of input into dir.
func (d *Demuxer) Extract(ctx context.Context, input string, ordinal int, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "demux", "create packet dir", dir, err)
	}
	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	if err := d.run(runCtx, d.binary, Args(input, ordinal, dir)...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "demux", "run ffmpeg", fmt.Sprintf("ffmpeg exceeded %s", d.timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "demux", "run ffmpeg", fmt.Sprintf("extract subtitle stream %d", ordinal), err)
	}
	d.logger.Debug("subtitle stream demuxed",
		logging.String("input", input),
		logging.Int("ordinal", ordinal),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// ListPackets returns the packet files in dir ordered by timestamp, converting
// the file-name timestamps from tb to milliseconds. Files not named
// <digits>.raw are ignored.
func ListPackets(dir string, tb ffprobe.TimeBase) ([]PacketFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read packet dir: %w", err)
	}
	packets := make([]PacketFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem, ok := strings.CutSuffix(name, PacketExt)
		if !ok || stem == "" {
			continue
		}
		ticks, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			continue
		}
		packets = append(packets, PacketFile{
			Path:  filepath.Join(dir, name),
			Ticks: ticks,
			PTS:   tb.Millis(ticks),
		})
	}
	sort.Slice(packets, func(i, j int) bool {
		return packets[i].Ticks < packets[j].Ticks
	})
	return packets, nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
