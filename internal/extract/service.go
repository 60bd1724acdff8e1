package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"subocr/internal/config"
	"subocr/internal/deps"
	"subocr/internal/history"
	"subocr/internal/logging"
	"subocr/internal/media/demux"
	"subocr/internal/media/ffprobe"
	"subocr/internal/ocr"
	"subocr/internal/services"
)

// Prober lists the subtitle tracks of a media file.
type Prober interface {
	SubtitleTracks(ctx context.Context, path string) ([]ffprobe.SubtitleTrack, error)
}

// Demuxer writes the packets of one subtitle track into dir, one file per
// packet named by its timestamp.
type Demuxer interface {
	Extract(ctx context.Context, input string, ordinal int, dir string) error
}

type ffprobeProber struct {
	binary string
}

func (p ffprobeProber) SubtitleTracks(ctx context.Context, path string) ([]ffprobe.SubtitleTrack, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "inspect input", err)
	}
	return result.SubtitleTracks(), nil
}

// Output describes one written subtitle file.
type Output struct {
	Language    string
	Path        string
	Cues        int
	StreamIndex int
	Codec       string
}

// Service extracts bitmap subtitles into WebVTT files.
type Service struct {
	config    *config.Config
	logger    *slog.Logger
	prober    Prober
	demuxer   Demuxer
	engine    ocr.Engine
	history   *history.Store
	outputDir string
	languages []string
	skipCheck bool
	now       func() time.Time

	readyOnce sync.Once
	readyErr  error
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithProber overrides track discovery (used in tests).
func WithProber(p Prober) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithDemuxer overrides packet extraction (used in tests).
func WithDemuxer(d Demuxer) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.demuxer = d
		}
	}
}

// WithEngine injects the OCR engine instead of building one from config.
func WithEngine(e ocr.Engine) ServiceOption {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithHistory records runs and tracks in the given ledger.
func WithHistory(store *history.Store) ServiceOption {
	return func(s *Service) {
		s.history = store
	}
}

// WithOutputDir writes subtitle files into dir instead of beside the input.
func WithOutputDir(dir string) ServiceOption {
	return func(s *Service) {
		s.outputDir = strings.TrimSpace(dir)
	}
}

// WithLanguages overrides the configured language priority list.
func WithLanguages(languages []string) ServiceOption {
	return func(s *Service) {
		if len(languages) > 0 {
			s.languages = append([]string(nil), languages...)
		}
	}
}

// WithoutDependencyCheck disables external binary detection (used in tests).
func WithoutDependencyCheck() ServiceOption {
	return func(s *Service) {
		s.skipCheck = true
	}
}

// NewService constructs an extraction service.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	serviceLogger := logging.NewComponentLogger(logger, "extract")
	svc := &Service{
		config: cfg,
		logger: serviceLogger,
		now:    time.Now,
	}
	if cfg != nil {
		svc.languages = append([]string(nil), cfg.OCR.Languages...)
		svc.prober = ffprobeProber{binary: deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary())}
		svc.demuxer = demux.New(cfg.FFmpegBinary(),
			demux.WithTimeout(time.Duration(cfg.FFmpeg.DemuxTimeoutSeconds)*time.Second),
			demux.WithLogger(logger),
		)
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) ensureReady() error {
	if s == nil || s.config == nil {
		return services.Wrap(services.ErrConfiguration, "extract", "init", "Extraction service unavailable", nil)
	}
	s.readyOnce.Do(func() {
		if !s.skipCheck {
			if _, err := exec.LookPath(s.config.FFmpegBinary()); err != nil {
				s.readyErr = services.Wrap(services.ErrConfiguration, "extract", "locate ffmpeg", fmt.Sprintf("Could not find %q on PATH", s.config.FFmpegBinary()), err)
				return
			}
			ffprobeBinary := deps.ResolveFFprobe(s.config.FFmpegBinary(), s.config.FFprobeBinary())
			if _, err := exec.LookPath(ffprobeBinary); err != nil {
				s.readyErr = services.Wrap(services.ErrConfiguration, "extract", "locate ffprobe", fmt.Sprintf("Could not find %q on PATH", ffprobeBinary), err)
				return
			}
		}
		if s.engine == nil {
			engine, err := ocr.NewEngine(s.config, s.logger)
			if err != nil {
				s.readyErr = err
				return
			}
			s.engine = engine
		}
	})
	return s.readyErr
}
