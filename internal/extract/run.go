package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"subocr/internal/history"
	"subocr/internal/logging"
	"subocr/internal/services"
	"subocr/internal/workdir"
)

// lockDirName holds per-input lock files under work_dir. The leading dot
// keeps it out of work directory cleanup.
const lockDirName = ".locks"

// ExtractionRun is the state owned by one Extract call.
type ExtractionRun struct {
	ID        string
	Input     string
	Dir       workdir.RunDir
	StartedAt time.Time

	lock *flock.Flock
}

// LockPath returns the advisory lock file guarding input.
func LockPath(workDir, input string) string {
	sum := sha256.Sum256([]byte(input))
	return filepath.Join(workDir, lockDirName, hex.EncodeToString(sum[:8])+".lock")
}

func (s *Service) beginRun(input string) (*ExtractionRun, error) {
	workDir := s.config.Paths.WorkDir
	lockPath := LockPath(workDir, input)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "create lock dir", filepath.Dir(lockPath), err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extract", "lock input", input, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "extract", "lock input", "another run is already processing "+input, nil)
	}

	id := uuid.NewString()
	dir, err := workdir.Create(workDir, id)
	if err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrConfiguration, "extract", "create work dir", workDir, err)
	}
	return &ExtractionRun{
		ID:        id,
		Input:     input,
		Dir:       dir,
		StartedAt: s.now(),
		lock:      lock,
	}, nil
}

func (s *Service) endRun(run *ExtractionRun) {
	if run == nil {
		return
	}
	if s.config.Extract.KeepWorkDir {
		s.logger.Info("keeping work directory", logging.String("path", run.Dir.Path))
	} else if err := run.Dir.Remove(); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove work directory", "workdir_cleanup_failed",
			logging.String("path", run.Dir.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove it manually or run subocr clean"),
		)
	}
	if err := run.lock.Unlock(); err != nil {
		s.logger.Debug("failed to release input lock", logging.Error(err))
	}
}

// Extract selects the bitmap subtitle tracks of inputPath, recognizes them,
// and writes one WebVTT file per selected language. It fails only when the
// run cannot start or every selected track fails.
func (s *Service) Extract(ctx context.Context, inputPath string) ([]Output, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	input, err := validateInput(inputPath)
	if err != nil {
		return nil, err
	}
	if err := s.config.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "ensure directories", "", err)
	}
	s.cleanStale(ctx)

	run, err := s.beginRun(input)
	if err != nil {
		return nil, err
	}
	defer s.endRun(run)

	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("extraction started", logging.String("input", input))

	s.recordStart(ctx, run)
	outputs, status, runErr := s.execute(ctx, run)
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	s.recordFinish(ctx, run, status, message)

	logger.Info("extraction finished",
		logging.String("status", string(status)),
		logging.Int("outputs", len(outputs)),
		logging.Duration("elapsed", s.now().Sub(run.StartedAt)),
	)
	return outputs, runErr
}

func (s *Service) execute(ctx context.Context, run *ExtractionRun) ([]Output, history.Status, error) {
	logger := logging.WithContext(ctx, s.logger)

	installed, err := s.engine.Languages(services.WithStage(ctx, "languages"))
	if err != nil {
		return nil, services.FailureStatus(err), err
	}
	languages, missing := ResolveLanguages(installed, s.languages)
	if len(missing) > 0 {
		logging.WarnWithContext(logger, "configured languages not installed", "ocr_language_missing",
			logging.Strings("missing", missing),
			logging.String(logging.FieldErrorHint, "install the tesseract traineddata for these languages"),
			logging.String(logging.FieldImpact, "tracks in these languages are skipped"),
		)
	}
	if len(languages) == 0 {
		err := services.Wrap(services.ErrConfiguration, "extract", "languages", "no usable OCR languages", nil)
		return nil, services.FailureStatus(err), err
	}
	s.recordLanguages(ctx, run, languages)

	tracks, err := s.prober.SubtitleTracks(services.WithStage(ctx, "probe"), run.Input)
	if err != nil {
		return nil, services.FailureStatus(err), err
	}
	if len(tracks) == 0 {
		err := services.Wrap(services.ErrNotFound, "probe", "tracks", "input has no subtitle tracks", nil)
		return nil, services.FailureStatus(err), err
	}

	selections := SelectTracks(tracks, languages, s.minDensity())
	logger.Info("tracks selected",
		logging.Int("subtitle_tracks", len(tracks)),
		logging.Int("selected", len(selections)),
		logging.Strings("languages", languages),
	)
	if len(selections) == 0 {
		return nil, history.StatusSkipped, nil
	}

	var (
		outputs []Output
		errs    []error
	)
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			return outputs, history.StatusFailed, err
		}
		out, err := s.processTrack(ctx, run, sel)
		if err != nil {
			if ctx.Err() != nil {
				return outputs, history.StatusFailed, ctx.Err()
			}
			logging.ErrorWithContext(logging.WithContext(services.WithTrack(ctx, sel.Track.StreamIndex), s.logger),
				"track extraction failed", "track_failed",
				logging.String(logging.FieldLanguage, sel.Language),
				logging.Error(err),
				logging.String(logging.FieldImpact, "no subtitle file for this language"),
			)
			errs = append(errs, fmt.Errorf("track %d (%s): %w", sel.Track.StreamIndex, sel.Language, err))
			continue
		}
		outputs = append(outputs, out)
	}

	switch {
	case len(errs) == 0:
		return outputs, history.StatusSucceeded, nil
	case len(outputs) > 0:
		// Partial success still returns the written files without an error.
		return outputs, history.StatusPartial, nil
	default:
		err := errors.Join(errs...)
		return nil, services.FailureStatus(err), err
	}
}

func (s *Service) minDensity() float64 {
	if s.config.Extract.MinFrameDensity > 0 {
		return s.config.Extract.MinFrameDensity
	}
	return 0
}

func (s *Service) cleanStale(ctx context.Context) {
	hours := s.config.Extract.StaleWorkHours
	if hours <= 0 {
		return
	}
	result := workdir.CleanStale(ctx, s.config.Paths.WorkDir, time.Duration(hours)*time.Hour, s.logger)
	if len(result.Removed) > 0 {
		s.logger.Info("stale work directories removed", logging.Int("count", len(result.Removed)))
	}
}

func validateInput(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", services.Wrap(services.ErrValidation, "extract", "input", "input path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "input", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "extract", "input", abs+" does not exist", nil)
		}
		return "", services.Wrap(services.ErrValidation, "extract", "input", abs, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "extract", "input", abs+" is a directory", nil)
	}
	return abs, nil
}

func (s *Service) recordStart(ctx context.Context, run *ExtractionRun) {
	if s.history == nil {
		return
	}
	err := s.history.StartRun(ctx, history.Run{
		ID:        run.ID,
		InputPath: run.Input,
		Status:    history.StatusRunning,
		StartedAt: run.StartedAt,
	})
	if err != nil {
		s.historyWarning(ctx, "start run", err)
	}
}

func (s *Service) recordLanguages(ctx context.Context, run *ExtractionRun, languages []string) {
	if s.history == nil {
		return
	}
	if err := s.history.SetLanguages(ctx, run.ID, strings.Join(languages, ",")); err != nil {
		s.historyWarning(ctx, "record languages", err)
	}
}

func (s *Service) recordFinish(ctx context.Context, run *ExtractionRun, status history.Status, message string) {
	if s.history == nil {
		return
	}
	// The run outcome is recorded even when ctx was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if err := s.history.FinishRun(finishCtx, run.ID, status, message); err != nil {
		s.historyWarning(ctx, "finish run", err)
	}
}

func (s *Service) recordTrack(ctx context.Context, track history.Track) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordTrack(context.WithoutCancel(ctx), track); err != nil {
		s.historyWarning(ctx, "record track", err)
	}
}

func (s *Service) historyWarning(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "history update failed", "history_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check history.path permissions"),
		logging.String(logging.FieldImpact, "run is not recorded in subocr history"),
	)
}
