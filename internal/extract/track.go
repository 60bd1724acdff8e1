package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"subocr/internal/composite"
	"subocr/internal/fileutil"
	"subocr/internal/history"
	"subocr/internal/logging"
	"subocr/internal/media/demux"
	"subocr/internal/ocr"
	"subocr/internal/services"
	"subocr/internal/subpic"
	"subocr/internal/subpic/pgs"
	"subocr/internal/subpic/vobsub"
	"subocr/internal/textutil"
)

type trackStats struct {
	packets int
	dropped int
	cues    int
}

func (s *Service) processTrack(ctx context.Context, run *ExtractionRun, sel Selection) (Output, error) {
	track := sel.Track
	ctx = services.WithTrack(ctx, track.StreamIndex)
	ctx = services.WithLanguage(ctx, sel.Language)
	logger := logging.WithContext(ctx, s.logger)

	lang := textutil.SanitizeToken(sel.OutputLanguage())
	record := history.Track{
		RunID:       run.ID,
		StreamIndex: track.StreamIndex,
		Codec:       track.Codec,
		Language:    lang,
		Status:      history.StatusRunning,
	}
	s.recordTrack(ctx, record)

	out, stats, err := s.extractTrack(ctx, run, sel, lang)
	s.removeTrackDir(ctx, run, track.StreamIndex)
	record.PacketCount = stats.packets
	record.DroppedCount = stats.dropped
	record.CueCount = stats.cues
	if err != nil {
		record.Status = services.FailureStatus(err)
		record.Error = err.Error()
		s.recordTrack(ctx, record)
		return Output{}, err
	}
	record.Status = history.StatusSucceeded
	if stats.cues == 0 {
		record.Status = history.StatusSkipped
	}
	record.OutputPath = out.Path
	s.recordTrack(ctx, record)

	logger.Info("subtitle file written",
		logging.String("path", out.Path),
		logging.Int("packets", stats.packets),
		logging.Int("dropped", stats.dropped),
		logging.Int("cues", stats.cues),
	)
	return out, nil
}

func (s *Service) extractTrack(ctx context.Context, run *ExtractionRun, sel Selection, lang string) (Output, trackStats, error) {
	var stats trackStats
	track := sel.Track
	codec := sel.Codec()

	decoder, base, err := s.decoderFor(codec, track.Extradata)
	if err != nil {
		return Output{}, stats, err
	}

	packetDir := run.Dir.PacketDir(track.StreamIndex)
	if err := s.demuxer.Extract(services.WithStage(ctx, "demux"), run.Input, track.Ordinal, packetDir); err != nil {
		return Output{}, stats, err
	}
	packets, err := demux.ListPackets(packetDir, track.TimeBase)
	if err != nil {
		return Output{}, stats, services.Wrap(services.ErrExternalTool, "demux", "list packets", packetDir, err)
	}
	stats.packets = len(packets)

	bitmapDir := run.Dir.BitmapDir(track.StreamIndex)
	if err := os.MkdirAll(bitmapDir, 0o755); err != nil {
		return Output{}, stats, services.Wrap(services.ErrConfiguration, "composite", "create bitmap dir", bitmapDir, err)
	}

	postprocess := s.config.OCR.Postprocess && codec == subpic.CodecVobSub
	ocrCtx := services.WithStage(ctx, "ocr")
	cues := make([]Cue, 0, len(packets))
	for i, pf := range packets {
		if err := ctx.Err(); err != nil {
			return Output{}, stats, err
		}
		data, err := os.ReadFile(pf.Path)
		if err != nil {
			return Output{}, stats, services.Wrap(services.ErrExternalTool, "decode", "read packet", pf.Path, err)
		}
		img, err := decoder.Decode(subpic.Packet{Data: data, PTS: pf.PTS})
		if err != nil {
			return Output{}, stats, fmt.Errorf("decode packet %s: %w", filepath.Base(pf.Path), err)
		}

		bitmap, ok := composite.Composite(img, base)
		if !ok {
			stats.dropped++
			cues = append(cues, newCue(img.Start, img.End, "", nil))
			continue
		}
		bmpPath := filepath.Join(bitmapDir, fmt.Sprintf("%08d.bmp", i))
		if err := bitmap.WriteFile(bmpPath); err != nil {
			return Output{}, stats, services.Wrap(services.ErrExternalTool, "composite", "write bitmap", bmpPath, err)
		}

		text, err := s.engine.Recognize(ocrCtx, bmpPath, sel.Language)
		if err != nil {
			if ctx.Err() != nil {
				return Output{}, stats, ctx.Err()
			}
			logging.WarnWithContext(logging.WithContext(ocrCtx, s.logger), "ocr failed for packet", "ocr_failed",
				logging.String("packet", filepath.Base(pf.Path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "subtitle event skipped"),
			)
			text = ""
		}
		if postprocess {
			text = ocr.Postprocess(text)
		}
		cues = append(cues, newCue(img.Start, img.End, text, ocr.SplitLines(text)))
	}

	cues = Reconcile(cues, track.DurationMS)
	stats.cues = len(cues)

	outDir := s.outputDir
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return Output{}, stats, services.Wrap(services.ErrConfiguration, "write", "create output dir", outDir, err)
		}
	}
	path := OutputPath(run.Input, outDir, lang)
	err = fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return WriteWebVTT(w, lang, cues)
	})
	if err != nil {
		return Output{}, stats, services.Wrap(services.ErrExternalTool, "write", "webvtt", path, err)
	}
	return Output{
		Language:    lang,
		Path:        path,
		Cues:        len(cues),
		StreamIndex: track.StreamIndex,
		Codec:       track.Codec,
	}, stats, nil
}

// removeTrackDir drops a finished track's packets and bitmaps unless work
// directories are kept for debugging.
func (s *Service) removeTrackDir(ctx context.Context, run *ExtractionRun, streamIndex int) {
	if s.config.Extract.KeepWorkDir {
		return
	}
	dir := run.Dir.TrackDir(streamIndex)
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to remove track directory", "workdir_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "files remain until the run ends"),
		)
	}
}

// decoderFor builds the per-track decoder and the base palette images are
// composited against. PGS images carry their own palette.
func (s *Service) decoderFor(codec subpic.Codec, extradata string) (subpic.Decoder, subpic.Palette, error) {
	var base subpic.Palette
	switch codec {
	case subpic.CodecVobSub:
		palette, ok := vobsub.ParseIdx(extradata)
		if !ok {
			s.logger.Debug("vobsub track has no idx palette; using zero palette")
		}
		return vobsub.NewDecoder(), palette, nil
	case subpic.CodecPGS:
		matrix, err := pgs.ParseColorMatrix(s.config.PGS.ColorMatrix)
		if err != nil {
			return nil, base, services.Wrap(services.ErrConfiguration, "decode", "color matrix", s.config.PGS.ColorMatrix, err)
		}
		return pgs.NewDecoder(matrix), base, nil
	default:
		return nil, base, services.Wrap(services.ErrValidation, "decode", "codec", fmt.Sprintf("unsupported codec %s", codec), nil)
	}
}
