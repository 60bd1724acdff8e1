package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subocr/internal/config"
	"subocr/internal/deps"
	"subocr/internal/extract"
	"subocr/internal/language"
	"subocr/internal/media/ffprobe"
	"subocr/internal/ocr"
	"subocr/internal/services"
)

type trackView struct {
	Stream     int     `json:"stream" yaml:"stream"`
	Codec      string  `json:"codec" yaml:"codec"`
	Language   string  `json:"language" yaml:"language"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Frames     int64   `json:"frames" yaml:"frames"`
	DurationMS int64   `json:"duration_ms" yaml:"duration_ms"`
	Density    float64 `json:"density" yaml:"density"`
	Forced     bool    `json:"forced" yaml:"forced"`
	Default    bool    `json:"default" yaml:"default"`
	Eligible   bool    `json:"eligible" yaml:"eligible"`
	// OCRLanguage is set when the track would be extracted in a run.
	OCRLanguage string `json:"ocr_language,omitempty" yaml:"ocr_language,omitempty"`
}

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tracks <input>",
		Short: "List subtitle tracks and which ones would be extracted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			binary := deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary())
			result, err := ffprobe.Inspect(cmd.Context(), binary, args[0])
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "tracks", "ffprobe", "inspect input", err)
			}
			views := buildTrackViews(result.SubtitleTracks(), selectionLanguages(cmd.Context(), cfg, ctx.loggerValue()), cfg.Extract.MinFrameDensity)

			if handled, err := writeStructured(cmd, outFormat, views); handled {
				return err
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No subtitle tracks found")
				return nil
			}
			fmt.Fprint(out, renderTracksTable(views))
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or yaml")
	return cmd
}

// selectionLanguages returns the languages a run would use. When the OCR
// engine cannot be queried the configured list is used as-is.
func selectionLanguages(ctx context.Context, cfg *config.Config, logger *slog.Logger) []string {
	engine, err := ocr.NewEngine(cfg, logger)
	if err != nil {
		return cfg.OCR.Languages
	}
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	installed, err := engine.Languages(listCtx)
	if err != nil || len(installed) == 0 {
		return cfg.OCR.Languages
	}
	resolved, _ := extract.ResolveLanguages(installed, cfg.OCR.Languages)
	return resolved
}

func buildTrackViews(tracks []ffprobe.SubtitleTrack, languages []string, minDensity float64) []trackView {
	selected := make(map[int]string)
	for _, sel := range extract.SelectTracks(tracks, languages, minDensity) {
		selected[sel.Track.StreamIndex] = sel.Language
	}
	views := make([]trackView, 0, len(tracks))
	for _, track := range tracks {
		views = append(views, trackView{
			Stream:      track.StreamIndex,
			Codec:       track.Codec,
			Language:    track.Language,
			Title:       track.Title,
			Frames:      track.Frames,
			DurationMS:  track.DurationMS,
			Density:     track.Density(),
			Forced:      track.Forced,
			Default:     track.Default,
			Eligible:    extract.Eligible(track, minDensity),
			OCRLanguage: selected[track.StreamIndex],
		})
	}
	return views
}

func renderTracksTable(views []trackView) string {
	headers := []string{"Stream", "Codec", "Language", "Title", "Events", "Duration", "Flags", "Extract"}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		lang := "-"
		if v.Language != "" {
			lang = fmt.Sprintf("%s (%s)", language.DisplayName(v.Language), v.Language)
		}
		var flags []string
		if v.Default {
			flags = append(flags, "default")
		}
		if v.Forced {
			flags = append(flags, "forced")
		}
		extractCell := "-"
		switch {
		case v.OCRLanguage != "":
			extractCell = "yes (" + v.OCRLanguage + ")"
		case !v.Eligible:
			extractCell = "ineligible"
		}
		rows = append(rows, []string{
			strconv.Itoa(v.Stream),
			v.Codec,
			lang,
			v.Title,
			strconv.FormatInt(v.Frames, 10),
			formatMillis(v.DurationMS),
			strings.Join(flags, ","),
			extractCell,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft})
}
