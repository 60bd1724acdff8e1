package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subocr/internal/logging"
	"subocr/internal/ocr"
	"subocr/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, tool, and history readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			configDetail := ctx.configPath
			if !ctx.configSeen {
				configDetail += " (not found, using defaults)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configDetail, colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				lines = append(lines, resultLine(result, colorize))
			}
			lines = append(lines, renderStatusLine("Keep work dirs", statusInfo, yesNo(cfg.Extract.KeepWorkDir), colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("OCR", colorize)...)
			lines = append(lines, renderStatusLine("Engine", statusInfo, cfg.OCR.Engine, colorize))
			tessdata := preflight.CheckTessdata()
			tessKind := statusOK
			if !tessdata.Passed {
				tessKind = statusWarn
			}
			lines = append(lines, renderStatusLine(tessdata.Name, tessKind, tessdata.Detail, colorize))
			engine, err := ocr.NewEngine(cfg, ctx.loggerValue())
			if err != nil {
				lines = append(lines, renderStatusLine("OCR languages", statusError, err.Error(), colorize))
			} else {
				lines = append(lines, resultLine(preflight.CheckLanguages(cmd.Context(), engine, cfg.OCR.Languages), colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("History", colorize)...)
			lines = append(lines, resultLine(preflight.CheckHistory(cfg), colorize))
			lines = append(lines, lastRunLine(cmd, ctx, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func lastRunLine(cmd *cobra.Command, ctx *commandContext, colorize bool) []string {
	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(ctx.loggerValue(), "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "last run not shown"),
		)
		return []string{renderStatusLine("Last run", statusWarn, "history unavailable", colorize)}
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), 1)
	if err != nil {
		return []string{renderStatusLine("Last run", statusWarn, err.Error(), colorize)}
	}
	if len(runs) == 0 {
		return []string{renderStatusLine("Last run", statusInfo, "none recorded", colorize)}
	}
	run := runs[0]
	message := fmt.Sprintf("%s %s (%s)", statusLabel(run.Status), run.InputPath, humanize.Time(run.StartedAt))
	return []string{renderStatusLine("Last run", runStatusKind(run.Status), message, colorize)}
}
