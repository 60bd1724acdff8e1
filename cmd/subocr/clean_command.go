package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subocr/internal/history"
	"subocr/internal/services"
	"subocr/internal/workdir"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var orphaned bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover run directories from the work directory",
		Long: "Remove run directories left behind by interrupted or --keep-work-dir runs.\n" +
			"By default directories older than --older-than are removed; --orphaned instead removes\n" +
			"every directory whose run is not currently recorded as running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !orphaned && olderThan <= 0 {
				return services.Wrap(services.ErrValidation, "clean", "flags", "--older-than must be positive", nil)
			}

			var active map[string]struct{}
			if orphaned {
				active, err = activeRuns(cmd, ctx)
				if err != nil {
					return err
				}
			}
			cutoff := time.Now().Add(-olderThan)
			matches := func(dir workdir.DirInfo) bool {
				if orphaned {
					_, ok := active[strings.ToLower(dir.Name)]
					return !ok
				}
				return dir.ModTime.Before(cutoff)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				dirs, err := workdir.ListDirectories(cfg.Paths.WorkDir)
				if err != nil {
					return err
				}
				var rows [][]string
				var total int64
				for _, dir := range dirs {
					if !matches(dir) {
						continue
					}
					total += dir.Size
					rows = append(rows, []string{dir.Name, humanize.Time(dir.ModTime), humanize.Bytes(uint64(dir.Size))})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Nothing to clean")
					return nil
				}
				fmt.Fprintln(out, tableSpec{
					Headers: []string{"Directory", "Modified", "Size"},
					Rows:    rows,
					Footer:  []string{fmt.Sprintf("%d to remove", len(rows)), "", humanize.Bytes(uint64(total))},
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
				}.render())
				return nil
			}

			var result workdir.CleanStaleResult
			if orphaned {
				result = workdir.CleanOrphaned(cmd.Context(), cfg.Paths.WorkDir, active, ctx.loggerValue())
			} else {
				result = workdir.CleanStale(cmd.Context(), cfg.Paths.WorkDir, olderThan, ctx.loggerValue())
			}
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to remove %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "Nothing to clean")
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d director(ies) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Remove directories last modified before this age")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Remove every directory without a running run in history")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed without deleting")
	return cmd
}

// activeRuns returns the ids of runs history still records as running.
// Orphan detection needs history; without it a live run could be removed.
func activeRuns(cmd *cobra.Command, ctx *commandContext) (map[string]struct{}, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "clean", "orphaned", "--orphaned requires history to be enabled", nil)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{})
	for _, run := range runs {
		if run.Status == history.StatusRunning {
			active[strings.ToLower(run.ID)] = struct{}{}
		}
	}
	return active, nil
}
