package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"subocr/internal/history"
	"subocr/internal/services"
)

type runView struct {
	ID         string      `json:"id" yaml:"id"`
	Input      string      `json:"input" yaml:"input"`
	Status     string      `json:"status" yaml:"status"`
	Languages  string      `json:"languages,omitempty" yaml:"languages,omitempty"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Tracks     []trackItem `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

type trackItem struct {
	Stream   int    `json:"stream" yaml:"stream"`
	Codec    string `json:"codec" yaml:"codec"`
	Language string `json:"language" yaml:"language"`
	Status   string `json:"status" yaml:"status"`
	Packets  int    `json:"packets" yaml:"packets"`
	Dropped  int    `json:"dropped" yaml:"dropped"`
	Cues     int    `json:"cues" yaml:"cues"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past extraction runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			views := make([]runView, 0, len(runs))
			for _, run := range runs {
				views = append(views, newRunView(run, nil))
			}
			if handled, err := writeStructured(cmd, outFormat, views); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					statusLabel(run.Status),
					humanize.Time(run.StartedAt),
					run.Duration().Round(time.Second).String(),
					run.Languages,
					run.InputPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Started", "Duration", "Languages", "Input"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or yaml")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its tracks (id prefixes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, history.ErrAmbiguousRun) {
					return services.Wrap(services.ErrValidation, "history", "show", "run id prefix matches more than one run", err)
				}
				return err
			}
			if run == nil {
				return services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("no run %q", args[0]), nil)
			}
			tracks, err := store.Tracks(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			view := newRunView(*run, tracks)
			if handled, err := writeStructured(cmd, outFormat, view); handled {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Input:     %s\n", run.InputPath)
			fmt.Fprintf(out, "Status:    %s\n", statusLabel(run.Status))
			fmt.Fprintf(out, "Started:   %s (%s)\n", run.StartedAt.Local().Format(time.DateTime), humanize.Time(run.StartedAt))
			fmt.Fprintf(out, "Duration:  %s\n", run.Duration().Round(time.Second))
			if run.Languages != "" {
				fmt.Fprintf(out, "Languages: %s\n", run.Languages)
			}
			if run.Error != "" {
				fmt.Fprintf(out, "Error:     %s\n", run.Error)
			}
			if len(tracks) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(tracks))
			for _, t := range view.Tracks {
				rows = append(rows, []string{
					strconv.Itoa(t.Stream),
					t.Codec,
					t.Language,
					cases.Title(language.Und).String(t.Status),
					strconv.Itoa(t.Packets),
					strconv.Itoa(t.Dropped),
					strconv.Itoa(t.Cues),
					firstNonEmpty(t.Output, t.Error),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stream", "Codec", "Language", "Status", "Packets", "Dropped", "Cues", "Output"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, or yaml")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return services.Wrap(services.ErrValidation, "history", "prune", "--older-than must be positive", nil)
			}
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s) older than %s\n", removed, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold for pruning")
	return cmd
}

func requireHistory(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "history is disabled (history.enabled = false)", nil)
	}
	return store, nil
}

func newRunView(run history.Run, tracks []history.Track) runView {
	view := runView{
		ID:         run.ID,
		Input:      run.InputPath,
		Status:     string(run.Status),
		Languages:  run.Languages,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	for _, t := range tracks {
		view.Tracks = append(view.Tracks, trackItem{
			Stream:   t.StreamIndex,
			Codec:    t.Codec,
			Language: t.Language,
			Status:   string(t.Status),
			Packets:  t.PacketCount,
			Dropped:  t.DroppedCount,
			Cues:     t.CueCount,
			Output:   t.OutputPath,
			Error:    t.Error,
		})
	}
	return view
}

func statusLabel(status history.Status) string {
	return cases.Title(language.Und).String(string(status))
}

func runStatusKind(status history.Status) statusKind {
	switch status {
	case history.StatusSucceeded:
		return statusOK
	case history.StatusPartial, history.StatusSkipped, history.StatusRunning:
		return statusWarn
	case history.StatusFailed, history.StatusRejected:
		return statusError
	default:
		return statusInfo
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
