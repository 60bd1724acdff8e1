package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subocr/internal/extract"
	"subocr/internal/logging"
	"subocr/internal/preflight"
	"subocr/internal/services"
)

type extractOptions struct {
	outputDir   string
	languages   []string
	keepWorkDir bool
}

func (o *extractOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "", "Write subtitle files here instead of beside the input")
	cmd.Flags().StringSliceVarP(&o.languages, "languages", "l", nil, "OCR languages to extract, in priority order (e.g. eng,fra)")
	cmd.Flags().BoolVar(&o.keepWorkDir, "keep-work-dir", false, "Keep the per-run scratch directory for debugging")
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract <input>",
		Short: "Extract bitmap subtitle tracks of a media file to WebVTT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, ctx, args[0], opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runExtract(cmd *cobra.Command, ctx *commandContext, input string, opts extractOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if opts.keepWorkDir {
		cfg.Extract.KeepWorkDir = true
	}
	logger := ctx.loggerValue()

	if err := checkReadiness(cmd, ctx); err != nil {
		return err
	}

	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path or set history.enabled = false"),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	svc := extract.NewService(cfg, logger,
		extract.WithHistory(store),
		extract.WithOutputDir(opts.outputDir),
		extract.WithLanguages(trimmedList(opts.languages)),
	)
	outputs, err := svc.Extract(cmd.Context(), input)
	for _, out := range outputs {
		fmt.Fprintln(cmd.OutOrStdout(), out.Path)
	}
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No subtitle track matched an installed OCR language; run `subocr tracks` to inspect the input.")
	}
	return nil
}

// checkReadiness fails fast on missing directories or required binaries.
func checkReadiness(cmd *cobra.Command, ctx *commandContext) error {
	cfg := ctx.configValue()
	if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return services.Wrap(services.ErrConfiguration, "preflight", "directories", strings.Join(details, "; "), nil)
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if status.Available || status.Optional {
			continue
		}
		return services.Wrap(services.ErrConfiguration, "preflight", "binaries",
			fmt.Sprintf("%s unavailable (%s); run `subocr status` for details", status.Name, status.Detail), nil)
	}
	return nil
}

func trimmedList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
