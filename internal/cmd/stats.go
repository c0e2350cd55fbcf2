package cmd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/leighmacdonald/rglstats/internal/report"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/spf13/cobra"
)

var ErrWriteOutput = errors.New("failed to write output file")

func writeJSON(path string, value any) error {
	body, errMarshal := json.MarshalIndent(value, "", "  ")
	if errMarshal != nil {
		return errors.Join(errMarshal, ErrWriteOutput)
	}

	if errWrite := os.WriteFile(path, body, 0o600); errWrite != nil {
		return errors.Join(errWrite, ErrWriteOutput)
	}

	return nil
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Print the detected format of every archived log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			return report.RenderFormats(cmd.OutOrStdout(), store)
		},
	}
}

func statsCmd() *cobra.Command {
	var out string

	command := &cobra.Command{
		Use:   "stats",
		Short: "Extract per player, per class stats from every archived log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			logStats, summary, errExtract := application.runner.ExtractAll(ctx, store, stats.New(application.normalizer))
			if errExtract != nil {
				return errExtract
			}

			slog.Info("Extracted stats", slog.Int("processed", summary.Processed), slog.Int("skipped", summary.Skipped))

			if out != "" {
				if errWrite := writeJSON(out, logStats); errWrite != nil {
					return errWrite
				}

				slog.Info("Wrote stats", slog.String("path", out))

				return nil
			}

			if errRender := report.RenderStats(cmd.OutOrStdout(), logStats, application.names(store)); errRender != nil {
				slog.Error("Failed to render stats", log.ErrAttr(errRender))

				return errRender
			}

			return nil
		},
	}

	command.Flags().StringVarP(&out, "out", "o", "", "Write the rows as json to this path instead of printing them")

	return command
}
