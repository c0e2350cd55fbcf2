package cmd

import (
	"log/slog"

	"github.com/leighmacdonald/rglstats/internal/report"
	"github.com/spf13/cobra"
)

func linkCmd() *cobra.Command {
	var out string

	command := &cobra.Command{
		Use:   "link",
		Short: "Link archived logs to scheduled league matches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			snapshot, errSnapshot := application.snapshot()
			if errSnapshot != nil {
				return errSnapshot
			}

			matchLinker, errLinker := application.linker(snapshot)
			if errLinker != nil {
				return errLinker
			}

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			candidates, summary, errLink := application.runner.LinkAll(ctx, store, matchLinker)
			if errLink != nil {
				return errLink
			}

			slog.Info("Linked logs", slog.Int("processed", summary.Processed), slog.Int("skipped", summary.Skipped),
				slog.Int("filtered", summary.Filtered), slog.Int("candidates", len(candidates)))

			if out != "" {
				return writeJSON(out, candidates)
			}

			return report.RenderLinks(cmd.OutOrStdout(), candidates, snapshot)
		},
	}

	command.Flags().StringVarP(&out, "out", "o", "", "Write the candidates as json to this path instead of printing them")

	return command
}
