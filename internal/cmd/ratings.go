package cmd

import (
	"log/slog"

	"github.com/leighmacdonald/rglstats/internal/report"
	"github.com/spf13/cobra"
)

func ratingsCmd() *cobra.Command {
	var (
		out   string
		limit int
	)

	command := &cobra.Command{
		Use:   "ratings",
		Short: "Compute the player ratings leaderboard",
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

			ratings, summary := application.runner.Rate(store, application.normalizer, application.conf.Rating.Config())

			slog.Info("Rated logs", slog.Int("processed", summary.Processed), slog.Int("skipped", summary.Skipped),
				slog.Int("players", len(ratings)))

			ranked := report.Leaderboard(ratings, application.names(store), limit)

			if out != "" {
				if errWrite := writeJSON(out, ranked); errWrite != nil {
					return errWrite
				}

				slog.Info("Wrote ratings", slog.String("path", out))

				return nil
			}

			return report.RenderLeaderboard(cmd.OutOrStdout(), ranked)
		},
	}

	command.Flags().StringVarP(&out, "out", "o", "", "Write the leaderboard as json to this path instead of printing it")
	command.Flags().IntVarP(&limit, "limit", "l", 50, "Number of players to show, 0 for everyone")

	return command
}
