package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/report"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/spf13/cobra"
)

var ErrNoTeam = errors.New("no team matches query")

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print league, player and team reports",
	}
}

func reportLeagueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "league",
		Short: "Rank each division's teams by their best rated players",
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

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			ratings, _ := application.runner.Rate(store, application.normalizer, application.conf.Rating.Config())
			lookup := report.Lookup{Ratings: ratings, Names: application.names(store)}

			return report.RenderLeague(cmd.OutOrStdout(), report.League(snapshot, lookup))
		},
	}
}

func reportPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "Per player rates over every archived log",
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

			players := report.Players(store, application.normalizer, application.names(store))

			return report.RenderPlayers(cmd.OutOrStdout(), players)
		},
	}
}

func reportTeamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "team <name>",
		Short: "Roster, ratings and schedule of a team",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			query := strings.Join(args, " ")

			teams := report.FindTeams(snapshot.Teams, query)
			if len(teams) == 0 {
				return fmt.Errorf("%w: %s", ErrNoTeam, query)
			}

			if len(teams) > 1 {
				slog.Info("Multiple teams matched, showing the best match", slog.Int("matches", len(teams)),
					slog.String("team", teams[0].Name))
			}

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			ratings, _ := application.runner.Rate(store, application.normalizer, application.conf.Rating.Config())
			lookup := report.Lookup{Ratings: ratings, Names: application.names(store)}

			links := map[int][]int64{}

			matchLinker, errLinker := application.linker(snapshot)
			if errLinker != nil {
				return errLinker
			}

			candidates, _, errLink := application.runner.LinkAll(ctx, store, matchLinker)
			if errLink != nil {
				slog.Warn("Failed to link logs", log.ErrAttr(errLink))
			} else {
				links = linker.ByMatch(candidates)
			}

			return report.RenderTeam(cmd.OutOrStdout(), report.Team(snapshot, teams[0], lookup, links))
		},
	}
}
