package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leighmacdonald/rglstats/internal/database"
	"github.com/leighmacdonald/rglstats/internal/export"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var withLinks bool

	command := &cobra.Command{
		Use:   "export",
		Short: "Write stats, ratings and links to the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			conf := application.conf

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			logStats, summary, errExtract := application.runner.ExtractAll(ctx, store, stats.New(application.normalizer))
			if errExtract != nil {
				return errExtract
			}

			ratings, _ := application.runner.Rate(store, application.normalizer, conf.Rating.Config())

			var links []linker.Candidate

			if withLinks {
				snapshot, errSnapshot := application.snapshot()
				if errSnapshot != nil {
					return errSnapshot
				}

				matchLinker, errLinker := application.linker(snapshot)
				if errLinker != nil {
					return errLinker
				}

				found, _, errLink := application.runner.LinkAll(ctx, store, matchLinker)
				if errLink != nil {
					return errLink
				}

				links = found
			}

			conn := database.New(conf.DB.DSN, conf.DB.AutoMigrate, conf.DB.LogQueries)
			if errConnect := conn.Connect(ctx); errConnect != nil {
				return errConnect
			}

			defer func() {
				if errClose := conn.Close(); errClose != nil {
					slog.Error("Failed to close database", log.ErrAttr(errClose))
				}
			}()

			run, errExport := export.New(conn).Export(ctx, export.Input{
				Stats:   logStats,
				Summary: summary,
				Ratings: ratings,
				Links:   links,
				Names:   application.names(store),
			})
			if errExport != nil {
				return errExport
			}

			slog.Info("Exported", slog.String("export_run_id", run.ExportRunID.String()), slog.Int("logs", run.Logs))

			return nil
		},
	}

	command.Flags().BoolVar(&withLinks, "links", true, "Also link logs to league matches, requires a league snapshot")

	return command
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|up_one|down_one|status]",
		Short:     "Create or update the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "up_one", "down_one", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			name := "up"
			if len(args) == 1 {
				name = args[0]
			}

			conf := application.conf
			conn := database.New(conf.DB.DSN, false, conf.DB.LogQueries)

			if name == "status" {
				current, errVersion := conn.Version()
				if errVersion != nil {
					return errVersion
				}

				_, errPrint := fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", current.Version, current.Dirty)

				return errPrint
			}

			action, errAction := database.ParseMigrationAction(name)
			if errAction != nil {
				return errAction
			}

			if errMigrate := conn.Migrate(action); errMigrate != nil {
				if errors.Is(errMigrate, database.ErrMigrate) {
					slog.Error("Could not migrate schema", log.ErrAttr(errMigrate))
				}

				return errMigrate
			}

			slog.Info("Migration complete", slog.String("action", name))

			return nil
		},
	}
}
