package cmd

import (
	"log/slog"
	"time"

	"github.com/leighmacdonald/rglstats/internal/logstf"
	"github.com/leighmacdonald/rglstats/internal/rgl"
	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download data from the remote sites",
	}
}

func fetchLogsCmd() *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   "logs",
		Short: "Archive new competitive logs from logs.tf",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			conf := application.conf.LogsTF
			if limit <= 0 {
				limit = conf.Limit
			}

			store, errStore := application.openStore()
			if errStore != nil {
				return errStore
			}

			filter := logstf.Filter{Maps: conf.CompMaps}
			if conf.SeasonWindow > 0 {
				filter.Since = time.Now().Add(-conf.SeasonWindow)
			}

			archiver := logstf.NewArchiver(logstf.NewClient(conf.BaseURL, conf.RequestInterval), store, filter)

			summary, errRun := archiver.Run(ctx, limit)
			if errRun != nil {
				return errRun
			}

			slog.Info("Archive complete", slog.Int("listed", summary.Listed), slog.Int("matched", summary.Matched),
				slog.Int("existing", summary.Existing), slog.Int("archived", summary.Archived),
				slog.Int("failed", summary.Failed), slog.Int("stored", store.Len()))

			return nil
		},
	}

	command.Flags().IntVarP(&limit, "limit", "l", 0, "Number of recent logs to list (default from config)")

	return command
}

func fetchRGLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rgl",
		Short: "Scrape seasons, rosters and schedules from rgl.gg",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, errApp := newApp(ctx)
			if errApp != nil {
				return errApp
			}

			defer application.Close()

			conf := application.conf

			linkerConfig, errLinker := conf.Linker.Config()
			if errLinker != nil {
				return errLinker
			}

			client := rgl.NewClient(conf.RGL.BaseURL, conf.RGL.UserAgent, conf.RGL.RequestInterval)

			snapshot, errScrape := rgl.NewScraper(client, linkerConfig.Location).Scrape(ctx)
			if errScrape != nil {
				return errScrape
			}

			if errSave := snapshot.Save(conf.Storage.League); errSave != nil {
				return errSave
			}

			slog.Info("Saved league snapshot", slog.String("path", conf.Storage.League))

			return nil
		},
	}
}
