// Package cmd implements the CLI (Command Line Interface) of the application.
//
// fetch logs - Archive new competitive logs from logs.tf
// fetch rgl - Scrape seasons, rosters and schedules from rgl.gg
// classify - Print the detected format of every archived log
// stats - Extract per player, per class stats from every archived log
// link - Link archived logs to scheduled league matches
// ratings - Compute the player ratings leaderboard
// report league - Rank each division's teams by their best rated players
// report players - Per player rates over every archived log
// report team - Roster, ratings and schedule of a team
// export - Write stats, ratings and links to the database
// migrate - Initiate a database migration manually
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// BuildVersion is set at build time with -ldflags.
var BuildVersion = "master" //nolint:gochecknoglobals

var cfgFile string //nolint:gochecknoglobals

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:           "rglstats",
	Short:         "Competitive TF2 log stats, match linking and player ratings",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupCLI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errExecute := rootCmd.ExecuteContext(ctx); errExecute != nil {
		stop()
		os.Exit(1)
	}
}

func setupCLI() {
	rootCmd.Version = BuildVersion

	fetch := fetchCmd()
	fetch.AddCommand(fetchLogsCmd())
	fetch.AddCommand(fetchRGLCmd())
	rootCmd.AddCommand(fetch)

	reports := reportCmd()
	reports.AddCommand(reportLeagueCmd())
	reports.AddCommand(reportPlayersCmd())
	reports.AddCommand(reportTeamCmd())
	rootCmd.AddCommand(reports)

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(ratingsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/rglstats.yml or ./rglstats.yml)")
}
