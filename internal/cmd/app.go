package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/leighmacdonald/rglstats/internal/batch"
	"github.com/leighmacdonald/rglstats/internal/config"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/pkg/log"
)

var ErrNoSnapshot = errors.New("no league snapshot, run fetch rgl first")

// app holds what every command needs: the configuration, the configured logger and a shared
// identity normalizer.
type app struct {
	conf       config.Config
	normalizer *identity.SteamNormalizer
	runner     *batch.Runner
	logCloser  func()
	sentry     *sentry.Client
}

func newApp(ctx context.Context) (*app, error) {
	conf, errConfig := config.Read(cfgFile)
	if errConfig != nil {
		return nil, errConfig
	}

	application := &app{
		conf:       conf,
		normalizer: identity.NewSteamNormalizer(),
		runner:     batch.New(conf.Batch.Workers, nil),
	}

	if conf.Log.SentryDSN != "" {
		client, errSentry := log.NewSentryClient(conf.Log.SentryDSN, BuildVersion, "production")
		if errSentry != nil {
			return nil, errSentry
		}

		application.sentry = client
	}

	logCloser, errLog := log.Setup(ctx, log.Options{
		Level:   conf.Log.Level,
		File:    conf.Log.File,
		Sentry:  application.sentry != nil,
		Release: BuildVersion,
	})
	if errLog != nil {
		return nil, errLog
	}

	application.logCloser = logCloser

	return application, nil
}

// Close writes the batch metrics and flushes the loggers.
func (a *app) Close() {
	if errMetrics := a.runner.Collector().WriteTextfile(a.conf.Batch.MetricsFile); errMetrics != nil {
		slog.Error("Failed to write metrics", log.ErrAttr(errMetrics))
	}

	if a.sentry != nil {
		a.sentry.Flush(2 * time.Second)
	}

	a.logCloser()
}

func (a *app) openStore() (*gamestream.Store, error) {
	return gamestream.Open(a.conf.Storage.GameLogs)
}

// names collects the display names of every player in the stream.
func (a *app) names(stream gamestream.Stream) *identity.Names {
	names := identity.NewNames()

	for game, errGame := range stream.Games() {
		if errGame != nil {
			continue
		}

		names.Observe(a.normalizer, game)
	}

	return names
}

func (a *app) snapshot() (league.Snapshot, error) {
	snapshot, errLoad := league.LoadSnapshot(a.conf.Storage.League)
	if errLoad != nil {
		if errors.Is(errLoad, os.ErrNotExist) {
			return league.Snapshot{}, errors.Join(errLoad, ErrNoSnapshot)
		}

		return league.Snapshot{}, errLoad
	}

	return snapshot, nil
}

func (a *app) linker(snapshot league.Snapshot) (*linker.Linker, error) {
	regionFormats, errFormats := a.conf.RGL.Formats()
	if errFormats != nil {
		return nil, errFormats
	}

	linkerConfig, errLinker := a.conf.Linker.Config()
	if errLinker != nil {
		return nil, errLinker
	}

	return linker.New(snapshot.UniqueMatches(), snapshot.Rosters(regionFormats), a.normalizer, linkerConfig), nil
}
