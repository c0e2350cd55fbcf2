// Package batch runs the per log operations over a whole stream, fanning the independent work
// out across goroutines.
package batch

import (
	"cmp"
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Summary counts how each log in a batch was handled.
type Summary struct {
	Processed int
	Skipped   int
	Filtered  int
}

// LogStats is the extracted rows of a single log, sorted by player and class.
type LogStats struct {
	Log    gamelog.GameLog
	Format format.Format
	Rows   []stats.PlayerClassStat
}

type Runner struct {
	workers   int
	collector *Collector
}

// New creates a runner. A non positive worker count uses one worker per cpu.
func New(workers int, collector *Collector) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if collector == nil {
		collector = NewCollector()
	}

	return &Runner{workers: workers, collector: collector}
}

func (r *Runner) Collector() *Collector {
	return r.collector
}

type outcome int

const (
	processed outcome = iota
	skipped
	filtered
)

type result[T any] struct {
	logID int64
	value T
}

// fanOut drains the stream on a single producer and hands logs to the workers. work returns
// filtered for logs that were deliberately ignored. Results are ordered by log id.
func fanOut[T any](ctx context.Context, workers int, operation string, stream gamestream.Stream,
	work func(gamelog.GameLog) (T, outcome, error),
) ([]T, Summary, error) {
	var (
		jobs     = make(chan gamelog.GameLog)
		mu       = &sync.Mutex{}
		results  []result[T]
		summary  Summary
		errGroup *errgroup.Group
		groupCtx context.Context
	)

	errGroup, groupCtx = errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		defer close(jobs)

		for game, errGame := range stream.Games() {
			if errCtx := groupCtx.Err(); errCtx != nil {
				return errCtx
			}

			if errGame != nil {
				slog.Warn("Skipping unreadable log", slog.String("operation", operation), log.ErrAttr(errGame))

				mu.Lock()
				summary.Skipped++
				mu.Unlock()

				continue
			}

			select {
			case jobs <- game:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}

		return nil
	})

	for range workers {
		errGroup.Go(func() error {
			for game := range jobs {
				value, state, errWork := work(game)

				mu.Lock()
				switch {
				case errWork != nil:
					summary.Skipped++

					slog.Warn("Skipping log", slog.String("operation", operation),
						slog.Int64("log_id", game.ID), log.ErrAttr(errWork))
				case state == filtered:
					summary.Filtered++
				default:
					summary.Processed++
					results = append(results, result[T]{logID: game.ID, value: value})
				}
				mu.Unlock()
			}

			return nil
		})
	}

	if errWait := errGroup.Wait(); errWait != nil {
		return nil, summary, errWait
	}

	slices.SortStableFunc(results, func(a, b result[T]) int {
		return cmp.Compare(a.logID, b.logID)
	})

	values := make([]T, len(results))
	for i, res := range results {
		values[i] = res.value
	}

	return values, summary, nil
}

// ExtractAll classifies and extracts stats for every log in the stream.
func (r *Runner) ExtractAll(ctx context.Context, stream gamestream.Stream, extractor *stats.Extractor) ([]LogStats, Summary, error) {
	logStats, summary, errRun := fanOut(ctx, r.workers, "extract", stream, func(game gamelog.GameLog) (LogStats, outcome, error) {
		if errValid := game.Validate(); errValid != nil {
			return LogStats{}, skipped, errValid
		}

		extracted, errExtract := extractor.Extract(game)
		if errExtract != nil {
			return LogStats{}, skipped, errExtract
		}

		rows := make([]stats.PlayerClassStat, 0, len(extracted))
		for _, row := range extracted {
			rows = append(rows, row)
		}

		slices.SortFunc(rows, func(a, b stats.PlayerClassStat) int {
			if order := cmp.Compare(a.PlayerID.Int64(), b.PlayerID.Int64()); order != 0 {
				return order
			}

			return cmp.Compare(a.Class, b.Class)
		})

		return LogStats{Log: game, Format: format.Classify(game), Rows: rows}, processed, nil
	})
	if errRun != nil {
		return nil, summary, errRun
	}

	r.collector.observe("extract", summary)

	for _, entry := range logStats {
		r.collector.FormatCount.With(prometheus.Labels{"format": entry.Format.String()}).Inc()

		for _, row := range entry.Rows {
			r.collector.RowCounter.With(prometheus.Labels{"class": row.Class.String()}).Inc()
		}
	}

	return logStats, summary, nil
}

// LinkAll finds the candidate matches of every log in the stream.
func (r *Runner) LinkAll(ctx context.Context, stream gamestream.Stream, link *linker.Linker) ([]linker.Candidate, Summary, error) {
	perLog, summary, errRun := fanOut(ctx, r.workers, "link", stream, func(game gamelog.GameLog) ([]linker.Candidate, outcome, error) {
		if link.Filtered(game) {
			return nil, filtered, nil
		}

		found, errFind := link.Candidates(game)
		if errFind != nil {
			return nil, skipped, errFind
		}

		return found, processed, nil
	})
	if errRun != nil {
		return nil, summary, errRun
	}

	var candidates []linker.Candidate
	for _, found := range perLog {
		candidates = append(candidates, found...)
	}

	r.collector.observe("link", summary)
	r.collector.LinkCounter.Add(float64(len(candidates)))

	return candidates, summary, nil
}

// Rate runs the rating pass. It is always sequential since every update depends on the
// previous ones.
func (r *Runner) Rate(stream gamestream.Stream, normalizer identity.Normalizer, config rating.Config) (map[steamid.SteamID]rating.Rating, Summary) {
	ratings, rated := rating.Compute(stream, normalizer, config)

	summary := Summary{Processed: rated.Processed, Skipped: rated.Skipped}

	r.collector.observe("rate", summary)
	r.collector.RatedPlayers.Set(float64(len(ratings)))

	return ratings, summary
}
