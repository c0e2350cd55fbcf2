package logstf

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/ryanuber/go-glob"
)

// Filter selects the logs worth archiving.
type Filter struct {
	// Glob patterns matched case-insensitively against the map name.
	Maps  []string
	Since time.Time
}

func (f Filter) Match(summary Summary) bool {
	if !f.Since.IsZero() && summary.Time().Before(f.Since) {
		return false
	}

	mapName := strings.ToLower(summary.Map)

	for _, pattern := range f.Maps {
		if glob.Glob(strings.ToLower(pattern), mapName) {
			return true
		}
	}

	return false
}

// ArchiveSummary counts what a single archive pass did.
type ArchiveSummary struct {
	Listed   int
	Matched  int
	Existing int
	Archived int
	Failed   int
}

// Archiver appends newly uploaded competitive logs to a store.
type Archiver struct {
	client *Client
	store  *gamestream.Store
	filter Filter
}

func NewArchiver(client *Client, store *gamestream.Store, filter Filter) *Archiver {
	return &Archiver{client: client, store: store, filter: filter}
}

// Run lists the latest logs and archives every matching one not already in the store. Failures
// fetching a single log are logged and counted, only a failed listing aborts the pass.
func (a *Archiver) Run(ctx context.Context, limit int) (ArchiveSummary, error) {
	var summary ArchiveSummary

	listing, errList := a.client.List(ctx, limit)
	if errList != nil {
		return summary, errList
	}

	summary.Listed = len(listing.Logs)

	for _, entry := range listing.Logs {
		if errCtx := ctx.Err(); errCtx != nil {
			return summary, errCtx
		}

		if !a.filter.Match(entry) {
			continue
		}

		summary.Matched++

		if a.store.Has(entry.ID) {
			summary.Existing++

			continue
		}

		raw, errFetch := a.client.Fetch(ctx, entry.ID)
		if errFetch != nil {
			slog.Error("Failed to fetch log", slog.Int64("log_id", entry.ID), log.ErrAttr(errFetch))

			summary.Failed++

			continue
		}

		if errAppend := a.store.Append(raw); errAppend != nil {
			if errors.Is(errAppend, gamestream.ErrDuplicate) {
				summary.Existing++

				continue
			}

			slog.Error("Failed to archive log", slog.Int64("log_id", entry.ID), log.ErrAttr(errAppend))

			summary.Failed++

			continue
		}

		slog.Debug("Archived log", slog.Int64("log_id", entry.ID), slog.String("map", entry.Map))

		summary.Archived++
	}

	return summary, nil
}
