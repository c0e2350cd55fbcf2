// Package export writes batch results into the relational schema.
package export

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/leighmacdonald/rglstats/internal/batch"
	"github.com/leighmacdonald/rglstats/internal/database"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	ErrRunID  = errors.New("failed to generate export run id")
	ErrExport = errors.New("failed to export results")
)

// Run records a single export.
type Run struct {
	ExportRunID uuid.UUID
	Logs        int
	Skipped     int
	Filtered    int
	CreatedOn   time.Time
}

// Input is everything produced by one batch pass.
type Input struct {
	Stats   []batch.LogStats
	Summary batch.Summary
	Ratings map[steamid.SteamID]rating.Rating
	Links   []linker.Candidate
	Names   *identity.Names
}

type Exporter struct {
	db  database.Database
	now func() time.Time
}

func New(db database.Database) *Exporter {
	return &Exporter{db: db, now: time.Now}
}

// Export writes the input inside one transaction. Logs that were already exported have their rows
// replaced, ratings are overwritten with the latest run.
func (e *Exporter) Export(ctx context.Context, input Input) (Run, error) {
	runID, errID := uuid.NewV4()
	if errID != nil {
		return Run{}, errors.Join(errID, ErrRunID)
	}

	run := Run{
		ExportRunID: runID,
		Logs:        input.Summary.Processed,
		Skipped:     input.Summary.Skipped,
		Filtered:    input.Summary.Filtered,
		CreatedOn:   e.now().UTC().Truncate(time.Second),
	}

	builder := e.db.Builder()

	errTx := e.db.WrapTx(ctx, func(tx pgx.Tx) error {
		if err := exec(ctx, tx, builder.
			Insert("export_runs").
			Columns("export_run_id", "logs", "skipped", "filtered", "created_on").
			Values(run.ExportRunID, run.Logs, run.Skipped, run.Filtered, run.CreatedOn)); err != nil {
			return err
		}

		if err := e.writePlayers(ctx, tx, input); err != nil {
			return err
		}

		for _, logStats := range input.Stats {
			if err := writeLog(ctx, tx, builder, logStats); err != nil {
				return err
			}
		}

		if err := writeRatings(ctx, tx, builder, runID, input.Ratings); err != nil {
			return err
		}

		return writeLinks(ctx, tx, builder, runID, input.Links)
	})
	if errTx != nil {
		return Run{}, errors.Join(errTx, ErrExport)
	}

	slog.Info("Export complete", slog.String("export_run_id", runID.String()),
		slog.Int("logs", len(input.Stats)), slog.Int("ratings", len(input.Ratings)),
		slog.Int("links", len(input.Links)))

	return run, nil
}

// Keeps every multi row insert well under the postgres bind parameter limit.
const maxRowsPerInsert = 1000

func exec(ctx context.Context, tx pgx.Tx, builder sq.Sqlizer) error {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return errors.Join(errQuery, database.ErrCreateQuery)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return database.DBErr(err)
	}

	return nil
}

func (e *Exporter) writePlayers(ctx context.Context, tx pgx.Tx, input Input) error {
	players := map[steamid.SteamID]struct{}{}

	for _, logStats := range input.Stats {
		for _, row := range logStats.Rows {
			players[row.PlayerID] = struct{}{}
		}
	}

	for sid := range input.Ratings {
		players[sid] = struct{}{}
	}

	if len(players) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(players))
	for sid := range players {
		ids = append(ids, sid.Int64())
	}

	slices.Sort(ids)

	updated := e.now().UTC().Truncate(time.Second)

	for chunk := range slices.Chunk(ids, maxRowsPerInsert) {
		insert := e.db.Builder().
			Insert("players").
			Columns("steam_id", "name", "updated_on")

		for _, id := range chunk {
			sid := steamid.New(id)

			name := sid.String()
			if input.Names != nil {
				name = input.Names.Name(sid)
			}

			insert = insert.Values(id, name, updated)
		}

		if err := exec(ctx, tx, insert.Suffix("ON CONFLICT (steam_id) DO UPDATE SET name = EXCLUDED.name, updated_on = EXCLUDED.updated_on")); err != nil {
			return err
		}
	}

	return nil
}

func writeLog(ctx context.Context, tx pgx.Tx, builder sq.StatementBuilderType, logStats batch.LogStats) error {
	game := logStats.Log

	var redScore, blueScore *int

	if red, blue, errScores := game.Scores(); errScores == nil {
		redScore, blueScore = &red, &blue
	}

	if err := exec(ctx, tx, builder.
		Insert("match_logs").
		Columns("log_id", "map", "title", "match_time", "length", "format", "red_score", "blue_score").
		Values(game.ID, game.Info.Map, game.Info.Title, game.Time().UTC(), game.Length,
			logStats.Format.String(), redScore, blueScore).
		Suffix(`ON CONFLICT (log_id) DO UPDATE SET map = EXCLUDED.map, title = EXCLUDED.title,
			match_time = EXCLUDED.match_time, length = EXCLUDED.length, format = EXCLUDED.format,
			red_score = EXCLUDED.red_score, blue_score = EXCLUDED.blue_score`)); err != nil {
		return err
	}

	// Matchups cascade from the stat rows.
	if err := exec(ctx, tx, builder.Delete("player_class_stats").Where(sq.Eq{"log_id": game.ID})); err != nil {
		return err
	}

	if len(logStats.Rows) == 0 {
		return nil
	}

	rows := builder.
		Insert("player_class_stats").
		Columns("log_id", "steam_id", "class", "team", "kills", "deaths", "assists", "dmg", "dt",
			"heal", "heals_received", "total_time", "playtime_pct", "meds_dropped", "drops", "ubers",
			"mid_fight_eligible", "mid_escapes", "mid_deaths", "headshots_hit", "backstabs")

	var (
		matchups    = builder.Insert("class_matchups").Columns("log_id", "steam_id", "class", "versus_class", "kills", "deaths", "assists")
		hasMatchups bool
	)

	for _, row := range logStats.Rows {
		rows = rows.Values(row.LogID, row.PlayerID.Int64(), int(row.Class), int(row.Team), row.Kills, row.Deaths,
			row.Assists, row.Damage, row.DamageTaken, row.Heal, row.HealReceived, row.TotalTime, row.PlaytimePct,
			row.MedsDropped, row.Drops, row.Ubers, row.MidFightEligible, row.MidEscapes, row.MidDeaths,
			row.HeadshotsHit, row.Backstabs)

		for _, matchup := range Matchups(row) {
			hasMatchups = true
			matchups = matchups.Values(row.LogID, row.PlayerID.Int64(), int(row.Class), int(matchup.Versus),
				matchup.Kills, matchup.Deaths, matchup.Assists)
		}
	}

	if err := exec(ctx, tx, rows); err != nil {
		return err
	}

	if !hasMatchups {
		return nil
	}

	return exec(ctx, tx, matchups)
}

// Matchup is a row's record against a single opposing class.
type Matchup struct {
	Versus  gamelog.Class
	Kills   int
	Deaths  int
	Assists int
}

// Matchups flattens the per class counters of a row, ordered by class.
func Matchups(row stats.PlayerClassStat) []Matchup {
	var matchups []Matchup

	for _, class := range gamelog.Classes {
		matchup := Matchup{
			Versus:  class,
			Kills:   row.ClassKills[class],
			Deaths:  row.ClassDeaths[class],
			Assists: row.ClassAssists[class],
		}

		if matchup.Kills == 0 && matchup.Deaths == 0 && matchup.Assists == 0 {
			continue
		}

		matchups = append(matchups, matchup)
	}

	return matchups
}

func writeRatings(ctx context.Context, tx pgx.Tx, builder sq.StatementBuilderType, runID uuid.UUID,
	ratings map[steamid.SteamID]rating.Rating,
) error {
	if len(ratings) == 0 {
		return nil
	}

	ids := make([]steamid.SteamID, 0, len(ratings))
	for sid := range ratings {
		ids = append(ids, sid)
	}

	slices.SortFunc(ids, func(a, b steamid.SteamID) int {
		return cmp.Compare(a.Int64(), b.Int64())
	})

	for chunk := range slices.Chunk(ids, maxRowsPerInsert) {
		insert := builder.Insert("player_ratings").Columns("steam_id", "export_run_id", "mu", "sigma", "games")
		for _, sid := range chunk {
			current := ratings[sid]
			insert = insert.Values(sid.Int64(), runID, current.Mu, current.Sigma, current.Games)
		}

		if err := exec(ctx, tx, insert.Suffix(`ON CONFLICT (steam_id) DO UPDATE SET export_run_id = EXCLUDED.export_run_id,
		mu = EXCLUDED.mu, sigma = EXCLUDED.sigma, games = EXCLUDED.games`)); err != nil {
			return err
		}
	}

	return nil
}

func writeLinks(ctx context.Context, tx pgx.Tx, builder sq.StatementBuilderType, runID uuid.UUID, links []linker.Candidate) error {
	if len(links) == 0 {
		return nil
	}

	for chunk := range slices.Chunk(links, maxRowsPerInsert) {
		insert := builder.Insert("match_links").Columns("match_id", "log_id", "export_run_id")
		for _, link := range chunk {
			insert = insert.Values(link.MatchID, link.LogID, runID)
		}

		if err := exec(ctx, tx, insert.Suffix("ON CONFLICT (match_id, log_id) DO NOTHING")); err != nil {
			return err
		}
	}

	return nil
}

// Runs lists previous exports, newest first.
func (e *Exporter) Runs(ctx context.Context, limit uint64) ([]Run, error) {
	query := e.db.Builder().
		Select("export_run_id", "logs", "skipped", "filtered", "created_on").
		From("export_runs").
		OrderBy("created_on DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	rows, errQuery := e.db.QueryBuilder(ctx, query)
	if errQuery != nil {
		return nil, database.DBErr(errQuery)
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var run Run
		if errScan := rows.Scan(&run.ExportRunID, &run.Logs, &run.Skipped, &run.Filtered, &run.CreatedOn); errScan != nil {
			return nil, database.DBErr(errScan)
		}

		runs = append(runs, run)
	}

	return runs, database.DBErr(rows.Err())
}

// StoredRating loads the exported rating of a single player.
func (e *Exporter) StoredRating(ctx context.Context, sid steamid.SteamID) (rating.Rating, error) {
	query, args, errQuery := e.db.Builder().
		Select("mu", "sigma", "games").
		From("player_ratings").
		Where(sq.Eq{"steam_id": sid.Int64()}).
		ToSql()
	if errQuery != nil {
		return rating.Rating{}, errors.Join(errQuery, database.ErrCreateQuery)
	}

	var stored rating.Rating
	if errRow := e.db.QueryRow(ctx, query, args...).Scan(&stored.Mu, &stored.Sigma, &stored.Games); errRow != nil {
		return rating.Rating{}, database.DBErr(errRow)
	}

	return stored, nil
}
