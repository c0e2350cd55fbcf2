package rgl_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/internal/rgl"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string) *goquery.Document {
	t.Helper()

	file, errOpen := os.Open(filepath.Join("testdata", name))
	require.NoError(t, errOpen)

	defer file.Close()

	doc, errDoc := goquery.NewDocumentFromReader(file)
	require.NoError(t, errDoc)

	return doc
}

func TestParseSeasons(t *testing.T) {
	require.Equal(t, []league.Season{
		{ID: 10, Name: "Sixes S14"},
		{ID: 11, Name: "Highlander S12"},
	}, rgl.ParseSeasons(fixture(t, "regions.html")))
}

func TestParseLeagueTable(t *testing.T) {
	require.Equal(t, []league.Team{
		{ID: 1001, Name: "Froyotech", RegionID: 40, SeasonID: 10},
		{ID: 1002, Name: "Ascent", RegionID: 40, SeasonID: 10},
	}, rgl.ParseLeagueTable(fixture(t, "league_table_10.html"), 10))

	require.Equal(t, []league.Team{
		{ID: 1002, Name: "Ascent", RegionID: 40, SeasonID: 11},
		{ID: 2001, Name: "Unplaced", SeasonID: 11},
	}, rgl.ParseLeagueTable(fixture(t, "league_table_11.html"), 11))
}

func TestParseTeamPage(t *testing.T) {
	team := league.Team{ID: 1001, Name: "Froyotech", RegionID: 40, SeasonID: 10}

	page, found := rgl.ParseTeamPage(fixture(t, "team_1001.html"), team, time.UTC)
	require.True(t, found)
	require.Equal(t, league.Division{ID: 555, Name: "Invite"}, page.Division)

	require.Len(t, page.Roster, 2)

	first := page.Roster[0]
	require.Equal(t, steamid.New(int64(76561198006890901)), first.PlayerID)
	require.Equal(t, "b4nny", first.Name)
	require.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), *first.Joined)
	require.Nil(t, first.Left)
	require.Equal(t, 1001, first.TeamID)
	require.Equal(t, 40, first.RegionID)
	require.Equal(t, 10, first.SeasonID)
	require.Equal(t, 555, first.LeagueID)

	second := page.Roster[1]
	require.Equal(t, "habib", second.Name)
	require.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), *second.Left)

	require.Len(t, page.Matches, 2)

	scheduled := page.Matches[0]
	require.Equal(t, 9001, scheduled.ID)
	require.Equal(t, 1001, scheduled.Team1)
	require.Equal(t, 1002, scheduled.Team2)
	require.Equal(t, []string{"cp_sunshine", "koth_product_final"}, scheduled.Maps)
	require.InDelta(t, 3.0, *scheduled.Team1Score, 0)
	require.InDelta(t, 1.0, *scheduled.Team2Score, 0)
	require.Equal(t, time.Date(2023, 11, 14, 21, 0, 0, 0, time.UTC), *scheduled.Date)

	undated := page.Matches[1]
	require.Equal(t, 9003, undated.ID)
	require.Nil(t, undated.Date)
	require.Empty(t, undated.Maps)
	require.InDelta(t, 0.5, *undated.Team1Score, 0)
	require.InDelta(t, 2.5, *undated.Team2Score, 0)

	_, missing := rgl.ParseTeamPage(fixture(t, "team_1002.html"), league.Team{ID: 1002}, time.UTC)
	require.False(t, missing)
}

func TestScrape(t *testing.T) {
	var agents []string

	serve := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			agents = append(agents, r.UserAgent())
			http.ServeFile(w, r, filepath.Join("testdata", name))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Public/Regions.aspx", serve("regions.html"))
	mux.HandleFunc("/Public/LeagueTable.aspx", func(w http.ResponseWriter, r *http.Request) {
		serve("league_table_" + r.URL.Query().Get("s") + ".html")(w, r)
	})
	mux.HandleFunc("/Public/Team.aspx", func(w http.ResponseWriter, r *http.Request) {
		serve("team_" + r.URL.Query().Get("t") + ".html")(w, r)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	scraper := rgl.NewScraper(rgl.NewClient(server.URL, "test agent", 0), time.UTC)

	snapshot, errScrape := scraper.Scrape(t.Context())
	require.NoError(t, errScrape)

	require.Len(t, snapshot.Seasons, 2)
	require.Equal(t, []league.Division{{ID: 555, Name: "Invite"}}, snapshot.Divisions)
	require.Equal(t, []league.Team{
		{ID: 1001, Name: "Froyotech", RegionID: 40, SeasonID: 10, LeagueID: 555},
		{ID: 1002, Name: "Ascent", RegionID: 40, SeasonID: 11},
		{ID: 2001, Name: "Unplaced", SeasonID: 11},
	}, snapshot.Teams)
	require.Len(t, snapshot.Roster, 2)
	require.Len(t, snapshot.Matches, 2)
	require.False(t, snapshot.UpdatedOn.IsZero())

	// regions, two league tables and the two team pages with a region.
	require.Len(t, agents, 5)

	for _, agent := range agents {
		require.Equal(t, "test agent", agent)
	}
}

func TestScrapeRegionsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, errScrape := rgl.NewScraper(rgl.NewClient(server.URL, "", 0), time.UTC).Scrape(t.Context())
	require.ErrorIs(t, errScrape, rgl.ErrStatus)
}
