// Package rgl scrapes seasons, teams, rosters and match schedules from the rgl.gg site.
package rgl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"go.uber.org/ratelimit"
)

var (
	ErrRequest = errors.New("failed to query rgl")
	ErrStatus  = errors.New("unexpected rgl response status")
	ErrParse   = errors.New("failed to parse rgl page")
)

const (
	DefaultBaseURL   = "https://rgl.gg"
	DefaultUserAgent = "Rgl Retriever"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    ratelimit.Limiter
}

// NewClient creates a client issuing at most one request per interval. A zero interval disables
// pacing.
func NewClient(baseURL string, userAgent string, interval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	limiter := ratelimit.NewUnlimited()
	if interval > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(interval))
	}

	return &Client{
		httpClient: &http.Client{Timeout: time.Second * 15},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    limiter,
	}
}

func (c *Client) document(ctx context.Context, path string) (*goquery.Document, error) {
	c.limiter.Take()

	request, errNewRequest := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if errNewRequest != nil {
		return nil, errors.Join(errNewRequest, ErrRequest)
	}

	request.Header.Set("User-Agent", c.userAgent)

	response, errDoRequest := c.httpClient.Do(request)
	if errDoRequest != nil {
		return nil, errors.Join(errDoRequest, ErrRequest)
	}

	defer log.Closer(response.Body)

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %d", ErrStatus, path, response.StatusCode)
	}

	document, errDocumentReader := goquery.NewDocumentFromReader(response.Body)
	if errDocumentReader != nil {
		return nil, errors.Join(errDocumentReader, ErrParse)
	}

	return document, nil
}

func (c *Client) Seasons(ctx context.Context) ([]league.Season, error) {
	doc, errDoc := c.document(ctx, "/Public/Regions.aspx")
	if errDoc != nil {
		return nil, errDoc
	}

	return ParseSeasons(doc), nil
}

func (c *Client) LeagueTable(ctx context.Context, seasonID int) ([]league.Team, error) {
	doc, errDoc := c.document(ctx, fmt.Sprintf("/Public/LeagueTable.aspx?s=%d", seasonID))
	if errDoc != nil {
		return nil, errDoc
	}

	return ParseLeagueTable(doc, seasonID), nil
}

func (c *Client) TeamPage(ctx context.Context, team league.Team, location *time.Location) (TeamPage, bool, error) {
	doc, errDoc := c.document(ctx, fmt.Sprintf("/Public/Team.aspx?t=%d&r=%d", team.ID, team.RegionID))
	if errDoc != nil {
		return TeamPage{}, false, errDoc
	}

	page, found := ParseTeamPage(doc, team, location)

	return page, found, nil
}

// Scraper crawls the whole site into a snapshot.
type Scraper struct {
	client   *Client
	location *time.Location
	now      func() time.Time
}

// NewScraper creates a scraper. Dates on the site carry no zone and are read in location.
func NewScraper(client *Client, location *time.Location) *Scraper {
	if location == nil {
		location = time.Local
	}

	return &Scraper{client: client, location: location, now: time.Now}
}

// Scrape walks the regions page, every season's league table and then every team page. Only the
// regions page is required, failures on individual tables or teams are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context) (league.Snapshot, error) {
	seasons, errSeasons := s.client.Seasons(ctx)
	if errSeasons != nil {
		return league.Snapshot{}, errSeasons
	}

	snapshot := league.Snapshot{Seasons: seasons}

	// A team listed in several seasons keeps the last one seen.
	teams := map[int]league.Team{}

	for _, season := range seasons {
		if errCtx := ctx.Err(); errCtx != nil {
			return league.Snapshot{}, errCtx
		}

		seasonTeams, errTable := s.client.LeagueTable(ctx, season.ID)
		if errTable != nil {
			slog.Error("Failed to fetch league table", slog.Int("season_id", season.ID), log.ErrAttr(errTable))

			continue
		}

		slog.Info("Found teams", slog.String("season", season.Name), slog.Int("count", len(seasonTeams)))

		for _, team := range seasonTeams {
			teams[team.ID] = team
		}
	}

	divisions := map[int]league.Division{}

	for _, team := range sortedByID(teams, func(t league.Team) int { return t.ID }) {
		if errCtx := ctx.Err(); errCtx != nil {
			return league.Snapshot{}, errCtx
		}

		if team.RegionID == 0 {
			snapshot.Teams = append(snapshot.Teams, team)

			continue
		}

		page, found, errPage := s.client.TeamPage(ctx, team, s.location)
		if errPage != nil {
			slog.Error("Failed to fetch team", slog.Int("team_id", team.ID), log.ErrAttr(errPage))
			snapshot.Teams = append(snapshot.Teams, team)

			continue
		}

		if !found {
			slog.Info("No league link for team, skipping it", slog.Int("team_id", team.ID))
			snapshot.Teams = append(snapshot.Teams, team)

			continue
		}

		team.LeagueID = page.Division.ID
		divisions[page.Division.ID] = page.Division

		snapshot.Teams = append(snapshot.Teams, team)
		snapshot.Roster = append(snapshot.Roster, page.Roster...)
		snapshot.Matches = append(snapshot.Matches, page.Matches...)
	}

	snapshot.Divisions = sortedByID(divisions, func(d league.Division) int { return d.ID })
	snapshot.Matches = snapshot.UniqueMatches()
	snapshot.UpdatedOn = s.now()

	slog.Info("Scraped league", slog.Int("seasons", len(snapshot.Seasons)), slog.Int("teams", len(snapshot.Teams)),
		slog.Int("roster", len(snapshot.Roster)), slog.Int("matches", len(snapshot.Matches)))

	return snapshot, nil
}
