package rgl

import (
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	teamRe        = regexp.MustCompile(`Team\.aspx.*t=([0-9]+)`)
	regionRe      = regexp.MustCompile(`r=([0-9]+)`)
	seasonRe      = regexp.MustCompile(`s=([0-9]+)`)
	playerRe      = regexp.MustCompile(`PlayerProfile\.aspx.*p=([0-9]+)`)
	leagueTableRe = regexp.MustCompile(`/Public/LeagueTable\.aspx`)
	leagueIDRe    = regexp.MustCompile(`LeagueTable\.aspx.*g=([0-9]+)`)
	matchRe       = regexp.MustCompile(`Match\.aspx\?.*m=([0-9]+)`)
	dateRe        = regexp.MustCompile(`[0-9]{1,2}/[0-9]{1,2}/[0-9]{1,4}`)
	scoreRe       = regexp.MustCompile(`(-?\d{1,3}\.?\d{0,3})\s*-\s*(-?\d{1,3}\.?\d{0,3})`)
)

const (
	rosterDateLayout = "1/2/2006"
	matchDateLayout  = "1/2/2006 3:04 PM"
)

func hrefID(selection *goquery.Selection, pattern *regexp.Regexp) (int, bool) {
	href, found := selection.Attr("href")
	if !found {
		return 0, false
	}

	match := pattern.FindStringSubmatch(href)
	if match == nil {
		return 0, false
	}

	value, errConv := strconv.Atoi(match[1])
	if errConv != nil {
		return 0, false
	}

	return value, true
}

// matchingLinks returns every link whose href matches pattern.
func matchingLinks(selection *goquery.Selection, pattern *regexp.Regexp) *goquery.Selection {
	return selection.Find("a[href]").FilterFunction(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")

		return pattern.MatchString(href)
	})
}

// plainCells returns the trimmed text of every cell without a link that matches pattern.
func plainCells(row *goquery.Selection, pattern *regexp.Regexp) []string {
	var cells []string

	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		if cell.Find("a").Length() > 0 {
			return
		}

		text := strings.TrimSpace(cell.Text())
		if pattern.MatchString(text) {
			cells = append(cells, text)
		}
	})

	return cells
}

// ParseSeasons reads the season links of the regions page.
func ParseSeasons(doc *goquery.Document) []league.Season {
	seasons := map[int]league.Season{}

	matchingLinks(doc.Selection, leagueTableRe).Each(func(_ int, link *goquery.Selection) {
		seasonID, found := hrefID(link, seasonRe)
		if !found {
			return
		}

		seasons[seasonID] = league.Season{ID: seasonID, Name: strings.TrimSpace(link.Text())}
	})

	return sortedByID(seasons, func(s league.Season) int { return s.ID })
}

// ParseLeagueTable reads the teams listed on a season's league table.
func ParseLeagueTable(doc *goquery.Document, seasonID int) []league.Team {
	teams := map[int]league.Team{}

	matchingLinks(doc.Selection, teamRe).Each(func(_ int, link *goquery.Selection) {
		teamID, found := hrefID(link, teamRe)
		if !found {
			return
		}

		team := league.Team{ID: teamID, Name: strings.TrimSpace(link.Text()), SeasonID: seasonID}

		if regionID, hasRegion := hrefID(link, regionRe); hasRegion {
			team.RegionID = regionID
		}

		teams[teamID] = team
	})

	return sortedByID(teams, func(t league.Team) int { return t.ID })
}

// TeamPage is what a single team page contributes to the snapshot.
type TeamPage struct {
	Division league.Division
	Roster   []league.RosterEntry
	Matches  []league.OfficialMatch
}

// ParseTeamPage reads the division, roster and match history of a team. The team must carry its
// region and season, the division is taken from the page. Returns false when the page has no
// division link.
func ParseTeamPage(doc *goquery.Document, team league.Team, location *time.Location) (TeamPage, bool) {
	var page TeamPage

	divisionLink := matchingLinks(doc.Selection, leagueIDRe).First()

	leagueID, found := hrefID(divisionLink, leagueIDRe)
	if !found {
		return page, false
	}

	page.Division = league.Division{ID: leagueID, Name: strings.TrimSpace(divisionLink.Text())}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if matchingLinks(row, playerRe).Length() > 0 {
			entry, valid := rowToRosterEntry(row, location)
			if !valid {
				return
			}

			entry.TeamID = team.ID
			entry.RegionID = team.RegionID
			entry.SeasonID = team.SeasonID
			entry.LeagueID = leagueID

			page.Roster = append(page.Roster, entry)
		}

		if matchingLinks(row, matchRe).Length() > 0 {
			if match, valid := rowToMatch(row, location); valid {
				page.Matches = append(page.Matches, match)
			}
		}
	})

	return page, true
}

func rowToRosterEntry(row *goquery.Selection, location *time.Location) (league.RosterEntry, bool) {
	link := matchingLinks(row, playerRe).First()

	href, _ := link.Attr("href")

	match := playerRe.FindStringSubmatch(href)
	if match == nil {
		return league.RosterEntry{}, false
	}

	sid := steamid.New(match[1])
	if !sid.Valid() {
		slog.Debug("Invalid roster player id", slog.String("href", href))

		return league.RosterEntry{}, false
	}

	dates := plainCells(row, dateRe)
	if len(dates) == 0 {
		slog.Debug("No dates in roster row", slog.String("player_id", sid.String()))

		return league.RosterEntry{}, false
	}

	entry := league.RosterEntry{PlayerID: sid, Name: strings.TrimSpace(link.Text())}

	if joined, errJoined := time.ParseInLocation(rosterDateLayout, dateRe.FindString(dates[0]), location); errJoined == nil {
		entry.Joined = &joined
	}

	if len(dates) > 1 {
		if left, errLeft := time.ParseInLocation(rosterDateLayout, dateRe.FindString(dates[1]), location); errLeft == nil {
			entry.Left = &left
		}
	}

	return entry, true
}

func rowToMatch(row *goquery.Selection, location *time.Location) (league.OfficialMatch, bool) {
	matchID, found := hrefID(matchingLinks(row, matchRe).First(), matchRe)
	if !found {
		return league.OfficialMatch{}, false
	}

	var teamIDs []int

	matchingLinks(row, teamRe).Each(func(_ int, link *goquery.Selection) {
		if teamID, valid := hrefID(link, teamRe); valid {
			teamIDs = append(teamIDs, teamID)
		}
	})

	if len(teamIDs) < 2 {
		slog.Debug("Under 2 teams found in match row", slog.Int("match_id", matchID))

		return league.OfficialMatch{}, false
	}

	match := league.OfficialMatch{ID: matchID, Team1: teamIDs[0], Team2: teamIDs[1]}

	mapNames := map[string]struct{}{}

	row.Find("img").Each(func(_ int, img *goquery.Selection) {
		if title, hasTitle := img.Parent().Attr("title"); hasTitle && title != "" {
			mapNames[title] = struct{}{}
		}
	})

	match.Maps = slices.Sorted(maps.Keys(mapNames))

	if scores := plainCells(row, scoreRe); len(scores) > 0 {
		parts := scoreRe.FindStringSubmatch(scores[0])

		team1, err1 := strconv.ParseFloat(parts[1], 64)
		team2, err2 := strconv.ParseFloat(parts[2], 64)

		if err1 == nil && err2 == nil {
			match.Team1Score = &team1
			match.Team2Score = &team2
		}
	}

	if dates := plainCells(row, dateRe); len(dates) > 0 {
		fields := strings.Fields(dates[0])
		if len(fields) > 3 {
			fields = fields[:3]
		}

		if played, errParse := time.ParseInLocation(matchDateLayout, strings.Join(fields, " "), location); errParse == nil {
			match.Date = &played
		}
	}

	return match, true
}

func sortedByID[T any](values map[int]T, id func(T) int) []T {
	out := slices.Collect(maps.Values(values))

	slices.SortFunc(out, func(a, b T) int {
		return id(a) - id(b)
	})

	return out
}
