package puckdump

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// StandingsModule reconstructs week-by-week results from scoreboards
// instead of trusting the API's precomputed standings resource, which
// erases per-category history.
const StandingsModule = "standings_dump"

// StandingsOptions extends the shared options with the week window.
// Zero values mean "use the league's start and current week".
type StandingsOptions struct {
	DumpOptions
	SinceWeek   int
	ThroughWeek int
}

// Record is a head-to-head win/loss/tie line.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// MatchupTeamResult is one side of a weekly matchup after scoring.
type MatchupTeamResult struct {
	TeamKey        string             `json:"team_key"`
	Name           string             `json:"name"`
	Points         *float64           `json:"points,omitempty"`
	Stats          map[string]float64 `json:"stats"`
	CategoriesWon  int                `json:"categories_won"`
	CategoriesLost int                `json:"categories_lost"`
	CategoriesTied int                `json:"categories_tied"`
	Result         string             `json:"result"` // W, L or T
}

// MatchupSummary is one scored 1v1 matchup. StatWinners maps each scoring
// stat id to the winning team key, empty string meaning a tie.
type MatchupSummary struct {
	Week          int                 `json:"week"`
	WeekStart     string              `json:"week_start,omitempty"`
	WeekEnd       string              `json:"week_end,omitempty"`
	IsPlayoffs    bool                `json:"is_playoffs"`
	IsConsolation bool                `json:"is_consolation"`
	WinnerTeamKey string              `json:"winner_team_key,omitempty"`
	IsTied        bool                `json:"is_tied"`
	Teams         []MatchupTeamResult `json:"teams"`
	StatWinners   map[string]string   `json:"stat_winners"`
}

// WeeklyRow is the per-team flattening of a matchup, with the running
// overall record after that week. PrevOpponentKey is the same team's
// opponent from the most recent earlier week, empty on its first row.
type WeeklyRow struct {
	Week            int                `json:"week"`
	TeamKey         string             `json:"team_key"`
	TeamName        string             `json:"team_name"`
	OpponentKey     string             `json:"opponent_key"`
	OpponentName    string             `json:"opponent_name"`
	PrevOpponentKey string             `json:"prev_opponent_key,omitempty"`
	IsPlayoffs      bool               `json:"is_playoffs"`
	IsConsolation   bool               `json:"is_consolation"`
	Result          string             `json:"result"`
	CategoriesWon   int                `json:"categories_won"`
	CategoriesLost  int                `json:"categories_lost"`
	CategoriesTied  int                `json:"categories_tied"`
	Points          *float64           `json:"points,omitempty"`
	Stats           map[string]float64 `json:"stats"`
	RecordAfter     Record             `json:"record_after"`
}

// TeamAggregate is one team's totals over a phase of the season.
type TeamAggregate struct {
	TeamKey    string             `json:"team_key"`
	Name       string             `json:"name"`
	Weeks      int                `json:"weeks"`
	Record     Record             `json:"h2h_record"`
	StatTotals map[string]float64 `json:"stat_totals"`
	StatAvg    map[string]float64 `json:"avg_per_week"`
}

// PhaseAggregate covers either the regular season or the playoffs.
// StatRanks maps stat id to team key to rank, 1 being the highest total.
type PhaseAggregate struct {
	Teams     map[string]*TeamAggregate `json:"per_team"`
	StatRanks map[string]map[string]int `json:"per_stat_ranks"`
}

// StandingsDocument is the processed output of the standings module.
type StandingsDocument struct {
	LeagueKey      string           `json:"league_key"`
	SinceWeek      int              `json:"since_week"`
	ThroughWeek    int              `json:"through_week"`
	ScoringStatIDs []string         `json:"scoring_stat_ids"`
	Matchups       []MatchupSummary `json:"matchups"`
	Weekly         []WeeklyRow      `json:"weekly"`
	RegularSeason  PhaseAggregate   `json:"regular_season"`
	Playoffs       PhaseAggregate   `json:"playoffs"`
}

// DumpStandings fetches each week's scoreboard in the window and rebuilds
// matchup results, weekly rows and phase aggregates.
func (d *Dumper) DumpStandings(ctx context.Context, opts StandingsOptions) (*StandingsDocument, error) {
	league, err := LoadLeagueContext(opts.ExportDir, opts.LeagueKey)
	if err != nil {
		return nil, err
	}
	since, through, err := resolveWeekWindow(league.LeagueInfo, opts.SinceWeek, opts.ThroughWeek)
	if err != nil {
		return nil, err
	}

	rc, err := d.beginRun(opts.DumpOptions, StandingsModule)
	if err != nil {
		return nil, err
	}

	statIDs := league.Scoring.ScoringStatIDs()
	names := league.TeamNames()

	doc := &StandingsDocument{
		LeagueKey:      opts.LeagueKey,
		SinceWeek:      since,
		ThroughWeek:    through,
		ScoringStatIDs: statIDs,
		Matchups:       []MatchupSummary{},
	}

	for week := since; week <= through; week++ {
		data, err := d.client.Scoreboard(ctx, opts.LeagueKey, week)
		if err != nil {
			return nil, fmt.Errorf("fetch scoreboard week %d: %w", week, err)
		}
		if _, err := rc.writeRaw(fmt.Sprintf("scoreboard_week_%d", week), data); err != nil {
			return nil, err
		}
		payload, err := parsePayload(data)
		if err != nil {
			return nil, fmt.Errorf("scoreboard week %d: %w", week, err)
		}
		for _, matchup := range matchupNodes(scoreboardNode(payload)) {
			summary, ok := scoreMatchup(week, matchup, statIDs, names)
			if !ok {
				continue
			}
			doc.Matchups = append(doc.Matchups, summary)
		}
		d.logger.Debug("scoreboard processed", zap.Int("week", week))
	}

	doc.Weekly = weeklyRows(doc.Matchups)
	doc.RegularSeason = aggregatePhase(doc.Matchups, false, statIDs, names)
	doc.Playoffs = aggregatePhase(doc.Matchups, true, statIDs, names)

	processedPath, err := rc.writeProcessed("standings", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("standings", standingsSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	d.logger.Info("standings exported",
		zap.String("league_key", opts.LeagueKey),
		zap.Int("since_week", since),
		zap.Int("through_week", through),
		zap.Int("matchups", len(doc.Matchups)))

	if err := d.finishRun(rc, opts.DumpOptions, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveWeekWindow fills unset bounds from the league header and rejects
// inverted or out-of-range windows.
func resolveWeekWindow(info LeagueInfo, since, through int) (int, int, error) {
	if since == 0 {
		since = 1
		if info.StartWeek != nil && *info.StartWeek > 0 {
			since = int(*info.StartWeek)
		}
	}
	if through == 0 {
		switch {
		case info.CurrentWeek != nil && *info.CurrentWeek > 0:
			through = int(*info.CurrentWeek)
		case info.EndWeek != nil && *info.EndWeek > 0:
			through = int(*info.EndWeek)
		default:
			return 0, 0, fmt.Errorf("cannot determine through week: pass it explicitly")
		}
	}
	if info.EndWeek != nil && *info.EndWeek > 0 && through > int(*info.EndWeek) {
		through = int(*info.EndWeek)
	}
	if since < 1 || through < since {
		return 0, 0, fmt.Errorf("invalid week window %d..%d", since, through)
	}
	return since, through, nil
}

// scoreMatchup converts a raw matchup node into a scored summary. Matchups
// that are not exactly two parseable teams are skipped.
func scoreMatchup(week int, matchup map[string]any, statIDs []string, names map[string]string) (MatchupSummary, bool) {
	node0, ok := asMap(matchup["0"])
	if !ok {
		return MatchupSummary{}, false
	}
	var teams []teamNode
	for _, t := range countedItems(node0["teams"], "team") {
		if tn, ok := parseTeamNode(t); ok {
			teams = append(teams, tn)
		}
	}
	if len(teams) != 2 {
		return MatchupSummary{}, false
	}

	winners := statWinners(matchup)
	summary := MatchupSummary{
		Week:          week,
		WeekStart:     toString(matchup["week_start"]),
		WeekEnd:       toString(matchup["week_end"]),
		IsPlayoffs:    toBool(matchup["is_playoffs"]),
		IsConsolation: toBool(matchup["is_consolation"]),
		WinnerTeamKey: toString(matchup["winner_team_key"]),
		IsTied:        toBool(matchup["is_tied"]),
		StatWinners:   map[string]string{},
	}

	results := make([]MatchupTeamResult, 2)
	for i, tn := range teams {
		name := names[tn.TeamKey]
		if name == "" {
			name = toString(tn.Meta["name"])
		}
		results[i] = MatchupTeamResult{
			TeamKey: tn.TeamKey,
			Name:    name,
			Points:  tn.Points,
			Stats:   tn.Stats,
		}
	}

	for _, id := range statIDs {
		sw, present := winners[id]
		// An unreported winner for a scoring category counts as a tie
		// for both sides rather than guessing from raw values.
		if !present || sw.IsTied || sw.WinnerTeamKey == "" {
			summary.StatWinners[id] = ""
			results[0].CategoriesTied++
			results[1].CategoriesTied++
			continue
		}
		summary.StatWinners[id] = sw.WinnerTeamKey
		for i := range results {
			if results[i].TeamKey == sw.WinnerTeamKey {
				results[i].CategoriesWon++
			} else {
				results[i].CategoriesLost++
			}
		}
	}

	results[0].Result, results[1].Result = decideResults(results[0], results[1])
	summary.Teams = results
	return summary, true
}

// decideResults settles the matchup by category count, falling back to
// fantasy points for points-scored leagues.
func decideResults(a, b MatchupTeamResult) (string, string) {
	switch {
	case a.CategoriesWon > b.CategoriesWon:
		return "W", "L"
	case a.CategoriesWon < b.CategoriesWon:
		return "L", "W"
	}
	if a.CategoriesWon == 0 && a.CategoriesLost == 0 && a.Points != nil && b.Points != nil {
		switch {
		case *a.Points > *b.Points:
			return "W", "L"
		case *a.Points < *b.Points:
			return "L", "W"
		}
	}
	return "T", "T"
}

// weeklyRows flattens matchups into per-team rows with a running record
// and each team's previous-week opponent.
func weeklyRows(matchups []MatchupSummary) []WeeklyRow {
	records := map[string]Record{}
	prevOpp := map[string]string{}
	rows := []WeeklyRow{}

	ordered := make([]MatchupSummary, len(matchups))
	copy(ordered, matchups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Week < ordered[j].Week })

	for _, m := range ordered {
		for i, team := range m.Teams {
			opp := m.Teams[1-i]
			rec := records[team.TeamKey]
			switch team.Result {
			case "W":
				rec.Wins++
			case "L":
				rec.Losses++
			default:
				rec.Ties++
			}
			records[team.TeamKey] = rec

			rows = append(rows, WeeklyRow{
				Week:            m.Week,
				TeamKey:         team.TeamKey,
				TeamName:        team.Name,
				OpponentKey:     opp.TeamKey,
				OpponentName:    opp.Name,
				PrevOpponentKey: prevOpp[team.TeamKey],
				IsPlayoffs:      m.IsPlayoffs,
				IsConsolation:   m.IsConsolation,
				Result:          team.Result,
				CategoriesWon:   team.CategoriesWon,
				CategoriesLost:  team.CategoriesLost,
				CategoriesTied:  team.CategoriesTied,
				Points:          team.Points,
				Stats:           team.Stats,
				RecordAfter:     rec,
			})
		}
		for i, team := range m.Teams {
			prevOpp[team.TeamKey] = m.Teams[1-i].TeamKey
		}
	}
	return rows
}

// aggregatePhase totals one phase (playoffs or regular season) per team and
// ranks each stat's totals.
func aggregatePhase(matchups []MatchupSummary, playoffs bool, statIDs []string, names map[string]string) PhaseAggregate {
	agg := PhaseAggregate{
		Teams:     map[string]*TeamAggregate{},
		StatRanks: map[string]map[string]int{},
	}
	for _, m := range matchups {
		if m.IsPlayoffs != playoffs {
			continue
		}
		for _, team := range m.Teams {
			ta := agg.Teams[team.TeamKey]
			if ta == nil {
				name := names[team.TeamKey]
				if name == "" {
					name = team.Name
				}
				ta = &TeamAggregate{
					TeamKey:    team.TeamKey,
					Name:       name,
					StatTotals: map[string]float64{},
					StatAvg:    map[string]float64{},
				}
				agg.Teams[team.TeamKey] = ta
			}
			ta.Weeks++
			switch team.Result {
			case "W":
				ta.Record.Wins++
			case "L":
				ta.Record.Losses++
			default:
				ta.Record.Ties++
			}
			for id, v := range team.Stats {
				ta.StatTotals[id] += v
			}
		}
	}

	for _, ta := range agg.Teams {
		for id, total := range ta.StatTotals {
			ta.StatAvg[id] = total / float64(ta.Weeks)
		}
	}

	for _, id := range statIDs {
		type entry struct {
			key   string
			total float64
		}
		entries := make([]entry, 0, len(agg.Teams))
		for key, ta := range agg.Teams {
			entries = append(entries, entry{key: key, total: ta.StatTotals[id]})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].total != entries[j].total {
				return entries[i].total > entries[j].total
			}
			return entries[i].key < entries[j].key
		})
		ranks := make(map[string]int, len(entries))
		for i, e := range entries {
			// Equal totals share a rank.
			if i > 0 && e.total == entries[i-1].total {
				ranks[e.key] = ranks[entries[i-1].key]
			} else {
				ranks[e.key] = i + 1
			}
		}
		if len(ranks) > 0 {
			agg.StatRanks[id] = ranks
		}
	}
	return agg
}

func standingsSheets(doc *StandingsDocument) []sheetDef {
	weekly := sheetDef{
		Name: "Weekly",
		Headers: append([]string{
			"week", "team", "opponent", "result",
			"cats_won", "cats_lost", "cats_tied", "points", "playoffs",
		}, doc.ScoringStatIDs...),
		Widths: map[string]float64{"team": 28, "opponent": 28},
	}
	for _, r := range doc.Weekly {
		row := []any{
			r.Week, r.TeamName, r.OpponentName, r.Result,
			r.CategoriesWon, r.CategoriesLost, r.CategoriesTied, derefFloat(r.Points), r.IsPlayoffs,
		}
		for _, id := range doc.ScoringStatIDs {
			row = append(row, r.Stats[id])
		}
		weekly.Rows = append(weekly.Rows, row)
	}

	sheets := []sheetDef{weekly}
	for _, phase := range []struct {
		name string
		agg  PhaseAggregate
	}{
		{"Regular Season", doc.RegularSeason},
		{"Playoffs", doc.Playoffs},
	} {
		if len(phase.agg.Teams) == 0 {
			continue
		}
		sheet := sheetDef{
			Name:    phase.name,
			Headers: append([]string{"team", "weeks", "wins", "losses", "ties"}, doc.ScoringStatIDs...),
			Widths:  map[string]float64{"team": 28},
		}
		keys := make([]string, 0, len(phase.agg.Teams))
		for k := range phase.agg.Teams {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := phase.agg.Teams[keys[i]], phase.agg.Teams[keys[j]]
			if a.Record.Wins != b.Record.Wins {
				return a.Record.Wins > b.Record.Wins
			}
			return a.TeamKey < b.TeamKey
		})
		for _, k := range keys {
			ta := phase.agg.Teams[k]
			row := []any{ta.Name, ta.Weeks, ta.Record.Wins, ta.Record.Losses, ta.Record.Ties}
			for _, id := range doc.ScoringStatIDs {
				row = append(row, ta.StatTotals[id])
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
