package puckdump

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LeagueModule is the directory name of the league export module. Its
// processed document is the anchor every other module joins against.
const LeagueModule = "league_dump"

// LeagueDocument is the processed output of the league module.
type LeagueDocument struct {
	LeagueInfo LeagueInfo `json:"league_info"`
	Teams      []Team     `json:"teams"`
	Scoring    Scoring    `json:"scoring"`
}

// DumpLeague exports league metadata, settings and teams. It also refreshes
// _meta/league_profile.json, which later modules use to resolve team names.
func (d *Dumper) DumpLeague(ctx context.Context, opts DumpOptions) (*LeagueDocument, error) {
	rc, err := d.beginRun(opts, LeagueModule)
	if err != nil {
		return nil, err
	}

	fetch := func(name string, get func(context.Context, string) ([]byte, error)) (map[string]any, error) {
		data, err := get(ctx, opts.LeagueKey)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		if _, err := rc.writeRaw(name, data); err != nil {
			return nil, err
		}
		return parsePayload(data)
	}

	metaPayload, err := fetch("league_meta", d.client.LeagueMeta)
	if err != nil {
		return nil, err
	}
	settingsPayload, err := fetch("league_settings", d.client.LeagueSettings)
	if err != nil {
		return nil, err
	}
	teamsPayload, err := fetch("league_teams", d.client.LeagueTeams)
	if err != nil {
		return nil, err
	}

	meta, _, _ := extractLeague(metaPayload)
	_, settings, _ := extractLeague(settingsPayload)
	_, _, rawTeams := extractLeague(teamsPayload)

	doc := &LeagueDocument{
		LeagueInfo: NormalizeLeagueInfo(meta, settings),
		Teams:      NormalizeTeams(rawTeams),
		Scoring:    NormalizeScoring(settings),
	}
	if doc.LeagueInfo.LeagueKey == "" {
		return nil, fmt.Errorf("league %s: metadata payload had no league node", opts.LeagueKey)
	}

	processedPath, err := rc.writeProcessed("league", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("league", leagueSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	if _, err := UpdateLeagueProfile(rc.paths, rc.stamp, doc.LeagueInfo.Name, doc.Teams); err != nil {
		return nil, err
	}

	d.logger.Info("league exported",
		zap.String("league_key", doc.LeagueInfo.LeagueKey),
		zap.String("name", doc.LeagueInfo.Name),
		zap.Int("teams", len(doc.Teams)))

	if err := d.finishRun(rc, opts, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

func leagueSheets(doc *LeagueDocument) []sheetDef {
	info := sheetDef{
		Name:    "League",
		Headers: []string{"field", "value"},
		Widths:  map[string]float64{"field": 24, "value": 40},
	}
	addInfo := func(field string, value any) {
		info.Rows = append(info.Rows, []any{field, value})
	}
	li := doc.LeagueInfo
	addInfo("league_key", li.LeagueKey)
	addInfo("name", li.Name)
	addInfo("season", derefInt(li.Season))
	addInfo("num_teams", derefInt(li.NumTeams))
	addInfo("scoring_type", li.ScoringType)
	addInfo("start_date", li.StartDate)
	addInfo("end_date", li.EndDate)
	addInfo("start_week", derefInt(li.StartWeek))
	addInfo("end_week", derefInt(li.EndWeek))
	addInfo("current_week", derefInt(li.CurrentWeek))
	addInfo("draft_status", li.DraftStatus)
	addInfo("waiver_type", li.WaiverType)
	addInfo("trade_end_date", li.TradeEndDate)

	teams := sheetDef{
		Name: "Teams",
		Headers: []string{
			"team_key", "team_id", "name", "manager", "division",
			"draft_position", "waiver_priority", "faab_balance",
			"moves", "trades", "clinched_playoffs",
		},
		Widths: map[string]float64{"team_key": 18, "name": 28, "manager": 20},
	}
	for _, t := range doc.Teams {
		teams.Rows = append(teams.Rows, []any{
			t.TeamKey, derefInt(t.TeamID), t.Name, t.Manager.Nickname, t.Division,
			derefInt(t.DraftPosition), derefInt(t.WaiverPriority), derefInt(t.FAABBalance),
			derefInt(t.Moves), derefInt(t.Trades), derefBool(t.ClinchedPlayoffs),
		})
	}

	scoring := sheetDef{
		Name:    "Scoring",
		Headers: []string{"stat_id", "name", "display_name", "position_type", "sort_order"},
		Widths:  map[string]float64{"name": 28, "display_name": 16},
	}
	for _, c := range doc.Scoring.StatCategories {
		m, ok := asMap(c)
		if !ok {
			continue
		}
		scoring.Rows = append(scoring.Rows, []any{
			toString(m["stat_id"]), toString(m["name"]), toString(m["display_name"]),
			toString(m["position_type"]), toString(m["sort_order"]),
		})
	}

	positions := sheetDef{
		Name:    "Roster Positions",
		Headers: []string{"position", "position_type", "count"},
	}
	for _, p := range doc.Scoring.RosterPositions {
		m, ok := asMap(p)
		if !ok {
			continue
		}
		positions.Rows = append(positions.Rows, []any{
			toString(m["position"]), toString(m["position_type"]), derefInt(toInt(m["count"])),
		})
	}

	return []sheetDef{info, teams, scoring, positions}
}

// derefInt and derefBool keep Excel cells empty, not zero, for absent values.
func derefInt(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefBool(v *bool) any {
	if v == nil {
		return ""
	}
	return *v
}
