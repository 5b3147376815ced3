package puckdump

import "testing"

func TestNormalizeTeams(t *testing.T) {
	_, _, raw := extractLeague(decode(t, leagueTeamsFixture))
	teams := NormalizeTeams(raw)
	if len(teams) != 2 {
		t.Fatalf("got %d teams, want 2", len(teams))
	}

	first := teams[0]
	if first.TeamKey != "nhl.l.12345.t.1" || first.Name != "Ice Holes" {
		t.Errorf("team 0 = %+v", first)
	}
	if first.TeamID == nil || *first.TeamID != 1 {
		t.Errorf("TeamID = %v", first.TeamID)
	}
	if first.Moves == nil || *first.Moves != 12 {
		t.Errorf("Moves = %v, want 12 from number_of_moves", first.Moves)
	}
	if first.Trades == nil || *first.Trades != 1 {
		t.Errorf("Trades = %v", first.Trades)
	}
	if first.Manager.Nickname != "sam" || first.Manager.GUID != "G1" {
		t.Errorf("Manager = %+v", first.Manager)
	}
	if first.Logo != "https://img/1.png" {
		t.Errorf("Logo = %q", first.Logo)
	}
	if first.ClinchedPlayoffs != nil {
		t.Errorf("ClinchedPlayoffs should be unset, got %v", *first.ClinchedPlayoffs)
	}

	second := teams[1]
	if second.ClinchedPlayoffs == nil || !*second.ClinchedPlayoffs {
		t.Errorf("team 1 ClinchedPlayoffs = %v, want true", second.ClinchedPlayoffs)
	}
}

func TestNormalizeTeamsMovesFallback(t *testing.T) {
	teams := NormalizeTeams([]map[string]any{{
		"team_key": "nhl.l.1.t.9",
		"name":     "Fallback FC",
		"moves":    "7",
	}})
	if teams[0].Moves == nil || *teams[0].Moves != 7 {
		t.Errorf("Moves = %v, want 7 from legacy field", teams[0].Moves)
	}
}

func TestNormalizeLeagueInfo(t *testing.T) {
	meta, _, _ := extractLeague(decode(t, leagueTeamsFixture))
	settings := map[string]any{
		"waiver_type":    "FR",
		"waiver_budget":  "100",
		"trade_end_date": "2026-02-25",
	}
	info := NormalizeLeagueInfo(meta, settings)

	if info.LeagueKey != "nhl.l.12345" || info.Name != "Test League" {
		t.Errorf("info = %+v", info)
	}
	if info.Season == nil || *info.Season != 2025 {
		t.Errorf("Season = %v", info.Season)
	}
	if info.CurrentWeek == nil || *info.CurrentWeek != 10 {
		t.Errorf("CurrentWeek = %v", info.CurrentWeek)
	}
	if info.WaiverType != "FR" {
		t.Errorf("WaiverType = %q", info.WaiverType)
	}
	if info.WaiverBudget == nil || *info.WaiverBudget != 100 {
		t.Errorf("WaiverBudget = %v", info.WaiverBudget)
	}
}

func TestNormalizeScoring(t *testing.T) {
	settings := decode(t, `{
		"stat_categories": {"stats": [
			{"stat": {"stat_id": "1", "name": "Goals"}},
			{"stat": {"stat_id": "2", "name": "Assists"}}
		]},
		"roster_positions": [
			{"roster_position": {"position": "C", "count": 2}},
			{"roster_position": {"position": "G", "count": 2}}
		]
	}`)
	scoring := NormalizeScoring(settings)

	if len(scoring.StatCategories) != 2 {
		t.Fatalf("StatCategories = %v", scoring.StatCategories)
	}
	if len(scoring.RosterPositions) != 2 {
		t.Errorf("RosterPositions = %v", scoring.RosterPositions)
	}
	if scoring.StatModifiers == nil || scoring.Tiebreakers == nil {
		t.Error("absent nodes should normalize to empty slices, not nil")
	}

	ids := scoring.ScoringStatIDs()
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Errorf("ScoringStatIDs = %v", ids)
	}
}
