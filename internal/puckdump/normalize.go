package puckdump

// The normalized schema is the stable contract between dump runs and
// downstream consumers: raw payloads may drift with the API, processed
// files keep these shapes.

// Manager is the team manager subset kept in the processed schema.
type Manager struct {
	GUID     string `json:"guid,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Team is the normalized form of one league team.
type Team struct {
	TeamKey          string  `json:"team_key"`
	TeamID           *int64  `json:"team_id"`
	Name             string  `json:"name"`
	Manager          Manager `json:"manager"`
	Logo             string  `json:"logo,omitempty"`
	Division         string  `json:"division,omitempty"`
	DraftPosition    *int64  `json:"draft_position"`
	WaiverPriority   *int64  `json:"waiver_priority"`
	FAABBalance      *int64  `json:"faab_balance"`
	Moves            *int64  `json:"moves"`
	Trades           *int64  `json:"trades"`
	ClinchedPlayoffs *bool   `json:"clinched_playoffs"`
}

// LeagueInfo is the normalized league header: metadata joined with the
// settings fields operators actually look at.
type LeagueInfo struct {
	LeagueKey        string `json:"league_key"`
	LeagueID         *int64 `json:"league_id"`
	Name             string `json:"name"`
	Season           *int64 `json:"season"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
	ScoringType      string `json:"scoring_type,omitempty"`
	DraftStatus      string `json:"draft_status,omitempty"`
	NumTeams         *int64 `json:"num_teams"`
	CurrentWeek      *int64 `json:"current_week"`
	StartWeek        *int64 `json:"start_week"`
	EndWeek          *int64 `json:"end_week"`
	IsPrivate        bool   `json:"is_private"`
	AllowDraftTrades bool   `json:"allow_draft_trades"`
	WaiverType       string `json:"waiver_type,omitempty"`
	WaiverBudget     *int64 `json:"waiver_budget,omitempty"`
	TradeEndDate     string `json:"trade_end_date,omitempty"`
}

// Scoring keeps the settings nodes that define how the league scores,
// passed through as-is: their inner shape is already stable per season.
type Scoring struct {
	StatCategories  []any `json:"stat_categories"`
	StatModifiers   []any `json:"stat_modifiers"`
	RosterPositions []any `json:"roster_positions"`
	Tiebreakers     []any `json:"tiebreakers"`
}

// NormalizeLeagueInfo builds the league header from a meta map and the
// settings node.
func NormalizeLeagueInfo(meta, settings map[string]any) LeagueInfo {
	return LeagueInfo{
		LeagueKey:        toString(meta["league_key"]),
		LeagueID:         toInt(meta["league_id"]),
		Name:             toString(meta["name"]),
		Season:           toInt(meta["season"]),
		StartDate:        toString(meta["start_date"]),
		EndDate:          toString(meta["end_date"]),
		ScoringType:      toString(meta["scoring_type"]),
		DraftStatus:      toString(meta["draft_status"]),
		NumTeams:         toInt(meta["num_teams"]),
		CurrentWeek:      toInt(meta["current_week"]),
		StartWeek:        toInt(meta["start_week"]),
		EndWeek:          toInt(meta["end_week"]),
		IsPrivate:        toBool(meta["is_private"]),
		AllowDraftTrades: toBool(settings["allow_draft_trades"]),
		WaiverType:       toString(settings["waiver_type"]),
		WaiverBudget:     toInt(settings["waiver_budget"]),
		TradeEndDate:     toString(settings["trade_end_date"]),
	}
}

// NormalizeTeams converts flattened raw team maps into the stable schema.
func NormalizeTeams(raw []map[string]any) []Team {
	out := make([]Team, 0, len(raw))
	for _, t := range raw {
		team := Team{
			TeamKey:        toString(t["team_key"]),
			TeamID:         toInt(t["team_id"]),
			Name:           toString(t["name"]),
			DraftPosition:  toInt(t["draft_position"]),
			WaiverPriority: toInt(t["waiver_priority"]),
			FAABBalance:    toInt(t["faab_balance"]),
			Division:       toString(t["division"]),
		}
		if team.Division == "" {
			team.Division = toString(t["division_name"])
		}
		if team.Moves = toInt(t["number_of_moves"]); team.Moves == nil {
			team.Moves = toInt(t["moves"])
		}
		if team.Trades = toInt(t["number_of_trades"]); team.Trades == nil {
			team.Trades = toInt(t["trades"])
		}
		if v, ok := t["clinched_playoffs"]; ok {
			clinched := toBool(v)
			team.ClinchedPlayoffs = &clinched
		}

		team.Manager = extractManager(t)
		team.Logo = extractLogo(t)
		out = append(out, team)
	}
	return out
}

func extractManager(t map[string]any) Manager {
	var node map[string]any
	if managers, ok := asMap(t["managers"]); ok {
		for _, wrap := range managers {
			if w, ok := asMap(wrap); ok {
				if m, ok := asMap(w["manager"]); ok {
					node = m
					break
				}
			}
		}
	} else if list, ok := asSlice(t["managers"]); ok && len(list) > 0 {
		if w, ok := asMap(list[0]); ok {
			if m, ok := asMap(w["manager"]); ok {
				node = m
			} else {
				node = w
			}
		}
	} else if m, ok := asMap(t["manager"]); ok {
		node = m
	}
	if node == nil {
		return Manager{}
	}
	return Manager{
		GUID:     toString(node["guid"]),
		Nickname: toString(node["nickname"]),
		Email:    toString(node["email"]),
	}
}

func extractLogo(t map[string]any) string {
	if logos, ok := asSlice(t["team_logos"]); ok && len(logos) > 0 {
		if wrap, ok := asMap(logos[0]); ok {
			if logo, ok := asMap(wrap["team_logo"]); ok {
				return toString(logo["url"])
			}
			return toString(wrap["url"])
		}
	}
	return toString(t["logo"])
}

// NormalizeScoring lifts the scoring-relevant settings nodes.
func NormalizeScoring(settings map[string]any) Scoring {
	s := Scoring{
		StatCategories:  settingsList(settings, "stat_categories", "stats", "stat"),
		StatModifiers:   settingsList(settings, "stat_modifiers", "stats", "stat"),
		RosterPositions: settingsList(settings, "roster_positions", "", "roster_position"),
		Tiebreakers:     nil,
	}
	if tb, ok := asSlice(settings["tiebreakers"]); ok {
		s.Tiebreakers = tb
	} else if tb, ok := asSlice(settings["tiebreaker_rules"]); ok {
		s.Tiebreakers = tb
	}
	for _, p := range []*[]any{&s.StatCategories, &s.StatModifiers, &s.RosterPositions, &s.Tiebreakers} {
		if *p == nil {
			*p = []any{}
		}
	}
	return s
}

// settingsList digs a settings node that may be a plain list or wrapped as
// {outer: {inner: [{wrap: {...}}, ...]}}.
func settingsList(settings map[string]any, outer, inner, wrap string) []any {
	node := settings[outer]
	if m, ok := asMap(node); ok && inner != "" {
		node = m[inner]
	}
	list, ok := asSlice(node)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		if m, ok := asMap(item); ok {
			if wrapped, ok := m[wrap]; ok {
				out = append(out, wrapped)
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// ScoringStatIDs lists the stat ids of the league's scoring categories, in
// category order. Standings reconstruction scores each of these per week.
func (s Scoring) ScoringStatIDs() []string {
	var ids []string
	for _, c := range s.StatCategories {
		if m, ok := asMap(c); ok {
			if id := toString(m["stat_id"]); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
