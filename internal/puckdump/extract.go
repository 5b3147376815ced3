package puckdump

import (
	"encoding/json"
	"strconv"
)

// Yahoo's fantasy_content JSON interleaves three shapes for the same data:
// plain objects, lists of one-key objects, and numerically-keyed containers
// with a "count" field. Values that are logically numbers often arrive as
// strings. The helpers below absorb all of that so the normalizers can work
// with one shape.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// toInt coerces strings, floats and ints; returns nil when the value is
// absent or not numeric.
func toInt(v any) *int64 {
	switch x := v.(type) {
	case float64:
		n := int64(x)
		return &n
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return &n
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return &n
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// toBool handles Yahoo's "1"/"0" flags alongside real booleans.
func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "1" || x == "true"
	case float64:
		return x != 0
	}
	return false
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// flattenSingletons merges a list of one-key objects into a single map.
// Maps pass through, anything else yields an empty map.
func flattenSingletons(v any) map[string]any {
	out := map[string]any{}
	switch node := v.(type) {
	case map[string]any:
		for k, val := range node {
			out[k] = val
		}
	case []any:
		for _, item := range node {
			if m, ok := asMap(item); ok {
				for k, val := range m {
					out[k] = val
				}
			}
		}
	}
	return out
}

// countedItems walks a {"count": N, "0": {...}, "1": {...}} container and
// returns the wrapped value under wrapKey for each index.
func countedItems(container any, wrapKey string) []any {
	m, ok := asMap(container)
	if !ok {
		return nil
	}
	count := 0
	if n := toInt(m["count"]); n != nil {
		count = int(*n)
	}
	var out []any
	for i := 0; i < count; i++ {
		wrap, ok := asMap(m[strconv.Itoa(i)])
		if !ok {
			continue
		}
		if v, ok := wrap[wrapKey]; ok {
			out = append(out, v)
		}
	}
	return out
}

// leagueEntries returns the league node's entries regardless of whether
// fantasy_content.league is an object or a list of one-key objects.
func leagueEntries(payload map[string]any) []map[string]any {
	fc, ok := asMap(payload["fantasy_content"])
	if !ok {
		return nil
	}
	switch league := fc["league"].(type) {
	case map[string]any:
		return []map[string]any{league}
	case []any:
		var out []map[string]any
		for _, entry := range league {
			if m, ok := asMap(entry); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

var leagueMetaFields = []string{
	"league_key", "league_id", "name", "season",
	"start_date", "end_date", "scoring_type", "draft_status",
	"num_teams", "current_week", "start_week", "end_week", "is_private",
}

// extractLeague pulls the meta fields, settings node and flattened team
// maps out of a league payload, tolerating both payload shapes.
func extractLeague(payload map[string]any) (meta, settings map[string]any, teams []map[string]any) {
	meta = map[string]any{}
	settings = map[string]any{}

	for _, entry := range leagueEntries(payload) {
		if len(meta) == 0 {
			for _, f := range []string{"league_key", "name", "season", "num_teams"} {
				if _, ok := entry[f]; ok {
					for _, field := range leagueMetaFields {
						if v, ok := entry[field]; ok {
							meta[field] = v
						}
					}
					break
				}
			}
		}
		if s, ok := entry["settings"]; ok {
			// Settings arrive either as an object or a one-element list.
			if m, ok := asMap(s); ok {
				settings = m
			} else if list, ok := asSlice(s); ok && len(list) > 0 {
				if m, ok := asMap(list[0]); ok {
					settings = m
				}
			}
		}
		if container, ok := entry["teams"]; ok {
			for _, teamNode := range countedItems(container, "team") {
				teams = append(teams, flattenSingletons(firstElement(teamNode)))
			}
		}
	}
	return meta, settings, teams
}

// firstElement unwraps Yahoo's team arrays, whose first element is the list
// of singleton field dicts; plain values pass through.
func firstElement(v any) any {
	if list, ok := asSlice(v); ok && len(list) > 0 {
		if _, isInner := asSlice(list[0]); isInner {
			return list[0]
		}
		return list
	}
	return v
}

// scoreboardNode locates the scoreboard object in a scoreboard payload.
func scoreboardNode(payload map[string]any) map[string]any {
	for _, entry := range leagueEntries(payload) {
		if sb, ok := asMap(entry["scoreboard"]); ok {
			return sb
		}
	}
	return nil
}

// matchupNodes yields the matchup objects of a scoreboard node, whose usual
// shape is {"week": "N", "0": {"matchups": {...counted...}}}.
func matchupNodes(sb map[string]any) []map[string]any {
	if sb == nil {
		return nil
	}
	node0, ok := asMap(sb["0"])
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, m := range countedItems(node0["matchups"], "matchup") {
		if mm, ok := asMap(m); ok {
			out = append(out, mm)
		}
	}
	return out
}

// teamNode is one side of a matchup: the flattened core fields plus the
// per-stat values and the points total.
type teamNode struct {
	TeamKey string
	Meta    map[string]any
	Stats   map[string]float64
	Points  *float64
}

// parseTeamNode decodes a scoreboard "team" array: element 0 is the list of
// singleton core dicts, later elements carry team_stats / team_points.
func parseTeamNode(v any) (teamNode, bool) {
	list, ok := asSlice(v)
	if !ok || len(list) == 0 {
		return teamNode{}, false
	}
	flat := flattenSingletons(list[0])
	key := toString(flat["team_key"])
	if key == "" {
		return teamNode{}, false
	}

	node := teamNode{
		TeamKey: key,
		Meta: map[string]any{
			"team_key": key,
			"team_id":  flat["team_id"],
			"name":     flat["name"],
			"url":      flat["url"],
		},
		Stats: map[string]float64{},
	}

	for _, item := range list[1:] {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		if statsBlock, ok := asMap(m["team_stats"]); ok {
			if stats, ok := asSlice(statsBlock["stats"]); ok {
				for _, s := range stats {
					wrap, ok := asMap(s)
					if !ok {
						continue
					}
					stat, ok := asMap(wrap["stat"])
					if !ok {
						continue
					}
					id := toString(stat["stat_id"])
					if id == "" {
						continue
					}
					if f, ok := toFloat(stat["value"]); ok {
						node.Stats[id] = f
					}
				}
			}
		}
		if pointsBlock, ok := asMap(m["team_points"]); ok {
			if f, ok := toFloat(pointsBlock["total"]); ok {
				total := f
				node.Points = &total
			}
		}
	}
	return node, true
}

// statWinner is one entry of a matchup's stat_winners block.
type statWinner struct {
	WinnerTeamKey string
	IsTied        bool
}

func statWinners(matchup map[string]any) map[string]statWinner {
	out := map[string]statWinner{}
	winners, ok := asSlice(matchup["stat_winners"])
	if !ok {
		return out
	}
	for _, entry := range winners {
		wrap, ok := asMap(entry)
		if !ok {
			continue
		}
		sw, ok := asMap(wrap["stat_winner"])
		if !ok {
			continue
		}
		id := toString(sw["stat_id"])
		if id == "" {
			continue
		}
		out[id] = statWinner{
			WinnerTeamKey: toString(sw["winner_team_key"]),
			IsTied:        toBool(sw["is_tied"]),
		}
	}
	return out
}
