package puckdump

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const PlayersModule = "players_dump"

// PlayerRow is one normalized league-pool player with season stats.
type PlayerRow struct {
	PlayerKey         string             `json:"player_key"`
	PlayerID          *int64             `json:"player_id"`
	Name              string             `json:"name"`
	NHLTeam           string             `json:"nhl_team,omitempty"`
	Position          string             `json:"position,omitempty"`
	PositionType      string             `json:"position_type,omitempty"`
	EligiblePositions []string           `json:"eligible_positions,omitempty"`
	Status            string             `json:"status,omitempty"`
	OwnershipType     string             `json:"ownership_type,omitempty"`
	OwnerTeamKey      string             `json:"owner_team_key,omitempty"`
	Stats             map[string]float64 `json:"stats"`
}

// PlayersDocument is the processed output of the players module.
type PlayersDocument struct {
	LeagueKey    string      `json:"league_key"`
	StatusFilter string      `json:"status_filter,omitempty"`
	Players      []PlayerRow `json:"players"`
}

// PlayersOptions extends the shared options with an availability filter
// (A, FA, W or T). Empty means the whole pool.
type PlayersOptions struct {
	DumpOptions
	Status string
}

// DumpPlayers pages through the league player pool with season stats.
func (d *Dumper) DumpPlayers(ctx context.Context, opts PlayersOptions) (*PlayersDocument, error) {
	rc, err := d.beginRun(opts.DumpOptions, PlayersModule)
	if err != nil {
		return nil, err
	}

	doc := &PlayersDocument{LeagueKey: opts.LeagueKey, StatusFilter: opts.Status, Players: []PlayerRow{}}

	for page, start := 0, 0; ; page, start = page+1, start+playersPageSize {
		data, err := d.client.LeaguePlayers(ctx, opts.LeagueKey, opts.Status, start)
		if err != nil {
			return nil, fmt.Errorf("fetch players page %d: %w", page, err)
		}
		if _, err := rc.writeRaw(fmt.Sprintf("players_page_%d", page), data); err != nil {
			return nil, err
		}
		payload, err := parsePayload(data)
		if err != nil {
			return nil, fmt.Errorf("players page %d: %w", page, err)
		}

		count := 0
		for _, entry := range leagueEntries(payload) {
			container, ok := entry["players"]
			if !ok {
				continue
			}
			nodes := countedItems(container, "player")
			count += len(nodes)
			for _, node := range nodes {
				if row, ok := parsePlayerRow(node); ok {
					doc.Players = append(doc.Players, row)
				}
			}
		}
		d.logger.Debug("players page fetched", zap.Int("page", page), zap.Int("count", count))
		if count < playersPageSize {
			break
		}
	}

	processedPath, err := rc.writeProcessed("players", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("players", playersSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	d.logger.Info("players exported",
		zap.String("league_key", opts.LeagueKey),
		zap.Int("players", len(doc.Players)))

	if err := d.finishRun(rc, opts.DumpOptions, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

// parsePlayerRow decodes one raw player node: element 0 is the singleton
// field list, later elements carry player_stats and ownership.
func parsePlayerRow(node any) (PlayerRow, bool) {
	list, ok := asSlice(node)
	if !ok || len(list) == 0 {
		return PlayerRow{}, false
	}
	flat := flattenSingletons(list[0])

	row := PlayerRow{
		PlayerKey:    toString(flat["player_key"]),
		PlayerID:     toInt(flat["player_id"]),
		NHLTeam:      toString(flat["editorial_team_abbr"]),
		Position:     toString(flat["display_position"]),
		PositionType: toString(flat["position_type"]),
		Status:       toString(flat["status"]),
		Stats:        map[string]float64{},
	}
	if row.PlayerKey == "" {
		return PlayerRow{}, false
	}
	if nameNode, ok := asMap(flat["name"]); ok {
		row.Name = toString(nameNode["full"])
	}
	if positions, ok := asSlice(flat["eligible_positions"]); ok {
		for _, p := range positions {
			if wrap, ok := asMap(p); ok {
				if pos := toString(wrap["position"]); pos != "" {
					row.EligiblePositions = append(row.EligiblePositions, pos)
				}
			} else if pos := toString(p); pos != "" {
				row.EligiblePositions = append(row.EligiblePositions, pos)
			}
		}
	}

	for _, item := range list[1:] {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		if statsBlock, ok := asMap(m["player_stats"]); ok {
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
						row.Stats[id] = f
					}
				}
			}
		}
		if ownership, ok := asMap(m["ownership"]); ok {
			row.OwnershipType = toString(ownership["ownership_type"])
			row.OwnerTeamKey = toString(ownership["owner_team_key"])
		}
	}
	return row, true
}

func playersSheets(doc *PlayersDocument) []sheetDef {
	statIDs := map[string]bool{}
	for _, p := range doc.Players {
		for id := range p.Stats {
			statIDs[id] = true
		}
	}
	ids := sortedKeys(statIDs)

	sheet := sheetDef{
		Name: "Players",
		Headers: append([]string{
			"player_key", "name", "nhl_team", "position", "status", "ownership", "owner",
		}, ids...),
		Widths: map[string]float64{"player_key": 16, "name": 26, "owner": 18},
	}
	for _, p := range doc.Players {
		row := []any{p.PlayerKey, p.Name, p.NHLTeam, p.Position, p.Status, p.OwnershipType, p.OwnerTeamKey}
		for _, id := range ids {
			if v, ok := p.Stats[id]; ok {
				row = append(row, v)
			} else {
				row = append(row, "")
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return []sheetDef{sheet}
}

// sortedKeys orders stat ids numerically when possible so workbook columns
// line up across runs.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := toInt(keys[i]), toInt(keys[j])
		if a != nil && b != nil {
			return *a < *b
		}
		return keys[i] < keys[j]
	})
	return keys
}
