package puckdump

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const RostersModule = "rosters_dump"

// RosterSlot is one player occupying a lineup slot on a team.
type RosterSlot struct {
	TeamKey          string `json:"team_key"`
	TeamName         string `json:"team_name,omitempty"`
	PlayerKey        string `json:"player_key"`
	PlayerName       string `json:"player_name,omitempty"`
	NHLTeam          string `json:"nhl_team,omitempty"`
	Position         string `json:"position,omitempty"`
	SelectedPosition string `json:"selected_position,omitempty"`
	Status           string `json:"status,omitempty"`
}

// RostersDocument is the processed output of the rosters module.
type RostersDocument struct {
	LeagueKey string       `json:"league_key"`
	Date      string       `json:"date,omitempty"`
	Slots     []RosterSlot `json:"slots"`
}

// RostersOptions extends the shared options with the roster date
// (YYYY-MM-DD). Empty means today's rosters.
type RostersOptions struct {
	DumpOptions
	Date string
}

// DumpRosters fetches every team's roster for the date. Team keys come
// from the league export.
func (d *Dumper) DumpRosters(ctx context.Context, opts RostersOptions) (*RostersDocument, error) {
	league, err := LoadLeagueContext(opts.ExportDir, opts.LeagueKey)
	if err != nil {
		return nil, err
	}
	if len(league.Teams) == 0 {
		return nil, fmt.Errorf("league export for %s lists no teams", opts.LeagueKey)
	}

	rc, err := d.beginRun(opts.DumpOptions, RostersModule)
	if err != nil {
		return nil, err
	}

	doc := &RostersDocument{LeagueKey: opts.LeagueKey, Date: opts.Date, Slots: []RosterSlot{}}
	seen := map[string]bool{}

	for _, team := range league.Teams {
		data, err := d.client.TeamRoster(ctx, team.TeamKey, opts.Date)
		if err != nil {
			return nil, fmt.Errorf("fetch roster %s: %w", team.TeamKey, err)
		}
		rawName := "roster_" + strings.ReplaceAll(team.TeamKey, ".", "_")
		if _, err := rc.writeRaw(rawName, data); err != nil {
			return nil, err
		}
		payload, err := parsePayload(data)
		if err != nil {
			return nil, fmt.Errorf("roster %s: %w", team.TeamKey, err)
		}

		for _, slot := range extractRosterSlots(payload, team) {
			key := slot.TeamKey + "/" + slot.PlayerKey
			if seen[key] {
				continue
			}
			seen[key] = true
			doc.Slots = append(doc.Slots, slot)
		}
		d.logger.Debug("roster fetched", zap.String("team_key", team.TeamKey))
	}

	processedPath, err := rc.writeProcessed("rosters", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("rosters", rostersSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	d.logger.Info("rosters exported",
		zap.String("league_key", opts.LeagueKey),
		zap.Int("teams", len(league.Teams)),
		zap.Int("slots", len(doc.Slots)))

	if err := d.finishRun(rc, opts.DumpOptions, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

// extractRosterSlots decodes a team roster payload. The team node is a list
// whose later elements carry {"roster": {"0": {"players": {...counted...}}}}.
func extractRosterSlots(payload map[string]any, team Team) []RosterSlot {
	fc, ok := asMap(payload["fantasy_content"])
	if !ok {
		return nil
	}
	teamList, ok := asSlice(fc["team"])
	if !ok {
		return nil
	}

	var slots []RosterSlot
	for _, item := range teamList {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		roster, ok := asMap(m["roster"])
		if !ok {
			continue
		}
		playersParent := any(roster)
		if node0, ok := asMap(roster["0"]); ok {
			playersParent = node0
		}
		pm, ok := asMap(playersParent)
		if !ok {
			continue
		}
		for _, playerNode := range countedItems(pm["players"], "player") {
			plist, ok := asSlice(playerNode)
			if !ok || len(plist) == 0 {
				continue
			}
			flat := flattenSingletons(plist[0])
			slot := RosterSlot{
				TeamKey:   team.TeamKey,
				TeamName:  team.Name,
				PlayerKey: toString(flat["player_key"]),
				NHLTeam:   toString(flat["editorial_team_abbr"]),
				Position:  toString(flat["display_position"]),
				Status:    toString(flat["status"]),
			}
			if slot.PlayerKey == "" {
				continue
			}
			if nameNode, ok := asMap(flat["name"]); ok {
				slot.PlayerName = toString(nameNode["full"])
			}
			for _, rest := range plist[1:] {
				rm, ok := asMap(rest)
				if !ok {
					continue
				}
				sp := rm["selected_position"]
				// selected_position is itself a singleton list.
				spFlat := flattenSingletons(sp)
				if pos := toString(spFlat["position"]); pos != "" {
					slot.SelectedPosition = pos
				}
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func rostersSheets(doc *RostersDocument) []sheetDef {
	sheet := sheetDef{
		Name: "Rosters",
		Headers: []string{
			"team", "team_key", "player", "player_key",
			"nhl_team", "position", "slot", "status",
		},
		Widths: map[string]float64{"team": 26, "player": 26, "team_key": 18, "player_key": 16},
	}
	for _, s := range doc.Slots {
		sheet.Rows = append(sheet.Rows, []any{
			s.TeamName, s.TeamKey, s.PlayerName, s.PlayerKey,
			s.NHLTeam, s.Position, s.SelectedPosition, s.Status,
		})
	}
	return []sheetDef{sheet}
}
