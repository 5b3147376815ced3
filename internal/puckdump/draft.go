package puckdump

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const DraftModule = "draft_dump"

// DraftPick is one normalized draft selection.
type DraftPick struct {
	Pick      *int64 `json:"pick"`
	Round     *int64 `json:"round"`
	TeamKey   string `json:"team_key"`
	TeamName  string `json:"team_name,omitempty"`
	PlayerKey string `json:"player_key"`
	Cost      *int64 `json:"cost,omitempty"` // auction drafts only
}

// DraftDocument is the processed output of the draft module.
type DraftDocument struct {
	LeagueKey string      `json:"league_key"`
	Picks     []DraftPick `json:"picks"`
}

// DumpDraft exports the league's draft results with team names joined in
// from the league export.
func (d *Dumper) DumpDraft(ctx context.Context, opts DumpOptions) (*DraftDocument, error) {
	league, err := LoadLeagueContext(opts.ExportDir, opts.LeagueKey)
	if err != nil {
		return nil, err
	}
	names := league.TeamNames()

	rc, err := d.beginRun(opts, DraftModule)
	if err != nil {
		return nil, err
	}

	data, err := d.client.DraftResults(ctx, opts.LeagueKey)
	if err != nil {
		return nil, fmt.Errorf("fetch draft results: %w", err)
	}
	if _, err := rc.writeRaw("draft_results", data); err != nil {
		return nil, err
	}
	payload, err := parsePayload(data)
	if err != nil {
		return nil, err
	}

	doc := &DraftDocument{LeagueKey: opts.LeagueKey, Picks: extractDraftPicks(payload, names)}
	sort.SliceStable(doc.Picks, func(i, j int) bool {
		a, b := doc.Picks[i].Pick, doc.Picks[j].Pick
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return *a < *b
	})

	processedPath, err := rc.writeProcessed("draft", doc, opts.Pretty)
	if err != nil {
		return nil, err
	}
	latest := map[string]string{"processed": processedPath}

	if opts.ToExcel {
		excelPath, err := rc.writeExcel("draft", draftSheets(doc))
		if err != nil {
			return nil, err
		}
		latest["excel"] = excelPath
	}

	d.logger.Info("draft exported",
		zap.String("league_key", opts.LeagueKey),
		zap.Int("picks", len(doc.Picks)))

	if err := d.finishRun(rc, opts, latest); err != nil {
		return nil, err
	}
	return doc, nil
}

func extractDraftPicks(payload map[string]any, names map[string]string) []DraftPick {
	picks := []DraftPick{}
	for _, entry := range leagueEntries(payload) {
		container, ok := entry["draft_results"]
		if !ok {
			continue
		}
		for _, node := range countedItems(container, "draft_result") {
			m, ok := asMap(node)
			if !ok {
				continue
			}
			teamKey := toString(m["team_key"])
			picks = append(picks, DraftPick{
				Pick:      toInt(m["pick"]),
				Round:     toInt(m["round"]),
				TeamKey:   teamKey,
				TeamName:  names[teamKey],
				PlayerKey: toString(m["player_key"]),
				Cost:      toInt(m["cost"]),
			})
		}
	}
	return picks
}

func draftSheets(doc *DraftDocument) []sheetDef {
	sheet := sheetDef{
		Name:    "Draft",
		Headers: []string{"pick", "round", "team", "team_key", "player_key", "cost"},
		Widths:  map[string]float64{"team": 28, "team_key": 18, "player_key": 16},
	}
	for _, p := range doc.Picks {
		sheet.Rows = append(sheet.Rows, []any{
			derefInt(p.Pick), derefInt(p.Round), p.TeamName, p.TeamKey, p.PlayerKey, derefInt(p.Cost),
		})
	}
	return []sheetDef{sheet}
}
