package puckdump

import (
	"fmt"
	"path/filepath"
)

// LoadLeagueContext loads the most recent processed league document via the
// latest.json pointer. Modules that join against team metadata or league
// settings require a prior league export.
func LoadLeagueContext(exportDir, leagueKey string) (*LeagueDocument, error) {
	root := filepath.Join(exportDir, leagueKey)
	block, err := LatestEntry(filepath.Join(root, "_meta"), LeagueModule)
	if err != nil {
		return nil, err
	}
	rel := ""
	if block != nil {
		rel = toString(block["processed"])
	}
	if rel == "" {
		return nil, fmt.Errorf("no league export found for %s: run the league dump first", leagueKey)
	}

	var doc LeagueDocument
	if err := ReadJSON(filepath.Join(root, filepath.FromSlash(rel)), &doc); err != nil {
		return nil, fmt.Errorf("load league document: %w", err)
	}
	return &doc, nil
}

// TeamNames maps team keys to display names.
func (d *LeagueDocument) TeamNames() map[string]string {
	out := make(map[string]string, len(d.Teams))
	for _, t := range d.Teams {
		out[t.TeamKey] = t.Name
	}
	return out
}
