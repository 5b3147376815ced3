package puckdump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ManifestFile records integrity data for one produced file.
type ManifestFile struct {
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Manifest describes one export run: what produced it, when, with which
// arguments, and the hash of every file it wrote.
type Manifest struct {
	Module          string                  `json:"module"`
	LeagueKey       string                  `json:"league_key"`
	RunID           string                  `json:"run_id"`
	GeneratedUnix   int64                   `json:"_generated_unix"`
	GeneratedISOUTC string                  `json:"_generated_iso_utc"`
	GeneratedISOLoc string                  `json:"_generated_iso_local"`
	Files           map[string]ManifestFile `json:"files"`
	CLIArgs         map[string]any          `json:"cli_args"`
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildManifest hashes every produced path (absolute, under the league
// root) and assembles the run manifest.
func BuildManifest(p ExportPaths, rs RunStamp, cliArgs map[string]any, produced []string) (Manifest, error) {
	files := make(map[string]ManifestFile, len(produced))
	for _, abs := range produced {
		rel, err := p.Rel(abs)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest path %s: %w", abs, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return Manifest{}, fmt.Errorf("stat %s: %w", abs, err)
		}
		sum, err := sha256File(abs)
		if err != nil {
			return Manifest{}, fmt.Errorf("hash %s: %w", abs, err)
		}
		files[rel] = ManifestFile{SizeBytes: info.Size(), SHA256: sum}
	}
	return Manifest{
		Module:          p.Module,
		LeagueKey:       p.LeagueKey,
		RunID:           rs.RunID,
		GeneratedUnix:   rs.Unix,
		GeneratedISOUTC: rs.ISOUTC,
		GeneratedISOLoc: rs.ISOLocal,
		Files:           files,
		CLIArgs:         cliArgs,
	}, nil
}

// WriteManifest writes the run manifest into the module's manifest folder.
func WriteManifest(p ExportPaths, rs RunStamp, m Manifest) (string, error) {
	out := filepath.Join(p.ManifestDir, fmt.Sprintf("manifest.%s.json", rs.Stamp))
	if err := WriteJSON(out, m, true); err != nil {
		return "", err
	}
	return out, nil
}

// UpdateLatest merges this module's block into _meta/latest.json, keeping
// other modules' entries intact. entries maps artifact names ("processed",
// "excel", ...) to league-root-relative paths.
func UpdateLatest(p ExportPaths, rs RunStamp, entries map[string]string) (string, error) {
	latestPath := filepath.Join(p.MetaDir, "latest.json")

	data := map[string]any{"league_key": p.LeagueKey}
	if _, err := os.Stat(latestPath); err == nil {
		if err := ReadJSON(latestPath, &data); err != nil {
			return "", err
		}
	}

	block, _ := asMap(data[p.Module])
	if block == nil {
		block = map[string]any{}
	}
	for k, v := range entries {
		block[k] = v
	}
	data[p.Module] = block
	data["_updated_unix"] = rs.Unix
	data["_updated_iso_utc"] = rs.ISOUTC

	if err := WriteJSON(latestPath, data, true); err != nil {
		return "", err
	}
	return latestPath, nil
}

// LatestEntry reads one module's block from _meta/latest.json. Missing file
// or block returns (nil, nil) so callers can issue a task-specific hint.
func LatestEntry(metaDir, module string) (map[string]any, error) {
	latestPath := filepath.Join(metaDir, "latest.json")
	if _, err := os.Stat(latestPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var data map[string]any
	if err := ReadJSON(latestPath, &data); err != nil {
		return nil, err
	}
	block, _ := asMap(data[module])
	return block, nil
}

// UpdateLeagueProfile maintains _meta/league_profile.json, the canonical
// team-key → team metadata map other modules join against.
func UpdateLeagueProfile(p ExportPaths, rs RunStamp, leagueName string, teams []Team) (string, error) {
	profilePath := filepath.Join(p.MetaDir, "league_profile.json")

	profile := map[string]any{
		"league_key":  p.LeagueKey,
		"league_name": leagueName,
		"teams":       map[string]any{},
	}
	if _, err := os.Stat(profilePath); err == nil {
		if err := ReadJSON(profilePath, &profile); err != nil {
			return "", err
		}
	}
	profile["league_name"] = leagueName

	teamsMap, _ := asMap(profile["teams"])
	if teamsMap == nil {
		teamsMap = map[string]any{}
	}
	for _, t := range teams {
		teamsMap[t.TeamKey] = map[string]any{
			"name":     t.Name,
			"logo_url": t.Logo,
		}
	}
	profile["teams"] = teamsMap
	profile["_last_updated_unix"] = rs.Unix
	profile["_last_updated_iso_utc"] = rs.ISOUTC

	if err := WriteJSON(profilePath, profile, true); err != nil {
		return "", err
	}
	return profilePath, nil
}
