package puckdump

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testPaths(t *testing.T, module string) ExportPaths {
	t.Helper()
	p, err := NewExportPaths(t.TempDir(), "nhl.l.12345", module)
	if err != nil {
		t.Fatalf("NewExportPaths: %v", err)
	}
	return p
}

func TestBuildManifestHashes(t *testing.T) {
	p := testPaths(t, "league_dump")
	rs := newRunStampAt(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	content := []byte(`{"ok":true}`)
	file := filepath.Join(p.ProcessedDir, "league.json")
	if err := os.WriteFile(file, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := BuildManifest(p, rs, map[string]any{"pretty": true}, []string{file})
	if err != nil {
		t.Fatalf("BuildManifest: %v", err)
	}
	if m.Module != "league_dump" || m.LeagueKey != "nhl.l.12345" {
		t.Errorf("manifest header = %+v", m)
	}
	if m.GeneratedISOUTC != "2026-01-15T12:00:00Z" {
		t.Errorf("GeneratedISOUTC = %q", m.GeneratedISOUTC)
	}

	entry, ok := m.Files["league_dump/processed/league.json"]
	if !ok {
		t.Fatalf("missing relative file entry, got %v", m.Files)
	}
	sum := sha256.Sum256(content)
	if entry.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 = %q", entry.SHA256)
	}
	if entry.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", entry.SizeBytes, len(content))
	}
}

func TestUpdateLatestPreservesOtherModules(t *testing.T) {
	p := testPaths(t, "standings_dump")
	rs := NewRunStamp()

	// Seed a block another module wrote earlier.
	seed := map[string]any{
		"league_key":  "nhl.l.12345",
		"league_dump": map[string]any{"processed": "league_dump/processed/league.json"},
	}
	if err := WriteJSON(filepath.Join(p.MetaDir, "latest.json"), seed, true); err != nil {
		t.Fatalf("seed latest: %v", err)
	}

	if _, err := UpdateLatest(p, rs, map[string]string{
		"processed": "standings_dump/processed/standings.json",
	}); err != nil {
		t.Fatalf("UpdateLatest: %v", err)
	}

	var latest map[string]any
	if err := ReadJSON(filepath.Join(p.MetaDir, "latest.json"), &latest); err != nil {
		t.Fatalf("read latest: %v", err)
	}
	leagueBlock, _ := asMap(latest["league_dump"])
	if leagueBlock == nil || toString(leagueBlock["processed"]) != "league_dump/processed/league.json" {
		t.Errorf("league_dump block lost: %v", latest)
	}
	standingsBlock, _ := asMap(latest["standings_dump"])
	if standingsBlock == nil || toString(standingsBlock["processed"]) != "standings_dump/processed/standings.json" {
		t.Errorf("standings_dump block missing: %v", latest)
	}
	if latest["_updated_unix"] == nil {
		t.Error("_updated_unix not set")
	}
}

func TestLatestEntryMissing(t *testing.T) {
	block, err := LatestEntry(t.TempDir(), "league_dump")
	if err != nil {
		t.Fatalf("LatestEntry: %v", err)
	}
	if block != nil {
		t.Errorf("got %v, want nil for missing latest.json", block)
	}
}

func TestUpdateLeagueProfileMerges(t *testing.T) {
	p := testPaths(t, "league_dump")
	rs := NewRunStamp()

	teams := []Team{
		{TeamKey: "nhl.l.12345.t.1", Name: "Ice Holes", Logo: "https://img/1.png"},
	}
	if _, err := UpdateLeagueProfile(p, rs, "Test League", teams); err != nil {
		t.Fatalf("UpdateLeagueProfile: %v", err)
	}

	// A second run adds a team and must keep the first.
	more := []Team{{TeamKey: "nhl.l.12345.t.2", Name: "Puck Norris"}}
	if _, err := UpdateLeagueProfile(p, rs, "Test League", more); err != nil {
		t.Fatalf("UpdateLeagueProfile second run: %v", err)
	}

	var profile map[string]any
	if err := ReadJSON(filepath.Join(p.MetaDir, "league_profile.json"), &profile); err != nil {
		t.Fatalf("read profile: %v", err)
	}
	teamsMap, _ := asMap(profile["teams"])
	if len(teamsMap) != 2 {
		t.Fatalf("teams = %v, want both runs merged", teamsMap)
	}
	first, _ := asMap(teamsMap["nhl.l.12345.t.1"])
	if toString(first["name"]) != "Ice Holes" || toString(first["logo_url"]) != "https://img/1.png" {
		t.Errorf("first team entry = %v", first)
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteJSON(path, map[string]int{"a": 1}, false); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got map[string]int
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got["a"] != 1 {
		t.Errorf("round trip = %v", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only out.json", len(entries))
	}
}
