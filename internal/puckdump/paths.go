package puckdump

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExportPaths is the on-disk layout for one module's run under a league:
//
//	<export_dir>/<league_key>/_meta/
//	<export_dir>/<league_key>/<module>/{raw,processed,excel,manifest}/
//
// Scripts communicate only through these folders and the latest pointer in
// _meta/latest.json.
type ExportPaths struct {
	LeagueKey    string
	Module       string
	Root         string
	MetaDir      string
	RawDir       string
	ProcessedDir string
	ExcelDir     string
	ManifestDir  string
}

// NewExportPaths creates the directory tree for a module run.
func NewExportPaths(baseDir, leagueKey, module string) (ExportPaths, error) {
	root := filepath.Join(baseDir, leagueKey)
	moduleRoot := filepath.Join(root, module)
	p := ExportPaths{
		LeagueKey:    leagueKey,
		Module:       module,
		Root:         root,
		MetaDir:      filepath.Join(root, "_meta"),
		RawDir:       filepath.Join(moduleRoot, "raw"),
		ProcessedDir: filepath.Join(moduleRoot, "processed"),
		ExcelDir:     filepath.Join(moduleRoot, "excel"),
		ManifestDir:  filepath.Join(moduleRoot, "manifest"),
	}
	for _, dir := range []string{p.MetaDir, p.RawDir, p.ProcessedDir, p.ExcelDir, p.ManifestDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ExportPaths{}, fmt.Errorf("create export dir: %w", err)
		}
	}
	return p, nil
}

// Rel converts an absolute produced path to the league-root-relative POSIX
// form used inside manifests and latest.json.
func (p ExportPaths) Rel(absPath string) (string, error) {
	rel, err := filepath.Rel(p.Root, absPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
