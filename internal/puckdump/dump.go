package puckdump

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Dumper runs export modules: fetch raw payloads, normalize, write the
// processed artifacts, and maintain the per-league metadata files.
type Dumper struct {
	client *Client
	logger *zap.Logger
}

// NewDumper wires a dumper over an API client.
func NewDumper(client *Client, logger *zap.Logger) *Dumper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dumper{client: client, logger: logger}
}

// DumpOptions are the settings every dump module shares.
type DumpOptions struct {
	ExportDir string
	LeagueKey string
	Pretty    bool
	ToExcel   bool

	// CLIArgs is recorded verbatim into the run manifest.
	CLIArgs map[string]any
}

// runContext tracks one module run: its directory tree, stamp, and every
// file produced so far (for the manifest).
type runContext struct {
	paths    ExportPaths
	stamp    RunStamp
	produced []string
}

func (d *Dumper) beginRun(opts DumpOptions, module string) (*runContext, error) {
	if opts.LeagueKey == "" {
		return nil, fmt.Errorf("league key is required")
	}
	paths, err := NewExportPaths(opts.ExportDir, opts.LeagueKey, module)
	if err != nil {
		return nil, err
	}
	return &runContext{paths: paths, stamp: NewRunStamp()}, nil
}

func (rc *runContext) track(path string) {
	rc.produced = append(rc.produced, path)
}

// writeRaw stores an as-received API payload under raw/.
func (rc *runContext) writeRaw(name string, data []byte) (string, error) {
	path := filepath.Join(rc.paths.RawDir, fmt.Sprintf("%s.%s.json", name, rc.stamp.Stamp))
	if err := WriteRawJSON(path, data); err != nil {
		return "", err
	}
	rc.track(path)
	return path, nil
}

// writeProcessed stores a normalized document under processed/.
func (rc *runContext) writeProcessed(name string, v any, pretty bool) (string, error) {
	path := filepath.Join(rc.paths.ProcessedDir, fmt.Sprintf("%s.%s.json", name, rc.stamp.Stamp))
	if err := WriteJSON(path, v, pretty); err != nil {
		return "", err
	}
	rc.track(path)
	return path, nil
}

// writeExcel renders an xlsx workbook under excel/.
func (rc *runContext) writeExcel(name string, sheets []sheetDef) (string, error) {
	path := filepath.Join(rc.paths.ExcelDir, fmt.Sprintf("%s.%s.xlsx", name, rc.stamp.Stamp))
	if err := writeWorkbook(path, sheets); err != nil {
		return "", err
	}
	rc.track(path)
	return path, nil
}

// finishRun writes the manifest and merges this module's block into
// latest.json. latestEntries maps artifact names to absolute paths; they
// are stored league-root-relative.
func (d *Dumper) finishRun(rc *runContext, opts DumpOptions, latestEntries map[string]string) error {
	manifest, err := BuildManifest(rc.paths, rc.stamp, opts.CLIArgs, rc.produced)
	if err != nil {
		return err
	}
	manifestPath, err := WriteManifest(rc.paths, rc.stamp, manifest)
	if err != nil {
		return err
	}

	entries := map[string]string{}
	for name, abs := range latestEntries {
		rel, err := rc.paths.Rel(abs)
		if err != nil {
			return err
		}
		entries[name] = rel
	}
	manifestRel, err := rc.paths.Rel(manifestPath)
	if err != nil {
		return err
	}
	entries["manifest"] = manifestRel
	entries["run_id"] = rc.stamp.RunID

	if _, err := UpdateLatest(rc.paths, rc.stamp, entries); err != nil {
		return err
	}

	d.logger.Info("dump complete",
		zap.String("module", rc.paths.Module),
		zap.String("league_key", rc.paths.LeagueKey),
		zap.String("run_id", rc.stamp.RunID),
		zap.Int("files", len(rc.produced)))
	return nil
}

func parsePayload(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse API payload: %w", err)
	}
	return payload, nil
}
