package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"puckdump/internal/auth"
	"puckdump/internal/puckdump"
)

// app bundles everything a command needs after wiring: the loaded config,
// the credential manager, and a dumper over the authenticated client.
type app struct {
	cfg    puckdump.Config
	logger *zap.Logger
	mgr    *auth.CredentialManager
	dumper *puckdump.Dumper
}

func newApp() (*app, error) {
	cfg, err := puckdump.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := puckdump.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	mgr, err := auth.NewCredentialManager(auth.ManagerOptions{
		Config: cfg.AuthConfig(),
		Logger: logger,
	})
	if err != nil {
		logger.Sync()
		return nil, err
	}

	client := puckdump.NewClient(mgr.Client(),
		puckdump.WithLogger(logger),
		puckdump.WithRateLimit(cfg.RateLimit),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		mgr:    mgr,
		dumper: puckdump.NewDumper(client, logger),
	}, nil
}

func (a *app) close() {
	a.mgr.Close()
	a.logger.Sync()
}

// dumpFlags are the flags every export command shares.
type dumpFlags struct {
	leagueKey string
	leagueID  int
	game      string
	exportDir string
	pretty    bool
	toExcel   bool
}

func (f *dumpFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.leagueKey, "league-key", "", `full league key, e.g. "nhl.l.12345"`)
	cmd.Flags().IntVar(&f.leagueID, "league-id", 0, "numeric league id (combined with --game)")
	cmd.Flags().StringVar(&f.game, "game", "", `game code for --league-id (default from config, "nhl")`)
	cmd.Flags().StringVar(&f.exportDir, "export-dir", "", "export tree root (default from config)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent processed JSON output")
	cmd.Flags().BoolVar(&f.toExcel, "to-excel", false, "also write an Excel workbook")
}

// options resolves the shared flags against the config. Either --league-key
// or --league-id must be given.
func (f *dumpFlags) options(cfg puckdump.Config) (puckdump.DumpOptions, error) {
	key := f.leagueKey
	if key == "" {
		if f.leagueID <= 0 {
			return puckdump.DumpOptions{}, fmt.Errorf("either --league-key or --league-id is required")
		}
		game := f.game
		if game == "" {
			game = cfg.Game
		}
		key = fmt.Sprintf("%s.l.%d", game, f.leagueID)
	}

	exportDir := f.exportDir
	if exportDir == "" {
		exportDir = cfg.ExportDir
	}

	return puckdump.DumpOptions{
		ExportDir: exportDir,
		LeagueKey: key,
		Pretty:    f.pretty,
		ToExcel:   f.toExcel,
		CLIArgs: map[string]any{
			"league_key": key,
			"export_dir": exportDir,
			"pretty":     f.pretty,
			"to_excel":   f.toExcel,
		},
	}, nil
}
