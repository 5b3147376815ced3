package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "puckdump",
	Short: "Export Yahoo Fantasy Hockey league data to local files",
	Long: `puckdump pulls a Yahoo Fantasy Hockey league through the Fantasy
Sports API and writes it into a per-league export tree: raw payloads,
normalized JSON documents, optional Excel workbooks, and run manifests.

Run "puckdump auth setup" once to authorize, then "puckdump league" to
anchor the export tree before the other modules.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (json or yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
