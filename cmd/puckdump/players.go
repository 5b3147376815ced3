package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"puckdump/internal/puckdump"
)

var (
	playersFlags  dumpFlags
	playersStatus string
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Export the league player pool with season stats",
	Long: `Page through the league player pool, 25 players at a time, with
each player's season stats. Use --status to restrict to a pool slice
(A = all available, FA = free agents, W = waivers, T = taken).`,
	RunE: runPlayers,
}

func init() {
	playersFlags.register(playersCmd)
	playersCmd.Flags().StringVar(&playersStatus, "status", "", "availability filter (A, FA, W or T)")
	rootCmd.AddCommand(playersCmd)
}

func runPlayers(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := playersFlags.options(a.cfg)
	if err != nil {
		return err
	}
	opts.CLIArgs["status"] = playersStatus

	doc, err := a.dumper.DumpPlayers(cmd.Context(), puckdump.PlayersOptions{
		DumpOptions: opts,
		Status:      playersStatus,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported players for %s: %d players\n", doc.LeagueKey, len(doc.Players))
	return nil
}
