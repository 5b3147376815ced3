package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var leagueFlags dumpFlags

var leagueCmd = &cobra.Command{
	Use:   "league",
	Short: "Export league metadata, settings and teams",
	Long: `Export the league header, scoring settings and team list.

This module anchors the export tree: it writes _meta/league_profile.json
and the latest.json pointer that standings, draft, transactions and
rosters join against. Run it first, and again whenever teams change.`,
	RunE: runLeague,
}

func init() {
	leagueFlags.register(leagueCmd)
	rootCmd.AddCommand(leagueCmd)
}

func runLeague(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := leagueFlags.options(a.cfg)
	if err != nil {
		return err
	}

	doc, err := a.dumper.DumpLeague(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported league %q (%s): %d teams\n",
		doc.LeagueInfo.Name, doc.LeagueInfo.LeagueKey, len(doc.Teams))
	return nil
}
