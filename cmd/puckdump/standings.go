package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"puckdump/internal/puckdump"
)

var (
	standingsFlags   dumpFlags
	standingsSince   int
	standingsThrough int
)

var standingsCmd = &cobra.Command{
	Use:   "standings",
	Short: "Rebuild weekly standings from scoreboards",
	Long: `Fetch each week's scoreboard and rebuild matchup results, weekly
per-team rows and season aggregates, split into regular season and
playoffs. Requires a prior "puckdump league" run for team names and
scoring categories.`,
	RunE: runStandings,
}

func init() {
	standingsFlags.register(standingsCmd)
	standingsCmd.Flags().IntVar(&standingsSince, "since-week", 0, "first week to fetch (default: league start week)")
	standingsCmd.Flags().IntVar(&standingsThrough, "through-week", 0, "last week to fetch (default: league current week)")
	rootCmd.AddCommand(standingsCmd)
}

func runStandings(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := standingsFlags.options(a.cfg)
	if err != nil {
		return err
	}
	opts.CLIArgs["since_week"] = standingsSince
	opts.CLIArgs["through_week"] = standingsThrough

	doc, err := a.dumper.DumpStandings(cmd.Context(), puckdump.StandingsOptions{
		DumpOptions: opts,
		SinceWeek:   standingsSince,
		ThroughWeek: standingsThrough,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported standings for %s: weeks %d..%d, %d matchups\n",
		doc.LeagueKey, doc.SinceWeek, doc.ThroughWeek, len(doc.Matchups))
	return nil
}
