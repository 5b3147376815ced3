package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"puckdump/internal/puckdump"
)

var (
	rostersFlags dumpFlags
	rostersDate  string
)

var rostersCmd = &cobra.Command{
	Use:   "rosters",
	Short: "Export every team's roster for a date",
	Long: `Fetch each team's roster for the given date (today when omitted).
Requires a prior "puckdump league" run for the team list.`,
	RunE: runRosters,
}

func init() {
	rostersFlags.register(rostersCmd)
	rostersCmd.Flags().StringVar(&rostersDate, "date", "", "roster date, YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(rostersCmd)
}

func runRosters(cmd *cobra.Command, args []string) error {
	if rostersDate != "" {
		if _, err := time.Parse("2006-01-02", rostersDate); err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", rostersDate)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := rostersFlags.options(a.cfg)
	if err != nil {
		return err
	}
	opts.CLIArgs["date"] = rostersDate

	doc, err := a.dumper.DumpRosters(cmd.Context(), puckdump.RostersOptions{
		DumpOptions: opts,
		Date:        rostersDate,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported rosters for %s: %d slots\n", doc.LeagueKey, len(doc.Slots))
	return nil
}
