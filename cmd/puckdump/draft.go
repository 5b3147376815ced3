package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var draftFlags dumpFlags

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Export draft results",
	Long: `Export the league's draft results in pick order, with team names
joined in from the league export.`,
	RunE: runDraft,
}

func init() {
	draftFlags.register(draftCmd)
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := draftFlags.options(a.cfg)
	if err != nil {
		return err
	}

	doc, err := a.dumper.DumpDraft(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported draft for %s: %d picks\n", doc.LeagueKey, len(doc.Picks))
	return nil
}
