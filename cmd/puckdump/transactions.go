package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"puckdump/internal/puckdump"
)

var (
	transactionsFlags dumpFlags
	transactionsTypes string
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Export the league transaction log",
	Long: `Page through the full transaction log and flatten it into one row
per player movement, with team names joined in from the league export.`,
	RunE: runTransactions,
}

func init() {
	transactionsFlags.register(transactionsCmd)
	transactionsCmd.Flags().StringVar(&transactionsTypes, "types", "", `comma-separated type filter, e.g. "add,drop,trade"`)
	rootCmd.AddCommand(transactionsCmd)
}

func runTransactions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := transactionsFlags.options(a.cfg)
	if err != nil {
		return err
	}
	opts.CLIArgs["types"] = transactionsTypes

	doc, err := a.dumper.DumpTransactions(cmd.Context(), puckdump.TransactionsOptions{
		DumpOptions: opts,
		Types:       transactionsTypes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported transactions for %s: %d moves\n", doc.LeagueKey, len(doc.Moves))
	return nil
}
