package main

import (
	"github.com/spf13/cobra"
)

var rawFlags dumpFlags

var rawCmd = &cobra.Command{
	Use:   "raw <endpoint-path>",
	Short: "Fetch an arbitrary league endpoint and print the body",
	Long: `Fetch an arbitrary path under league/<key>/ and print the response
to stdout, for exploring endpoints the typed modules do not cover.

Examples:
  puckdump raw settings --league-key nhl.l.12345
  puckdump raw "scoreboard;week=5" --league-id 12345 --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runRaw,
}

func init() {
	rawFlags.register(rawCmd)
	rootCmd.AddCommand(rawCmd)
}

func runRaw(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := rawFlags.options(a.cfg)
	if err != nil {
		return err
	}

	body, err := a.dumper.FetchRaw(cmd.Context(), opts.LeagueKey, args[0], rawFlags.pretty)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}
