package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Yahoo API credentials",
}

var authSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive authorization flow",
	Long: `Authorize puckdump against your Yahoo account and store the token.

A browser window opens for consent; the redirect is captured locally.
With oauth.manual (or OAUTH_MANUAL=1) the redirect URL is pasted by
hand instead, for headless machines. Any existing token is replaced.`,
	RunE: runAuthSetup,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored token and verify it against the API",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authSetupCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSetup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.mgr.Reauthorize(cmd.Context())
	if err != nil {
		return err
	}
	a.logger.Info("authorization complete", zap.Int64("expires_at", rec.ExpiresAt))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "authorized: token stored in %s\n", a.cfg.OAuth.TokenFile)
	fmt.Fprintf(out, "expires: %s\n", time.Unix(rec.ExpiresAt, 0).Format(time.RFC3339))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	rec, err := a.mgr.StoredToken()
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Fprintln(out, "no token stored: run \"puckdump auth setup\"")
		return nil
	}

	expires := time.Unix(rec.ExpiresAt, 0)
	fmt.Fprintf(out, "token file:    %s\n", a.cfg.OAuth.TokenFile)
	fmt.Fprintf(out, "expires:       %s\n", expires.Format(time.RFC3339))
	if rec.Valid(time.Now()) {
		fmt.Fprintf(out, "local check:   valid for %s\n", time.Until(expires).Round(time.Second))
	} else if rec.RefreshToken != "" {
		fmt.Fprintln(out, "local check:   expired, will refresh on next use")
	} else {
		fmt.Fprintln(out, "local check:   expired, no refresh token")
	}

	info, err := a.mgr.UserInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("API check failed: %w", err)
	}
	if nickname, ok := info["nickname"].(string); ok && nickname != "" {
		fmt.Fprintf(out, "API check:     ok, signed in as %s\n", nickname)
	} else {
		fmt.Fprintln(out, "API check:     ok")
	}
	return nil
}
