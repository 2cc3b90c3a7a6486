package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"fitgate/internal/app"
	"fitgate/internal/oauth"
)

// authCmd groups the commands that inspect or change the stored credential.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect or remove the stored upstream credential",
	Long: `Inspect or remove the upstream credential stored by the gateway.

Connecting happens in a browser through the running server's
/auth/authorize endpoint; these commands work on the token file
directly and only need the storage settings.

Examples:
  fitgate auth status
  fitgate auth logout`,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored credential",
	Long: `Deletes the encrypted token file. A running server notices the
change and stops serving data until the account is connected again.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func openTokenStore() (*oauth.TokenStore, error) {
	gw, err := app.LoadGatewayConfig(app.NewConfig(debug, configPath, 0, GetVersion()))
	if err != nil {
		return nil, err
	}
	return app.NewTokenStore(gw, clock.RealClock{})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := openTokenStore()
	if err != nil {
		return err
	}
	cred, err := store.Load()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("FIELD"), text.FgHiCyan.Sprint("VALUE")})

	if cred == nil {
		t.AppendRow(table.Row{"Status", text.FgYellow.Sprint("not connected")})
		t.AppendRow(table.Row{"Token file", store.Path()})
		t.Render()
		fmt.Fprintln(cmd.OutOrStdout(), "Connect by opening /auth/authorize on the running server.")
		return nil
	}

	status := text.FgGreen.Sprint("connected")
	switch {
	case !store.IsValid(cred):
		status = text.FgRed.Sprint("expired")
	case store.IsExpiringSoon(cred):
		status = text.FgYellow.Sprint("expiring soon")
	}
	refresh := "no"
	if store.HasRefresh(cred) {
		refresh = "yes"
	}

	t.AppendRow(table.Row{"Status", status})
	t.AppendRow(table.Row{"Expires", formatExpiry(cred.ExpiresAt, time.Now())})
	t.AppendRow(table.Row{"Scope", cred.Scope})
	t.AppendRow(table.Row{"Refresh token", refresh})
	t.AppendRow(table.Row{"Token file", store.Path()})
	t.Render()
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := openTokenStore()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed stored credential %s\n", store.Path())
	return nil
}

// formatExpiry renders an expiry time with the remaining duration.
func formatExpiry(expiresAt, now time.Time) string {
	stamp := expiresAt.Local().Format(time.RFC3339)
	remaining := expiresAt.Sub(now).Round(time.Minute)
	if remaining <= 0 {
		return fmt.Sprintf("%s (%s ago)", stamp, (-remaining).String())
	}
	return fmt.Sprintf("%s (in %s)", stamp, remaining.String())
}
