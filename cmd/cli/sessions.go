package cli

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored server sessions",
	Long: `Display the stored login for every server with its status and expiry.

Example:
  sgscan sessions`,
	Args: cobra.NoArgs,
	RunE: runListSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runListSessions(cmd *cobra.Command, _ []string) error {
	store, err := sessionStore()
	if err != nil {
		return failure(fmt.Errorf("failed to load sessions: %w", err))
	}
	if store == nil {
		return usageError(errors.New("the session store is disabled"))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Stored Sessions"))
	fmt.Fprintln(out)

	servers := store.List()
	if len(servers) == 0 {
		fmt.Fprintln(out, infoStyle.Render("No stored sessions found"))
		return nil
	}

	hostnames := make([]string, 0, len(servers))
	for hostname := range servers {
		hostnames = append(hostnames, hostname)
	}
	slices.Sort(hostnames)

	for _, hostname := range hostnames {
		session := servers[hostname]

		var statusDisplay, expiryDisplay string
		switch {
		case session.Expiry.IsZero():
			statusDisplay = activeStyle.Render("ACTIVE")
			expiryDisplay = activeStyle.Render("Expires: unknown")
		case session.IsExpired():
			statusDisplay = expiredStyle.Render("EXPIRED")
			expiryDisplay = expiredStyle.Render(fmt.Sprintf("Expired: %s", session.Expiry.Local().Format(time.DateTime)))
		default:
			statusDisplay = activeStyle.Render("ACTIVE")
			expiryDisplay = activeStyle.Render(fmt.Sprintf("Expires: %s (%s)",
				session.Expiry.Local().Format(time.DateTime),
				common.FormatDurationRemaining(time.Until(session.Expiry))))
		}

		fmt.Fprintln(out, headerStyle.Render("Server: "+hostname))
		fmt.Fprintln(out, "  "+statusDisplay)
		fmt.Fprintln(out, "  "+expiryDisplay)
		if len(session.Username) > 0 {
			fmt.Fprintln(out, "  "+infoStyle.Render("Account: "+session.Username))
		}
		fmt.Fprintln(out)
	}

	return nil
}
