package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/jamf"
	"github.com/jamfkit/sgscan/internal/sessions"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate and forget the stored token for a server",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, _ []string) error {
	opts, err := cfg.ClientOptions()
	if err != nil {
		return usageError(err)
	}

	store, err := sessionStore()
	if err != nil {
		return failure(fmt.Errorf("failed to load sessions: %w", err))
	}
	if store == nil {
		return usageError(errors.New("the session store is disabled"))
	}

	parsed, err := jamf.ParseBaseURL(opts.BaseURL)
	if err != nil {
		return usageError(err)
	}
	hostname := parsed.Host

	session, err := store.GetSession(hostname)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render("Not logged in to "+hostname))
		return nil
	}
	if err != nil {
		return failure(err)
	}

	// An expired token is forgotten without asking the server.
	if !session.IsExpired() {
		ctx, cleanup := common.WithInterrupt(commandContext(cmd))
		defer cleanup()

		opts.Credentials = jamf.Credentials{Token: session.Token, TokenExpiry: session.Expiry}
		client, err := jamf.NewClient(opts)
		if err != nil {
			return usageError(err)
		}
		if err := client.Logout(ctx); err != nil {
			logrus.WithError(err).Warnln("Failed to invalidate token on the server")
		}
	}

	if err := store.RemoveSession(hostname); err != nil {
		return failure(fmt.Errorf("failed to remove session: %w", err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Logged out of "+hostname))
	return nil
}
