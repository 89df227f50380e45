package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/jamf"
	"github.com/jamfkit/sgscan/internal/sessions"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with a Jamf Pro server and store the token",
	Long: `Request a bearer token with a username and password or an API client
and store it for the server, so later commands need only --url.

Asks for a username and password when none were given and running on a
terminal.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
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

	credentials := opts.Credentials
	if !credentials.HasBasic() && !credentials.HasClient() {
		if !stdinIsTerminal() {
			return usageError(errors.New("login needs a username and password or an API client id and secret"))
		}
		if err := promptCredentials(&credentials); err != nil {
			return failure(err)
		}
	}
	// A stale token must not shadow the credentials being logged in with.
	credentials.Token = ""
	opts.Credentials = credentials

	ctx, cleanup := common.WithInterrupt(commandContext(cmd))
	defer cleanup()

	client, err := jamf.NewClient(opts)
	if err != nil {
		return usageError(err)
	}
	if err := client.Authenticate(ctx); err != nil {
		return failure(fmt.Errorf("login failed: %w", err))
	}

	token, expiry := client.Session().Current()

	account := credentials.Username
	if len(account) == 0 {
		account = credentials.ClientID
	}

	err = store.AddSession(client.Hostname(), sessions.ServerSession{
		URL:      client.BaseURL(),
		Username: account,
		Token:    token,
		Expiry:   expiry,
	})
	if err != nil {
		return failure(fmt.Errorf("failed to store session: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render("Login successful!"))
	fmt.Fprintf(out, "Server: %s\n", client.Hostname())
	if !expiry.IsZero() {
		fmt.Fprintf(out, "Expires in: %s\n", common.FormatDurationRemaining(time.Until(expiry)))
	}
	return nil
}

func promptCredentials(credentials *jamf.Credentials) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&credentials.Username).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) == 0 {
						return errors.New("username is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&credentials.Password),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("login prompt cancelled: %w", err)
	}
	credentials.Username = strings.TrimSpace(credentials.Username)
	return nil
}
