package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/config"
	"github.com/jamfkit/sgscan/internal/jamf"
	"github.com/jamfkit/sgscan/internal/sessions"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Global configuration instance
var cfg *config.Config

// ExitError carries the process exit status for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func failure(err error) error {
	return &ExitError{Code: ExitFailure, Err: err}
}

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func preRunConfigE(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return usageError(fmt.Errorf("failed to get config flag: %w", err))
	}

	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return usageError(fmt.Errorf("failed to load configuration: %w", err))
	}

	// check if verbose flag is set
	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.WithFields(logrus.Fields{
		"command": cmd.CommandPath(),
		"version": common.GetVersion(),
	}).Debugln("Starting")

	return nil
}

// sessionStore opens the persisted session store, or returns nil when it
// is disabled.
func sessionStore() (*sessions.SessionManager, error) {
	if cfg.Sessions.Disabled {
		return nil, nil
	}

	path := cfg.Sessions.Path
	if len(path) == 0 {
		defaultPath, err := sessions.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	store := sessions.NewSessionManager(path)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// newClient builds an authenticated Jamf client. Explicit credentials win;
// otherwise a stored login for the same server is used.
func newClient(ctx context.Context) (*jamf.Client, error) {
	opts, err := cfg.ClientOptions()
	if err != nil {
		return nil, usageError(err)
	}

	if !cfg.HasCredentials() {
		opts.Credentials = storedCredentials(opts.BaseURL)
	}
	if opts.Credentials.IsEmpty() {
		return nil, usageError(fmt.Errorf("%w (or run 'sgscan login')", jamf.ErrNoCredentials))
	}

	client, err := jamf.NewClient(opts)
	if err != nil {
		return nil, usageError(err)
	}

	if err := client.Authenticate(ctx); err != nil {
		return nil, failure(fmt.Errorf("authentication failed: %w", err))
	}

	return client, nil
}

func storedCredentials(baseURL string) jamf.Credentials {
	parsed, err := jamf.ParseBaseURL(baseURL)
	if err != nil {
		return jamf.Credentials{}
	}

	store, err := sessionStore()
	if err != nil || store == nil {
		if err != nil {
			logrus.WithError(err).Debugln("Session store unavailable")
		}
		return jamf.Credentials{}
	}

	session, err := store.GetActiveSession(parsed.Host)
	if err != nil {
		logrus.WithError(err).Debugln("No stored session")
		return jamf.Credentials{}
	}

	logrus.WithField("server", parsed.Host).Debugln("Using stored session")
	return jamf.Credentials{Token: session.Token, TokenExpiry: session.Expiry}
}

var rootCmd = &cobra.Command{
	Use:   "sgscan",
	Short: "Search Jamf Pro smart group criteria",
	Long: `sgscan scans the criteria of every computer, mobile device and user
smart group on a Jamf Pro server and reports the criteria whose name or value
matches a pattern.

Settings are read from flags, SGSCAN_* and JAMF_* environment variables, a .env
file and config.yaml in ., ./config, ~/.config/sgscan or /etc/sgscan.`,
	PersistentPreRunE: preRunConfigE,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.String("config", "", "Config file (default is ./config.yaml or ~/.config/sgscan/config.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")

	flags.String("url", "", "Jamf Pro server URL (env JAMF_URL)")
	flags.StringP("user", "u", "", "Jamf Pro username (env JAMF_USER)")
	flags.StringP("password", "p", "", "Jamf Pro password (env JAMF_PASS)")
	flags.String("token", "", "Existing bearer token (env JAMF_TOKEN)")
	flags.String("client-id", "", "API client id (env CLIENT_ID)")
	flags.String("client-secret", "", "API client secret (env CLIENT_SECRET)")
	flags.Bool("no-verify-ssl", false, "Skip TLS certificate verification")
	flags.String("timeout", "", "Request timeout, e.g. 30s or PT30S")

	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text or json)")
	flags.String("sessions-file", "", "Session store (default is ~/.config/sgscan/sessions.yaml)")
	flags.Bool("no-sessions", false, "Do not read or write stored sessions")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	if ExitCode(err) == ExitUsage {
		fmt.Fprintln(os.Stderr, "Run 'sgscan --help' for usage.")
	}
	return ExitCode(err)
}
