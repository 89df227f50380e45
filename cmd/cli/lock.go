package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/jamf"
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

const privilegesHint = `The API role is missing privileges for DEVICE_LOCK. Check that it has:
  - Send Computer Remote Lock Command
  - Read Computers
  - Read Computer Inventory Collection
  - View MDM command information in Jamf Pro API
and that it has access to the device's site.`

var lockCmd = &cobra.Command{
	Use:   "lock [serial] [pin]",
	Short: "Send a DEVICE_LOCK command to a computer",
	Long: `Look up a computer by serial number and send it a DEVICE_LOCK MDM
command with a six digit PIN. Missing arguments are asked for when running
on a terminal.

Examples:
  sgscan lock C02XK0ABJGH5 123456 --message "Return to IT"
  sgscan lock --management-id 3f1c... 123456 --yes`,
	Args: cobra.MaximumNArgs(2),
	RunE: runLock,
}

func init() {
	flags := lockCmd.Flags()

	flags.StringP("message", "m", "", "Message shown on the locked device")
	flags.String("management-id", "", "Skip the serial lookup and lock this management id")
	flags.String("client-type", jamf.ClientTypeComputer, "MDM client type (COMPUTER or MOBILE_DEVICE)")
	flags.BoolP("yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(lockCmd)
}

// lockInput collects the arguments of a lock from flags, args and prompts.
type lockInput struct {
	Serial       string
	PIN          string
	Message      string
	ManagementID string
	ClientType   string
	Confirmed    bool
}

func lockInputFromCommand(cmd *cobra.Command, args []string) (*lockInput, error) {
	input := &lockInput{}

	var err error
	if input.Message, err = cmd.Flags().GetString("message"); err != nil {
		return nil, err
	}
	if input.ManagementID, err = cmd.Flags().GetString("management-id"); err != nil {
		return nil, err
	}
	if input.ClientType, err = cmd.Flags().GetString("client-type"); err != nil {
		return nil, err
	}
	if input.Confirmed, err = cmd.Flags().GetBool("yes"); err != nil {
		return nil, err
	}

	// With a management id the only positional argument is the PIN.
	switch {
	case len(input.ManagementID) > 0 && len(args) == 1:
		input.PIN = args[0]
	case len(input.ManagementID) > 0 && len(args) == 2:
		return nil, errors.New("pass either a serial number or --management-id, not both")
	case len(args) == 2:
		input.Serial, input.PIN = args[0], args[1]
	case len(args) == 1:
		input.Serial = args[0]
	}

	input.Serial = strings.ToUpper(strings.TrimSpace(input.Serial))
	input.PIN = strings.TrimSpace(input.PIN)
	input.ClientType = strings.ToUpper(strings.TrimSpace(input.ClientType))
	return input, nil
}

func (l *lockInput) complete() bool {
	hasTarget := len(l.Serial) > 0 || len(l.ManagementID) > 0
	return hasTarget && pinPattern.MatchString(l.PIN)
}

func (l *lockInput) target() string {
	if len(l.Serial) > 0 {
		return "serial " + l.Serial
	}
	return "management id " + l.ManagementID
}

// prompt asks for whatever is still missing and for confirmation.
func (l *lockInput) prompt() error {
	var fields []huh.Field

	if len(l.Serial) == 0 && len(l.ManagementID) == 0 {
		fields = append(fields, huh.NewInput().
			Title("Serial number").
			Value(&l.Serial).
			Validate(func(s string) error {
				if len(strings.TrimSpace(s)) == 0 {
					return errors.New("serial number is required")
				}
				return nil
			}))
	}

	if !pinPattern.MatchString(l.PIN) {
		fields = append(fields, huh.NewInput().
			Title("Lock PIN").
			Description("Six digits").
			EchoMode(huh.EchoModePassword).
			Value(&l.PIN).
			Validate(func(s string) error {
				if !pinPattern.MatchString(s) {
					return errors.New("the PIN must be exactly six digits")
				}
				return nil
			}))

		fields = append(fields, huh.NewInput().
			Title("Message").
			Description("Optional, shown on the locked screen").
			CharLimit(255).
			Value(&l.Message))
	}

	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return fmt.Errorf("lock prompt cancelled: %w", err)
		}
		l.Serial = strings.ToUpper(strings.TrimSpace(l.Serial))
	}

	if l.Confirmed {
		return nil
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Lock the device with %s?", l.target())).
				Description("The device is locked immediately and can only be unlocked with the PIN").
				Affirmative("Lock").
				Negative("Cancel").
				Value(&l.Confirmed),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("lock prompt cancelled: %w", err)
	}
	return nil
}

func runLock(cmd *cobra.Command, args []string) error {
	input, err := lockInputFromCommand(cmd, args)
	if err != nil {
		return usageError(err)
	}

	interactive := stdinIsTerminal()

	if interactive && (!input.complete() || !input.Confirmed) {
		if err := input.prompt(); err != nil {
			return failure(err)
		}
	}

	if !input.complete() {
		return usageError(errors.New("a serial number (or --management-id) and a six digit PIN are required"))
	}
	if !input.Confirmed {
		if interactive {
			fmt.Fprintln(cmd.ErrOrStderr(), "Lock cancelled.")
			return nil
		}
		return usageError(errors.New("refusing to lock without --yes when not running on a terminal"))
	}

	ctx, cleanup := common.WithInterrupt(commandContext(cmd))
	defer cleanup()

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	managementID := input.ManagementID
	if len(managementID) == 0 {
		managementID, err = client.LookupManagementID(ctx, input.Serial)
		if err != nil {
			return failure(fmt.Errorf("failed to find %s: %w", input.target(), err))
		}
		fmt.Fprintln(out, infoStyle.Render("Management ID: ")+managementID)
	}

	request := jamf.LockRequest{
		ManagementID: managementID,
		PIN:          input.PIN,
		ClientType:   input.ClientType,
	}
	if len(input.Message) > 0 {
		request.Message = &input.Message
	}

	result, err := client.SendDeviceLock(ctx, request)
	if err != nil {
		if errors.Is(err, jamf.ErrInsufficientPrivileges) {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("Hint: ")+privilegesHint)
		}
		return failure(fmt.Errorf("lock failed: %w", err))
	}

	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Lock sent to %s", input.target())))
	if len(result.CommandIDs) > 0 {
		fmt.Fprintf(out, "Command ID: %s\n", strings.Join(result.CommandIDs, ", "))
	}
	return nil
}
