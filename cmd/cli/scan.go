package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/matcher"
	"github.com/jamfkit/sgscan/internal/report"
	"github.com/jamfkit/sgscan/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find smart group criteria matching a pattern",
	Long: `Scan the criteria of every group of the included types and print the
criteria whose name or value matches the pattern.

Examples:
  sgscan scan --url https://example.jamfcloud.com --pattern "14"
  sgscan scan --pattern '^Mac1[45]' --regex --include computer --json
  sgscan scan --pattern vpn --jq '.[] | .group_name'`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	flags := scanCmd.Flags()

	flags.String("pattern", "", "Text or regular expression to search for")
	flags.Bool("regex", false, "Treat the pattern as a regular expression")
	flags.Bool("case-sensitive", false, "Match case exactly")
	flags.Bool("case-insensitive", false, "Ignore case (default)")
	flags.StringSlice("include", nil, "Group types to scan: computer, mobile, user (default all)")
	flags.Bool("json", false, "Print matches as JSON")
	flags.String("jq", "", "Filter the JSON matches with a jq expression")
	flags.Int("workers", 0, "Number of groups fetched concurrently")
	flags.Bool("smart-only", false, "Skip static groups")
	flags.Int("retries", 0, "Extra attempts for a group after a transient failure")
	flags.String("retry-delay", "", "Delay between attempts, e.g. 2s")
	flags.Bool("strict", false, "Fail the run when any group type or group could not be read")
	flags.Bool("progress", false, "Show progress on the terminal")

	scanCmd.MarkFlagsMutuallyExclusive("case-sensitive", "case-insensitive")
	scanCmd.MarkFlagsMutuallyExclusive("json", "jq")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	if len(cfg.Scan.Pattern) == 0 {
		return usageError(errors.New("--pattern is required"))
	}

	// Everything the user typed is checked before the first request.
	m, err := matcher.New(cfg.Scan.Pattern, cfg.Scan.Regex, cfg.Scan.CaseInsensitive)
	if err != nil {
		return failure(err)
	}

	var filter *report.Filter
	if len(cfg.Output.JQ) > 0 {
		filter, err = report.CompileFilter(cfg.Output.JQ)
		if err != nil {
			return failure(err)
		}
	}

	types, err := cfg.GroupTypes()
	if err != nil {
		return usageError(err)
	}

	ctx, cleanup := common.WithInterrupt(commandContext(cmd))
	defer cleanup()

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	groups, listFailures := scanner.ListAll(ctx, client, types)

	opts := cfg.ScannerOptions()
	display := attachProgress(cmd, "Scanning", &opts)

	result := scanner.New(client, opts).Scan(ctx, groups, m)
	display.Stop()

	out := cmd.OutOrStdout()
	switch {
	case filter != nil:
		err = filter.WriteMatches(out, result.Matches)
	case cfg.Output.JSON:
		err = report.WriteJSON(out, result.Matches)
	default:
		err = report.Table{Styled: isTerminal(out)}.Write(out, result.Matches)
	}
	if err != nil {
		return failure(fmt.Errorf("failed to write report: %w", err))
	}

	status := runStatus{
		listFailures: len(listFailures),
		failures:     len(result.Failures),
		completed:    result.Scanned,
		skipped:      result.Skipped,
	}
	status.print(cmd.ErrOrStderr(), "scanned", len(result.Matches))

	return status.err(errors.Join(joinListFailures(listFailures), result.Err()))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func joinListFailures(failures []scanner.ListFailure) error {
	errs := make([]error, 0, len(failures))
	for _, listFailure := range failures {
		errs = append(errs, listFailure)
	}
	return errors.Join(errs...)
}

// runStatus decides the outcome of a scan or export once the report has
// been written.
type runStatus struct {
	listFailures int
	failures     int
	completed    int
	skipped      int
}

func (s runStatus) hasFailures() bool {
	return s.listFailures > 0 || s.failures > 0
}

// err returns nil when the run completed. A run fails when it was
// interrupted, when errors left nothing completed, or when strict mode
// sees any failure.
func (s runStatus) err(cause error) error {
	switch {
	case s.skipped > 0:
		return failure(fmt.Errorf("interrupted: %d groups were not read", s.skipped))
	case s.hasFailures() && s.completed == 0:
		return failure(fmt.Errorf("no group could be read: %w", cause))
	case s.hasFailures() && cfg.Scan.Strict:
		return failure(fmt.Errorf("%d failures in strict mode: %w", s.listFailures+s.failures, cause))
	}
	return nil
}

// print writes the diagnostic summary to stderr.
func (s runStatus) print(w io.Writer, verb string, results int) {
	if !s.hasFailures() && s.skipped == 0 {
		return
	}

	summary := fmt.Sprintf("%s %d groups, %d results", verb, s.completed, results)
	if s.listFailures > 0 {
		summary += fmt.Sprintf(", %d group types could not be listed", s.listFailures)
	}
	if s.failures > 0 {
		summary += fmt.Sprintf(", %d groups failed", s.failures)
	}
	if s.skipped > 0 {
		summary += fmt.Sprintf(", %d groups skipped", s.skipped)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, warningStyle.Render("Warning: ")+summary)

	for _, entry := range cfg.Diagnostics() {
		fmt.Fprintln(w, "  - "+strings.TrimSpace(entry.Summary()))
	}
}
