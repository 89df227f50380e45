package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/report"
	"github.com/jamfkit/sgscan/internal/scanner"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the criteria of every smart group as JSON",
	Long: `Export the site and criteria of every smart group of the included types.

Examples:
  sgscan export --include computer -o computer-groups.json
  sgscan export --jq '.[] | select(.site == "North") | .name'`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	flags := exportCmd.Flags()

	flags.StringP("output", "o", "", "Write the export to a file instead of stdout")
	flags.Bool("include-static", false, "Also export static groups")
	flags.StringSlice("include", nil, "Group types to export: computer, mobile, user (default all)")
	flags.String("jq", "", "Filter the export with a jq expression")
	flags.Int("workers", 0, "Number of groups fetched concurrently")
	flags.Int("retries", 0, "Extra attempts for a group after a transient failure")
	flags.String("retry-delay", "", "Delay between attempts, e.g. 2s")
	flags.Bool("strict", false, "Fail the run when any group type or group could not be read")
	flags.Bool("progress", false, "Show progress on the terminal")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	var (
		filter *report.Filter
		err    error
	)
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

	includeStatic, err := cmd.Flags().GetBool("include-static")
	if err != nil {
		return usageError(err)
	}

	output, err := cmd.Flags().GetString("output")
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
	opts.SmartOnly = !includeStatic
	display := attachProgress(cmd, "Exporting", &opts)

	result := scanner.New(client, opts).Export(ctx, client, groups)
	display.Stop()

	out := cmd.OutOrStdout()
	if len(output) > 0 {
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return failure(fmt.Errorf("failed to create %s: %w", output, err))
		}
		defer file.Close()
		out = file
	}

	if err := writeExport(out, filter, result); err != nil {
		return failure(fmt.Errorf("failed to write export: %w", err))
	}

	if len(output) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(
			fmt.Sprintf("Exported %d groups to %s", len(result.Details), output)))
	}

	status := runStatus{
		listFailures: len(listFailures),
		failures:     len(result.Failures),
		completed:    len(result.Details),
		skipped:      result.Skipped,
	}
	status.print(cmd.ErrOrStderr(), "exported", len(result.Details))

	return status.err(errors.Join(joinListFailures(listFailures), result.Err()))
}

func writeExport(w io.Writer, filter *report.Filter, result *scanner.ExportResult) error {
	if filter != nil {
		return filter.Write(w, report.Export(result.Details))
	}
	return report.WriteExport(w, result.Details)
}
