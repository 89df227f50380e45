package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamfkit/sgscan/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		version, gitCommit, ok := common.GetModuleBuildInfo()
		if !ok {
			fmt.Fprintln(out, "Failed to get version information")
			return
		}

		fmt.Fprintf(out, "sgscan %s", version)
		if gitCommit != "unknown" && len(gitCommit) > 0 {
			if len(gitCommit) > 8 {
				fmt.Fprintf(out, " (git: %s)", gitCommit[:8])
			} else {
				fmt.Fprintf(out, " (git: %s)", gitCommit)
			}
		}
		fmt.Fprintln(out)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
