package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the pnlrisk CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pnlrisk version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Daily PnL attribution and Monte Carlo risk analysis")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
