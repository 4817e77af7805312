package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/motoristapro/offerwatch/cmd/offerwatch/commands.version=..."
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "offerwatch", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
