package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is set by build flags
	Version = "0.1.0"
	// GitCommit is set by build flags
	GitCommit = "dev"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lagwatch version: %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "git commit: %s\n", GitCommit)
		},
	}
}
