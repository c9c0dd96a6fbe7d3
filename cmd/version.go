package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/srcserve/srcserve/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "srcserve %s (%s/%s)\n",
			version.Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
