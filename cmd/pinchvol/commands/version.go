package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchvol/internal/config"
)

// Version is set at build time with -ldflags "-X .../commands.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pinchvol %s\n", Version)
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "  os:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n", config.DefaultPath())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
