package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the release version; main may override it.
var Version = "0.1.0"

var build = "unknown"

// SetBuild records the commit or date main was built from.
func SetBuild(b string) {
	if b != "" {
		build = b
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chainkit version, build and Go runtime",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chainkit %s (%s) %s %s/%s\n",
			Version, build, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
