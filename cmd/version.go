// =============================================================================
// Rebate Reconciler - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler version [--short]
//   reconciler --version
//
// Build metadata is stamped with ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/rebate-reconciler/cmd.Version=1.2.0' \
//     -X 'github.com/ginjaninja78/rebate-reconciler/cmd.Commit=$(git rev-parse --short HEAD)'"
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version is the release of the binary.
	Version = "dev"

	// Commit is the source revision the binary was built from.
	Commit = "unknown"

	// BuildDate is when the binary was built.
	BuildDate = "unknown"
)

// shortVersion prints only the version number.
var shortVersion bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout(), shortVersion)
	},
}

func printVersion(w io.Writer, short bool) {
	if short {
		fmt.Fprintln(w, Version)
		return
	}
	fmt.Fprintln(w, "Rebate Reconciler")
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Commit:     %s\n", Commit)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Go Version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version

	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version number")
}
