// =============================================================================
// Rebate Reconciler - Groups Command
// =============================================================================
//
// This file defines the 'groups' command, which prints every enabled group
// in processing order together with the input files it resolves to.
//
// COMMAND USAGE:
//   reconciler groups
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// groupsCmd prints the resolved groups and the files each one reads.
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List configured groups and their input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(nil)
		if err != nil {
			return err
		}
		defer a.close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tID\tLABEL\tGUESS\tTRUTH")
		for _, g := range a.groups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				g.Name, g.ID, g.GroupLabel(), a.cfg.GuessFilePath(g), a.cfg.TruthFilePath(g))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
}
