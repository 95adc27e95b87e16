// =============================================================================
// Rebate Reconciler - Lookup Command
// =============================================================================
//
// This file defines the 'lookup' command, which queries a written lookup
// table the way rebate processing consumes it.
//
// COMMAND USAGE:
//   reconciler lookup customer    --group NAME CUSTOMER_NAME
//   reconciler lookup distributor --group NAME FUZZY_NAME
//
// FLAGS:
//   --group   : The value of the "group" column to search (required)
//   --answer  : Value to record when the key is not in the table
//   --ask     : Prompt for the value when the key is not in the table
//
// RESOLUTION:
//   1. The first row matching both group and key wins
//   2. Otherwise an answer (flag or prompt) is appended and the table saved
//   3. Otherwise the command fails
//
// =============================================================================

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rebate-reconciler/internal/output"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	lookupGroup  string
	lookupAnswer string
	lookupAsk    bool
)

// ErrNotInTable is returned when a key has no row and no answer was given.
var ErrNotInTable = errors.New("not in table")

// =============================================================================
// LOOKUP COMMAND DEFINITION
// =============================================================================

var lookupCmd = &cobra.Command{
	Use:   "lookup (customer|distributor) KEY",
	Short: "Resolve a customer or distributor name through the written lookup tables",
	Long: `The lookup command searches customer_mini.csv (customer name to fuse id) or
distributor_mini.csv (fuzzy name to true name) for the first row whose group
and key match exactly, and prints its value.

When the key is missing, --answer or --ask supplies the value. The answer is
appended to the table and the file is rewritten, so later lookups and merge
runs keep it.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"customer", "distributor"},

	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupGroup, "group", "", "Group column value to search (required)")
	lookupCmd.Flags().StringVar(&lookupAnswer, "answer", "", "Value to record when the key is missing")
	lookupCmd.Flags().BoolVar(&lookupAsk, "ask", false, "Prompt for the value when the key is missing")
	_ = lookupCmd.MarkFlagRequired("group")
}

// =============================================================================
// LOOKUP
// =============================================================================

func runLookup(in io.Reader, out io.Writer, kind, key string) error {
	a, err := loadConfig()
	if err != nil {
		return err
	}
	defer a.close()

	var path string
	var header []string
	switch kind {
	case "customer":
		path, header = a.cfg.CustomerOutputPath(), output.CustomerHeader
	case "distributor":
		path, header = a.cfg.DistributorOutputPath(), output.DistributorHeader
	default:
		return fmt.Errorf("unknown table %q: want customer or distributor", kind)
	}

	table, err := output.ReadTable(path, header, a.cfg.CSVSettings)
	if err != nil {
		return err
	}

	if value, ok := table.Lookup(lookupGroup, key); ok {
		fmt.Fprintln(out, value)
		return nil
	}

	answer := lookupAnswer
	if answer == "" && lookupAsk {
		fmt.Fprintf(out, "For '%s', the '%s' of '%s' is? ", lookupGroup, header[2], key)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		answer = strings.TrimRight(line, "\r\n")
	}
	if answer == "" {
		return fmt.Errorf("%s table has no %s %q for group %q: %w", kind, header[1], key, lookupGroup, ErrNotInTable)
	}

	table.Answer(lookupGroup, key, answer)
	if err := table.Save(path, a.cfg.CSVSettings); err != nil {
		return err
	}

	a.logger.Info().
		Str("table", kind).
		Str("group", lookupGroup).
		Str("key", key).
		Str("path", path).
		Msg("answer recorded")

	fmt.Fprintln(out, answer)
	return nil
}
