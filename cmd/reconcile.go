// =============================================================================
// Rebate Reconciler - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs the whole pipeline.
//
// COMMAND USAGE:
//   reconciler reconcile [flags]
//
// FLAGS:
//   --group    : Reconcile only the named group(s); repeatable
//   --merge    : Keep rows of other groups already present in the outputs
//   --dry-run  : Read and match everything, write nothing
//
// PROCESSING PIPELINE:
//   1. Load configuration and resolve groups
//   2. Read and shape-check every guess and truth file
//   3. Match each group
//   4. Render both output tables (merging with existing files if asked)
//   5. Write customer output, then distributor output
//   6. Write the run summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rebate-reconciler/internal/output"
	"github.com/ginjaninja78/rebate-reconciler/internal/reconcile"
	"github.com/ginjaninja78/rebate-reconciler/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// onlyGroups restricts the run to the named groups.
var onlyGroups []string

// mergeOutputs keeps rows of groups outside the run.
var mergeOutputs bool

// dryRun simulates processing without writing output files.
var dryRun bool

// =============================================================================
// RECONCILE COMMAND DEFINITION
// =============================================================================

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match guess files against truth files and write the lookup tables",
	Long: `The reconcile command reads the guess and truth files of every configured
group, matches rows on their join key and writes the customer and distributor
lookup tables.

All groups are processed in one run and each output file is written once,
so no group's rows are lost to another group's run. Nothing is written
unless every input reads cleanly.

With --group the run is limited to the named groups. Add --merge to keep the
rows of every other group already present in the output files; without it
the outputs hold only the selected groups.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringArrayVar(
		&onlyGroups,
		"group",
		nil,
		"Reconcile only this group (repeatable)",
	)

	reconcileCmd.Flags().BoolVar(
		&mergeOutputs,
		"merge",
		false,
		"Merge into existing outputs instead of replacing them",
	)

	reconcileCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Simulate processing without writing output files",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runReconcile(ctx context.Context) error {
	a, err := loadApp(onlyGroups)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	log := a.logger

	if len(onlyGroups) > 0 && !mergeOutputs {
		log.Warn().Strs("groups", onlyGroups).Msg("partial run without --merge replaces rows of every other group")
	}

	// =========================================================================
	// STEP 1: READ AND MATCH
	// =========================================================================

	batch, err := reconcile.NewRunner(cfg, log).Run(ctx, a.groups)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: RENDER OUTPUTS
	// =========================================================================

	customerPath := cfg.CustomerOutputPath()
	distributorPath := cfg.DistributorOutputPath()

	tables := output.Build(batch.Results)
	if mergeOutputs {
		labels := make([]string, len(batch.Results))
		for i, r := range batch.Results {
			labels[i] = r.Label
		}
		for _, path := range []string{customerPath, distributorPath} {
			if !utils.FileExists(path) {
				log.Warn().Str("path", path).Msg("no existing output to merge into; starting empty")
			}
		}
		if err := tables.Merge(customerPath, distributorPath, labels, cfg.CSVSettings); err != nil {
			return fmt.Errorf("failed to merge outputs: %w", err)
		}
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUTS
	// =========================================================================

	if dryRun {
		log.Info().
			Int("customer_rows", len(tables.Customers.Rows)).
			Int("distributor_rows", len(tables.Distributors.Rows)).
			Msg("dry run: outputs not written")
	} else {
		if err := tables.WriteAll(customerPath, distributorPath, cfg.CSVSettings); err != nil {
			return err
		}
		log.Info().
			Str("customers", customerPath).
			Int("customer_rows", len(tables.Customers.Rows)).
			Str("distributors", distributorPath).
			Int("distributor_rows", len(tables.Distributors.Rows)).
			Msg("outputs written")
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	summary := buildSummary(batch, tables, customerPath, distributorPath)
	if cfg.SummaryDir != "" {
		path, err := utils.WriteSummaryLog(summary, cfg.SummaryDir)
		if err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("summary written")
	}

	printSummary(summary)
	return nil
}

// buildSummary collects the statistics of a batch.
func buildSummary(batch *reconcile.Batch, tables *output.Tables, customerPath, distributorPath string) utils.RunSummary {
	summary := utils.RunSummary{
		RunID:     batch.RunID,
		StartTime: batch.Started,
		EndTime:   time.Now(),
		DryRun:    dryRun,
		Merge:     mergeOutputs,
		Outputs: []utils.OutputSummary{
			{Path: customerPath, Rows: len(tables.Customers.Rows)},
			{Path: distributorPath, Rows: len(tables.Distributors.Rows)},
		},
	}

	for _, r := range batch.Results {
		summary.Groups = append(summary.Groups, utils.GroupSummary{
			Name:               r.Label,
			GuessFile:          r.GuessPath,
			TruthFile:          r.TruthPath,
			GuessRows:          r.GuessRows,
			TruthRows:          r.TruthRows,
			MatchedRows:        r.Match.Matched,
			UnmatchedRows:      len(r.Match.Unmatched),
			DuplicateTruthKeys: r.Match.DuplicateTruthKeys,
			Customers:          r.Match.Customers.Len(),
			Distributors:       r.Match.Distributors.Len(),
		})
	}

	return summary
}

// printSummary prints the short end-of-run report.
func printSummary(summary utils.RunSummary) {
	fmt.Println("=== Reconciliation Complete ===")
	for _, g := range summary.Groups {
		fmt.Printf("  %s: %d/%d guess row(s) matched, %d customer(s), %d distributor(s)\n",
			g.Name, g.MatchedRows, g.GuessRows, g.Customers, g.Distributors)
	}
	for _, o := range summary.Outputs {
		verb := "wrote"
		if summary.DryRun {
			verb = "would write"
		}
		fmt.Printf("  %s %d row(s) to %s\n", verb, o.Rows, o.Path)
	}
	fmt.Printf("Time elapsed: %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
}
