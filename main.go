// =============================================================================
// Rebate Reconciler - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Rebate Reconciler CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   reconciler reconcile     - Reconcile every configured group
//   reconciler validate      - Check every input file without writing
//   reconciler groups        - List configured groups and their input files
//   reconciler version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/             : CLI command definitions (Cobra)
//   - internal/        : Reading, validation, matching and output
//   - pkg/             : Shared file utilities
//   - configs/groups/  : One YAML file per reconciled group
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rebate-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
