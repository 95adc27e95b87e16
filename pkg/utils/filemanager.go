// =============================================================================
// Rebate Reconciler - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the reconciler:
//   - Atomic file replacement (temp file + rename in the same directory)
//   - Directory management
//   - File naming utilities
//   - Run summary generation
//
// WRITE STRATEGY:
//   Output files are shared by every group, so a crash halfway through a
//   write must never leave a truncated table behind. WriteFileAtomic writes
//   the full content to a sibling temp file, syncs it and renames it over
//   the destination. Readers see either the old or the new file.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all given directories if they don't exist.
// Empty entries are ignored.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic replaces path with data.
//
// PARAMETERS:
//   - path: The destination file.
//   - data: The complete new content.
//   - perm: The permission bits of a newly created file.
//
// RETURNS:
//   - An error if any step fails. The destination is then left untouched
//     and the temp file is removed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := EnsureDirectories(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//   - params: Additional placeholder values, e.g. {"run": runID}.
//
// EXAMPLE:
//   format: "summary_{timestamp}_{run}.txt"
//   params: {"run": "a1b2c3d4"}
//   output: "summary_20240115_143022_a1b2c3d4.txt"
func GenerateFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}

	// Add custom params.
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	// One pass, so a substituted value is never expanded again.
	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, placeholder, value)
	}

	return strings.NewReplacer(pairs...).Replace(format)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a reconciliation run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Merge     bool
	Groups    []GroupSummary
	Outputs   []OutputSummary
}

// GroupSummary contains the statistics of one reconciled group.
type GroupSummary struct {
	Name               string
	GuessFile          string
	TruthFile          string
	GuessRows          int
	TruthRows          int
	MatchedRows        int
	UnmatchedRows      int
	DuplicateTruthKeys int
	Customers          int
	Distributors       int
}

// OutputSummary describes one written output table.
type OutputSummary struct {
	Path string
	Rows int
}

// WriteSummaryLog writes a run summary to a text file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	if err := EnsureDirectories(outputDir); err != nil {
		return "", err
	}

	runID := summary.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	summaryFileName := GenerateFileName("reconcile_summary_{timestamp}_{run}.txt", map[string]string{"run": runID})
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	mode := "overwrite"
	if summary.Merge {
		mode = "merge"
	}
	if summary.DryRun {
		mode += " (dry run)"
	}

	// Write header.
	fmt.Fprintf(writer, "Rebate Reconciler - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Output Mode:    %s\n"+
		"  Groups:         %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		mode,
		len(summary.Groups))

	if len(summary.Groups) > 0 {
		writer.WriteString("Groups:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, g := range summary.Groups {
			fmt.Fprintf(writer, "  Group:          %s\n", g.Name)
			fmt.Fprintf(writer, "  Guess File:     %s (%d rows)\n", g.GuessFile, g.GuessRows)
			fmt.Fprintf(writer, "  Truth File:     %s (%d rows)\n", g.TruthFile, g.TruthRows)
			fmt.Fprintf(writer, "  Matched Rows:   %d\n", g.MatchedRows)
			fmt.Fprintf(writer, "  Unmatched Rows: %d\n", g.UnmatchedRows)
			if g.DuplicateTruthKeys > 0 {
				fmt.Fprintf(writer, "  Duplicate Keys: %d\n", g.DuplicateTruthKeys)
			}
			fmt.Fprintf(writer, "  Customers:      %d\n", g.Customers)
			fmt.Fprintf(writer, "  Distributors:   %d\n\n", g.Distributors)
		}
	}

	if len(summary.Outputs) > 0 {
		writer.WriteString("Outputs:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, o := range summary.Outputs {
			fmt.Fprintf(writer, "  %s: %d data row(s)\n", o.Path, o.Rows)
		}
		writer.WriteString("\n")
	}

	// Write footer.
	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}
