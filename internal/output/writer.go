// =============================================================================
// Rebate Reconciler - Output Writer
// =============================================================================
//
// This module renders the customer and distributor lookup tables and writes
// them to their shared output files.
//
// OUTPUT FORMAT:
//   customer_mini.csv:    group, customerName, fuseId
//   distributor_mini.csv: group, fuzzyName, trueName
//
//   One row per mapping entry, in mapping insertion order, every row
//   prefixed with the group label. Groups appear in configuration order.
//
// LOOKUP:
//   A written table is queried by (group, key): the first matching row wins.
//   Answers for unknown keys are appended and the file is rewritten.
//
// WRITE MODES:
//   - Overwrite: the file holds exactly the rows of the current run
//   - Merge: rows of groups outside the current run are carried over from
//     the existing file; rows of groups in the run are replaced
//
//   Both tables are rendered in memory before either file is touched, and
//   each file is replaced atomically.
//
// =============================================================================

package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/reconcile"
	"github.com/ginjaninja78/rebate-reconciler/pkg/utils"
)

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// CustomerHeader is the header row of the customer output.
var CustomerHeader = []string{"group", "customerName", "fuseId"}

// DistributorHeader is the header row of the distributor output.
var DistributorHeader = []string{"group", "fuzzyName", "trueName"}

// Table is an output table: a fixed header followed by (group, key, value)
// rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable creates an empty table with the given header.
func NewTable(header []string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// AppendMapping adds one row per mapping entry, prefixed with label.
func (t *Table) AppendMapping(label string, m *reconcile.Mapping) {
	for _, e := range m.Entries() {
		t.Rows = append(t.Rows, []string{label, e.Key, e.Value})
	}
}

// DropGroups removes every row whose group column is in labels.
func (t *Table) DropGroups(labels []string) {
	t.Rows = slices.DeleteFunc(t.Rows, func(row []string) bool {
		return len(row) > 0 && slices.Contains(labels, row[0])
	})
}

// Lookup returns the value of the first row whose group and key columns
// equal group and key. Later duplicates are never consulted.
func (t *Table) Lookup(group, key string) (string, bool) {
	for _, row := range t.Rows {
		if len(row) == 3 && row[0] == group && row[1] == key {
			return row[2], true
		}
	}
	return "", false
}

// Answer records a value for a key that Lookup could not resolve. The row is
// appended, so an existing row for the same key keeps precedence.
func (t *Table) Answer(group, key, value string) {
	t.Rows = append(t.Rows, []string{group, key, value})
}

// Encode serialises the table with the configured delimiter and line ending.
func (t *Table) Encode(settings config.CSVSettings) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	w.Comma = settings.Comma()
	w.UseCRLF = settings.UseCRLF()

	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	return buf.Bytes(), nil
}

// =============================================================================
// BUILDING
// =============================================================================

// Tables holds both output tables of a run.
type Tables struct {
	Customers    *Table
	Distributors *Table
}

// Build renders the mappings of every group result into the two tables.
func Build(results []*reconcile.GroupResult) *Tables {
	tables := &Tables{
		Customers:    NewTable(CustomerHeader),
		Distributors: NewTable(DistributorHeader),
	}
	for _, r := range results {
		tables.Customers.AppendMapping(r.Label, r.Match.Customers)
		tables.Distributors.AppendMapping(r.Label, r.Match.Distributors)
	}
	return tables
}

// Merge carries over rows of groups that are not part of results from the
// existing output files. Carried rows come first, in their existing order.
func (ts *Tables) Merge(customerPath, distributorPath string, labels []string, settings config.CSVSettings) error {
	merge := func(t *Table, path string) error {
		existing, err := ReadTable(path, t.Header, settings)
		if err != nil {
			return err
		}
		existing.DropGroups(labels)
		t.Rows = append(existing.Rows, t.Rows...)
		return nil
	}

	if err := merge(ts.Customers, customerPath); err != nil {
		return err
	}
	return merge(ts.Distributors, distributorPath)
}

// =============================================================================
// READING AND WRITING
// =============================================================================

// ReadTable loads an existing output file. A missing file yields an empty
// table. The header must equal the expected one.
func ReadTable(path string, header []string, settings config.CSVSettings) (*Table, error) {
	table := NewTable(header)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = settings.Comma()
	r.FieldsPerRecord = len(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return table, nil
	}
	if !slices.Equal(records[0], header) {
		return nil, fmt.Errorf("%s: unexpected header %v, want %v", path, records[0], header)
	}

	table.Rows = records[1:]
	return table, nil
}

// Save atomically replaces path with the encoded table.
func (t *Table) Save(path string, settings config.CSVSettings) error {
	data, err := t.Encode(settings)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteAll writes the customer table first, then the distributor table.
// Both are encoded before the first write.
func (ts *Tables) WriteAll(customerPath, distributorPath string, settings config.CSVSettings) error {
	customers, err := ts.Customers.Encode(settings)
	if err != nil {
		return err
	}
	distributors, err := ts.Distributors.Encode(settings)
	if err != nil {
		return err
	}

	if err := utils.WriteFileAtomic(customerPath, customers, 0o644); err != nil {
		return fmt.Errorf("failed to write customer output: %w", err)
	}
	if err := utils.WriteFileAtomic(distributorPath, distributors, 0o644); err != nil {
		return fmt.Errorf("failed to write distributor output: %w", err)
	}
	return nil
}
