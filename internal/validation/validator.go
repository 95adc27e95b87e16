// =============================================================================
// Rebate Reconciler - Row Shape Validation
// =============================================================================
//
// This module checks the shape of guess and truth rows before any field is
// projected out of them. Every failure carries the file, the 1-based line
// number and the offending column so that a malformed export can be fixed
// without guessing which row broke the run.
//
// CHECKS:
//   1. Column count: a row must reach the highest configured position
//   2. Required values (strict mode): configured positions must be non-empty
//
// ERROR HANDLING:
//   - Check returns the first problem of a single row
//   - Validator collects problems across rows, optionally stopping early
//   - Every RowError matches ErrRowShape with errors.Is
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRowShape is matched by every RowError.
var ErrRowShape = errors.New("malformed row")

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// RowError describes a single row that does not fit the configured layout.
type RowError struct {
	// File is the source file of the row.
	File string

	// Line is the 1-based line (or sheet row) where the row starts.
	Line int

	// Column is the 0-indexed position that failed, or -1 for count errors.
	Column int

	// Reason is a human-readable message.
	Reason string
}

// Error implements the error interface.
func (e *RowError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("%s: row %d, column %d: %s", e.File, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: row %d: %s", e.File, e.Line, e.Reason)
}

// Is makes errors.Is(err, ErrRowShape) true for every RowError.
func (e *RowError) Is(target error) bool {
	return target == ErrRowShape
}

// =============================================================================
// RULES
// =============================================================================

// Rules is the shape every row must have.
type Rules struct {
	// MinColumns is the minimum number of fields per row.
	MinColumns int

	// Required lists positions that must hold a non-empty value. Only
	// enforced when Strict is set.
	Required []int

	// Strict enables the non-empty checks.
	Strict bool
}

// Check validates a single row.
//
// PARAMETERS:
//   - file: The source file, for error context.
//   - line: The 1-based line number of the row.
//   - fields: The row's fields.
//
// RETURNS:
//   - nil, or a *RowError describing the first problem found.
func (r Rules) Check(file string, line int, fields []string) error {
	if len(fields) < r.MinColumns {
		return &RowError{
			File:   file,
			Line:   line,
			Column: -1,
			Reason: fmt.Sprintf("has %d column(s), need at least %d", len(fields), r.MinColumns),
		}
	}

	if !r.Strict {
		return nil
	}

	for _, pos := range r.Required {
		if pos >= len(fields) {
			return &RowError{File: file, Line: line, Column: pos, Reason: "missing required value"}
		}
		if strings.TrimSpace(fields[pos]) == "" {
			return &RowError{File: file, Line: line, Column: pos, Reason: "required value is empty"}
		}
	}

	return nil
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator collects row errors across a whole file.
type Validator struct {
	rules            Rules
	stopOnFirstError bool
	errors           []*RowError
	rowsValidated    int
}

// NewValidator creates a Validator that stops at the first error.
func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules, stopOnFirstError: true}
}

// NewCollectingValidator creates a Validator that records every bad row.
func NewCollectingValidator(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Validate checks one row. It returns a non-nil error when the caller should
// stop reading: immediately in stop-first mode, never in collecting mode.
func (v *Validator) Validate(file string, line int, fields []string) error {
	v.rowsValidated++

	err := v.rules.Check(file, line, fields)
	if err == nil {
		return nil
	}

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		v.errors = append(v.errors, rowErr)
	}
	if v.stopOnFirstError {
		return err
	}
	return nil
}

// Errors returns the recorded errors in row order.
func (v *Validator) Errors() []*RowError {
	return v.errors
}

// RowsValidated returns the number of rows seen.
func (v *Validator) RowsValidated() int {
	return v.rowsValidated
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats row errors for display or logging.
func FormatErrors(errs []*RowError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
