package tabular

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/validation"
)

// ReadXLSX reads a worksheet of an Excel workbook as a table.
//
// The sheet is settings.Sheet, or the first sheet when unset. excelize drops
// trailing empty cells, so every row is padded to the widest row of the
// sheet before it is shape-checked. Fully empty rows are skipped, matching
// the blank-line handling of encoding/csv.
func ReadXLSX(filePath string, settings config.CSVSettings, validator *validation.Validator) (*Table, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filePath, err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", filePath)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet %q: %w", filePath, sheetName, err)
	}

	if len(rows) < settings.HeaderRows {
		return nil, fmt.Errorf("%s: %w", filePath, ErrEmptyFile)
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	table := &Table{SourceFile: filePath}
	for i := settings.HeaderRows; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}

		fields := make([]string, width)
		copy(fields, rows[i])

		// Sheet rows are 1-based.
		line := i + 1
		if validator != nil {
			if err := validator.Validate(filePath, line, fields); err != nil {
				return nil, err
			}
		}

		table.Rows = append(table.Rows, Row{Line: line, Fields: fields})
	}

	return table, nil
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
