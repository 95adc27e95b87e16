// =============================================================================
// Rebate Reconciler - Tabular Reader
// =============================================================================
//
// This module reads guess and truth tables. A table is an ordered list of
// rows and a row is an ordered list of string fields; no column names are
// used, every consumer addresses fields by position.
//
// SOURCES:
//   - Delimited text (.csv, .txt, anything not .xlsx) via encoding/csv
//   - Excel workbooks (.xlsx) via excelize, see xlsx.go
//
// READING RULES:
//   - The configured number of header rows is discarded unconditionally
//   - Fields are kept verbatim: no trimming, no case folding
//   - Every remaining row is shape-checked before it is returned, so a short
//     row fails with its line number instead of an index fault downstream
//   - Malformed quoting fails the read with a *csv.ParseError naming the line
//   - Non-UTF-8 inputs are decoded with golang.org/x/text
//
// =============================================================================

package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/validation"
)

// ErrEmptyFile is returned when a file does not even hold its header rows.
var ErrEmptyFile = errors.New("file has no header row")

// =============================================================================
// TABLE DATA STRUCTURE
// =============================================================================

// Row is a single data row.
type Row struct {
	// Line is the 1-based line (or sheet row) the row starts on.
	Line int

	// Fields are the raw field values.
	Fields []string
}

// Table is a parsed input file with its header rows removed.
type Table struct {
	// SourceFile is the path the table was read from.
	SourceFile string

	// Rows are the data rows in file order.
	Rows []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// Read loads a table, choosing the source format from the file extension.
//
// PARAMETERS:
//   - filePath: The path to the input file.
//   - settings: Delimiter, quoting, header and encoding settings.
//   - validator: Shape checks applied to every data row. May be nil.
//
// RETURNS:
//   - The parsed table.
//   - An error wrapping fs.ErrNotExist for missing files, ErrEmptyFile for
//     files without a header, or validation.ErrRowShape for short rows.
func Read(filePath string, settings config.CSVSettings, validator *validation.Validator) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		return ReadXLSX(filePath, settings, validator)
	}
	return ReadCSV(filePath, settings, validator)
}

// ReadCSV reads a delimited text file.
func ReadCSV(filePath string, settings config.CSVSettings, validator *validation.Validator) (*Table, error) {
	// Open the file.
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	return parse(file, filePath, settings, validator)
}

// parse reads a table from an already opened stream.
func parse(r io.Reader, source string, settings config.CSVSettings, validator *validation.Validator) (*Table, error) {
	decoded, err := decode(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	table := &Table{SourceFile: source}

	// Discard header rows.
	for i := 0; i < settings.HeaderRows; i++ {
		if _, err := csvReader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%s: %w", source, ErrEmptyFile)
			}
			return nil, fmt.Errorf("%s: error reading header row %d: %w", source, i+1, err)
		}
	}

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read CSV: %w", source, err)
		}

		line, _ := csvReader.FieldPos(0)
		if validator != nil {
			if err := validator.Validate(source, line, record); err != nil {
				return nil, err
			}
		}

		table.Rows = append(table.Rows, Row{Line: line, Fields: record})
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = settings.Comma()

	// Allow variable number of fields per row; the validator decides.
	reader.FieldsPerRecord = -1

	// Strict quoting. A lazy reader folds every row after a stray quote
	// into one field, which would drop those rows without an error.
	reader.LazyQuotes = false

	// Join keys compare fields byte for byte, so leading space is data.
	reader.TrimLeadingSpace = false
}

// decode wraps the stream with a decoder for the configured encoding.
// UTF-8 input has a leading byte order mark removed.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "_", "-")) {
	case "", "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
