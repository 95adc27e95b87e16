package tabular

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/validation"
)

func defaultSettings() config.CSVSettings {
	return config.DefaultMainConfig().CSVSettings
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestReadCSVDiscardsHeaderAndKeepsFieldsVerbatim(t *testing.T) {
	path := writeFile(t, "guess.csv", []byte(
		"h0,h1,h2,h3,h4,h5,h6,h7\r\n"+
			"x,A, y,\"Acme, Corp\",Acme Dist,B,w,C\r\n"+
			"x,a,y,beta,Beta Dist,b,w,c\n"))

	table, err := ReadCSV(path, defaultSettings(), validation.NewValidator(validation.Rules{MinColumns: 8}))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, []string{"x", "A", " y", "Acme, Corp", "Acme Dist", "B", "w", "C"}, table.Rows[0].Fields)
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, 3, table.Rows[1].Line)
	assert.Equal(t, path, table.SourceFile)
}

func TestReadCSVMultilineFieldLineNumbers(t *testing.T) {
	path := writeFile(t, "truth.csv", []byte(
		"header\n"+
			"0,1,2,\"multi\nline\",4,5,6,7\n"+
			"0,1,2,3,4,5,6\n"))

	_, err := ReadCSV(path, defaultSettings(), validation.NewValidator(validation.Rules{MinColumns: 8}))
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrRowShape)

	var rowErr *validation.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 4, rowErr.Line)
}

func TestReadCSVQuotedLineBreaksBecomeLF(t *testing.T) {
	path := writeFile(t, "guess.csv", []byte(
		"header\r\n"+
			"x,A,y,\"Acme\r\nCorp\",D,B,w,C\r\n"))

	table, err := ReadCSV(path, defaultSettings(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Acme\nCorp", table.Rows[0].Fields[3])
}

func TestReadCSVErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), "nope.csv"), defaultSettings(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.csv", nil)
		_, err := Read(path, defaultSettings(), nil)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("header only", func(t *testing.T) {
		path := writeFile(t, "header.csv", []byte("a,b,c\n"))
		table, err := Read(path, defaultSettings(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("text after closing quote", func(t *testing.T) {
		path := writeFile(t, "guess.csv", []byte(
			"c0,c1,c2,c3,c4,c5,c6,c7\n"+
				"x,A,y,Cust1,D1,B,w,\"C\"x\n"+
				"x,A,y,Cust2,D2,B,w,C\n"))

		table, err := Read(path, defaultSettings(), validation.NewValidator(validation.Rules{MinColumns: 8}))
		require.Error(t, err)
		assert.Nil(t, table)
		assert.ErrorIs(t, err, csv.ErrQuote)

		var parseErr *csv.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, 2, parseErr.Line)
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		path := writeFile(t, "x.csv", []byte("a\n"))
		settings := defaultSettings()
		settings.Encoding = "EBCDIC"
		_, err := Read(path, settings, nil)
		assert.Error(t, err)
	})
}

func TestReadCSVEncodings(t *testing.T) {
	t.Run("utf-8 bom", func(t *testing.T) {
		path := writeFile(t, "bom.csv", []byte("\xef\xbb\xbfh\nCaf\xc3\xa9\n"))
		settings := defaultSettings()
		settings.HeaderRows = 0
		table, err := Read(path, settings, nil)
		require.NoError(t, err)
		require.Equal(t, 2, table.Len())
		assert.Equal(t, "h", table.Rows[0].Fields[0])
		assert.Equal(t, "Café", table.Rows[1].Fields[0])
	})

	t.Run("windows-1252", func(t *testing.T) {
		path := writeFile(t, "cp.csv", []byte("h\nCaf\xe9\n"))
		settings := defaultSettings()
		settings.Encoding = "Windows-1252"
		table, err := Read(path, settings, nil)
		require.NoError(t, err)
		assert.Equal(t, "Café", table.Rows[0].Fields[0])
	})
}

func TestReadCSVDelimiter(t *testing.T) {
	path := writeFile(t, "pipe.txt", []byte("a|b\n1|2\n"))
	settings := defaultSettings()
	settings.Delimiter = "|"
	table, err := Read(path, settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, table.Rows[0].Fields)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guess.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"h0", "h1", "h2", "h3", "h4", "h5", "h6", "h7"},
		{"x", "A", "y", "Acme Corp", "Acme Dist", "B", "w", "C"},
		{},
		{"x", "A", "y", "Trailing", "Dist", "B", "w"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Read(path, defaultSettings(), validation.NewValidator(validation.Rules{MinColumns: 8}))
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, "Acme Corp", table.Rows[0].Fields[3])
	assert.Equal(t, 4, table.Rows[1].Line)
	assert.Len(t, table.Rows[1].Fields, 8)
	assert.Equal(t, "", table.Rows[1].Fields[7])

	settings := defaultSettings()
	settings.Sheet = "Missing"
	_, err = Read(path, settings, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Missing"))
}

func TestReadXLSXMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xlsx"), defaultSettings(), nil)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
