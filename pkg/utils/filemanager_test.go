package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "customer_mini.csv")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomicFailureLeavesDestination(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the destination makes the rename fail.
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := WriteFileAtomic(path, []byte("data"), 0o644)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
}

func TestGenerateFileName(t *testing.T) {
	name := GenerateFileName("summary_{date}_{run}.txt", map[string]string{"run": "abc"})
	assert.True(t, strings.HasPrefix(name, "summary_"+time.Now().Format("2006")))
	assert.True(t, strings.HasSuffix(name, "_abc.txt"))

	withUUID := GenerateFileName("{uuid}.txt", nil)
	assert.Len(t, withUUID, 36+4)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}

func TestWriteSummaryLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summaries")
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	path, err := WriteSummaryLog(RunSummary{
		RunID:     "0f1e2d3c-0000-0000-0000-000000000000",
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Merge:     true,
		Groups: []GroupSummary{{
			Name:               "Esmer Tile",
			GuessFile:          "data/rebates/1106/Esmer Tile.csv",
			TruthFile:          "data/truth/1106/full.csv",
			GuessRows:          10,
			TruthRows:          12,
			MatchedRows:        9,
			UnmatchedRows:      1,
			DuplicateTruthKeys: 2,
			Customers:          5,
			Distributors:       3,
		}},
		Outputs: []OutputSummary{{Path: "data/customer_mini.csv", Rows: 5}},
	}, dir)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "0f1e2d3c")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Esmer Tile")
	assert.Contains(t, text, "Output Mode:    merge")
	assert.Contains(t, text, "Duplicate Keys: 2")
	assert.Contains(t, text, "data/customer_mini.csv: 5 data row(s)")
	assert.Contains(t, text, "Duration:       2s")
}

func TestGenerateFileNameDoesNotReexpandValues(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GenerateFileName("{run}_{label}.txt", map[string]string{"run": "{label}", "label": "x"})
		assert.Equal(t, "{label}_x.txt", name)
	}
}
