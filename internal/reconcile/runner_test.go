package reconcile

import (
	"context"
	"encoding/csv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/validation"
)

const header = "c0,c1,c2,c3,c4,c5,c6,c7\n"

func writeData(t *testing.T, dataDir, rel string, rows ...string) {
	t.Helper()
	path := filepath.Join(dataDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(header+strings.Join(rows, "\n")+"\n"), 0o644))
}

func newTestConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	cfg := config.DefaultMainConfig()
	cfg.DataDir = t.TempDir()
	cfg.GroupsDir = filepath.Join(cfg.DataDir, "no-groups")
	return cfg
}

func TestRunnerRun(t *testing.T) {
	cfg := newTestConfig(t)
	writeData(t, cfg.DataDir, "rebates/1106/Esmer Tile.csv",
		"x,A,y,Acme Corp,Acme Dist,B,w,C",
		"x,Q,y,Nobody,No Dist,R,w,S",
	)
	writeData(t, cfg.DataDir, "truth/1106/full.csv",
		"t,A,t,FID-001,Acme Distribution Inc,B,t,C",
	)
	writeData(t, cfg.DataDir, "rebates/2200/Other Group.csv",
		"x,D,y,Delta,Delta Dist,E,w,F",
	)
	writeData(t, cfg.DataDir, "truth/2200/full.csv",
		"t,D,t,FID-900,Delta Distribution,E,t,F",
	)

	groups := []config.GroupConfig{{Name: "Esmer Tile", ID: "1106"}, {Name: "Other Group", ID: "2200"}}

	batch, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	assert.NotEmpty(t, batch.RunID)

	first := batch.Results[0]
	assert.Equal(t, "Esmer Tile", first.Label)
	assert.Equal(t, 2, first.GuessRows)
	assert.Equal(t, 1, first.TruthRows)
	assert.Equal(t, 1, first.Match.Matched)
	assert.Equal(t, []Entry{{"Acme Corp", "FID-001"}}, first.Match.Customers.Entries())
	assert.Equal(t, []Entry{{"Acme Dist", "Acme Distribution Inc"}}, first.Match.Distributors.Entries())
	require.Len(t, first.Match.Unmatched, 1)
	assert.Equal(t, 3, first.Match.Unmatched[0].Line)

	second := batch.Results[1]
	assert.Equal(t, "Other Group", second.Label)
	assert.Equal(t, []Entry{{"Delta", "FID-900"}}, second.Match.Customers.Entries())
}

func TestRunnerRunFailures(t *testing.T) {
	t.Run("missing truth file aborts", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeData(t, cfg.DataDir, "rebates/1/G.csv", "x,A,y,C,D,B,w,C")

		_, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background(), []config.GroupConfig{{Name: "G", ID: "1"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), "truth file")
	})

	t.Run("short row reports its line", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeData(t, cfg.DataDir, "rebates/1/G.csv", "x,A,y,C,D,B,w,C", "x,A,y,C,D,B,w")
		writeData(t, cfg.DataDir, "truth/1/full.csv", "x,A,y,C,D,B,w,C")

		_, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background(), []config.GroupConfig{{Name: "G", ID: "1"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrRowShape)
		assert.Contains(t, err.Error(), "row 3")
	})

	t.Run("strict rejects empty key field", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Strict = true
		writeData(t, cfg.DataDir, "rebates/1/G.csv", "x,,y,C,D,B,w,C")
		writeData(t, cfg.DataDir, "truth/1/full.csv", "x,A,y,C,D,B,w,C")

		_, err := NewRunner(cfg, zerolog.Nop()).Run(context.Background(), []config.GroupConfig{{Name: "G", ID: "1"}})
		assert.ErrorIs(t, err, validation.ErrRowShape)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cfg := newTestConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewRunner(cfg, zerolog.Nop()).Run(ctx, []config.GroupConfig{{Name: "G", ID: "1"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunnerCheckCollectsEveryBadRow(t *testing.T) {
	cfg := newTestConfig(t)
	writeData(t, cfg.DataDir, "rebates/1/G.csv", "x,A,y", "x,A,y,C,D,B,w,C", "x")
	writeData(t, cfg.DataDir, "truth/1/full.csv", "x,A,y,C,D,B,w,C")

	reports := NewRunner(cfg, zerolog.Nop()).Check([]config.GroupConfig{{Name: "G", ID: "1"}, {Name: "Missing", ID: "2"}})
	require.Len(t, reports, 4)

	guess := reports[0]
	assert.Equal(t, "guess", guess.Role)
	assert.False(t, guess.OK())
	require.Len(t, guess.Errors, 2)
	assert.Equal(t, 2, guess.Errors[0].Line)
	assert.Equal(t, 4, guess.Errors[1].Line)

	assert.True(t, reports[1].OK())
	assert.Equal(t, 1, reports[1].Rows)

	assert.ErrorIs(t, reports[2].Err, fs.ErrNotExist)
	assert.ErrorIs(t, reports[3].Err, fs.ErrNotExist)
}

func TestRunnerCheckCountsRowsBeforeParseError(t *testing.T) {
	cfg := newTestConfig(t)
	writeData(t, cfg.DataDir, "rebates/1/G.csv", "x,A,y,C,D,B,w,C", "x,A,y,C,D,B,w,\"C\"x", "x,A,y,C2,D2,B,w,C")
	writeData(t, cfg.DataDir, "truth/1/full.csv", "x,A,y,C,D,B,w,C")

	reports := NewRunner(cfg, zerolog.Nop()).Check([]config.GroupConfig{{Name: "G", ID: "1"}})
	require.Len(t, reports, 2)

	guess := reports[0]
	assert.False(t, guess.OK())
	assert.ErrorIs(t, guess.Err, csv.ErrQuote)
	assert.Equal(t, 1, guess.Rows)
	assert.Empty(t, guess.Errors)
}
