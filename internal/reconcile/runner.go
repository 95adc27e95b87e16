// =============================================================================
// Rebate Reconciler - Batch Runner
// =============================================================================
//
// This module orchestrates a reconciliation run over every configured group.
//
// RECONCILIATION PIPELINE (per group):
//   1. Read the guess file
//   2. Read the truth file
//   3. Project join keys and match guess rows against the truth index
//   4. Hand the two mappings to the output stage
//
// BATCH SEMANTICS:
//   All inputs are read and validated before any matching happens. A single
//   missing or malformed input fails the whole run, so outputs are never
//   written from a partial set of groups. Reading is concurrent, bounded by
//   max_concurrency; results are always reported in configuration order.
//
// =============================================================================

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/tabular"
	"github.com/ginjaninja78/rebate-reconciler/internal/validation"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Inputs holds the parsed guess and truth tables of one group.
type Inputs struct {
	Group     config.GroupConfig
	GuessPath string
	TruthPath string
	Guess     *tabular.Table
	Truth     *tabular.Table
}

// GroupResult is the outcome of reconciling a single group.
type GroupResult struct {
	// Group is the configuration the result was produced from.
	Group config.GroupConfig

	// Label is the value of the "group" output column.
	Label string

	// GuessPath and TruthPath are the files the group was read from.
	GuessPath string
	TruthPath string

	// GuessRows and TruthRows are the data row counts of the inputs.
	GuessRows int
	TruthRows int

	// Match holds the mappings and match statistics.
	Match *MatchResult
}

// Batch is the outcome of a whole run.
type Batch struct {
	// RunID identifies the run in logs and summaries.
	RunID string

	// Started is when the run began.
	Started time.Time

	// Duration is the time taken to read and match every group.
	Duration time.Duration

	// Results are in group configuration order.
	Results []*GroupResult
}

// FileReport describes the shape check of a single input file.
type FileReport struct {
	Group string
	Role  string
	Path  string

	// Rows counts the data rows checked, up to a read error if one occurred.
	Rows   int
	Errors []*validation.RowError

	// Err is set when the file could not be read at all.
	Err error
}

// OK reports whether the file was readable and every row well formed.
func (r FileReport) OK() bool {
	return r.Err == nil && len(r.Errors) == 0
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner reads, validates and matches the inputs of configured groups.
type Runner struct {
	cfg       *config.MainConfig
	projector Projector
	logger    zerolog.Logger
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg *config.MainConfig, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		projector: NewProjector(cfg.Columns),
		logger:    logger,
	}
}

// rules returns the row shape required by the configured projection.
func (r *Runner) rules() validation.Rules {
	return validation.Rules{
		MinColumns: r.cfg.Columns.MinColumns(),
		Required:   r.projector.Required(),
		Strict:     r.cfg.Strict,
	}
}

// Run reconciles every group and returns the results in group order.
//
// PARAMETERS:
//   - ctx: Cancels outstanding reads.
//   - groups: The groups to reconcile, in output order.
//
// RETURNS:
//   - The batch of results.
//   - The first read or validation error; no partial batch is returned.
func (r *Runner) Run(ctx context.Context, groups []config.GroupConfig) (*Batch, error) {
	batch := &Batch{
		RunID:   uuid.New().String(),
		Started: time.Now(),
	}
	log := r.logger.With().Str("run_id", batch.RunID).Logger()

	log.Info().Int("groups", len(groups)).Msg("starting reconciliation")

	// =========================================================================
	// STEP 1: READ ALL INPUTS
	// =========================================================================

	inputs, err := r.Load(ctx, groups)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: MATCH EACH GROUP
	// =========================================================================

	batch.Results = make([]*GroupResult, 0, len(inputs))
	for _, in := range inputs {
		result := r.Reconcile(in)
		batch.Results = append(batch.Results, result)

		event := log.Info().
			Str("group", result.Label).
			Int("guess_rows", result.GuessRows).
			Int("truth_rows", result.TruthRows).
			Int("matched", result.Match.Matched).
			Int("unmatched", len(result.Match.Unmatched)).
			Int("customers", result.Match.Customers.Len()).
			Int("distributors", result.Match.Distributors.Len())
		event.Msg("group reconciled")

		if result.Match.DuplicateTruthKeys > 0 {
			log.Debug().
				Str("group", result.Label).
				Int("duplicates", result.Match.DuplicateTruthKeys).
				Msg("truth file repeats join keys; last row wins")
		}
	}

	batch.Duration = time.Since(batch.Started)
	return batch, nil
}

// Load reads and shape-checks the guess and truth files of every group.
// Reads run concurrently; the returned slice follows the order of groups.
func (r *Runner) Load(ctx context.Context, groups []config.GroupConfig) ([]*Inputs, error) {
	inputs := make([]*Inputs, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for i, group := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in, err := r.loadGroup(group)
			if err != nil {
				return fmt.Errorf("group %q: %w", group.Name, err)
			}
			inputs[i] = in
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// loadGroup reads the guess file first, then the truth file.
func (r *Runner) loadGroup(group config.GroupConfig) (*Inputs, error) {
	in := &Inputs{
		Group:     group,
		GuessPath: r.cfg.GuessFilePath(group),
		TruthPath: r.cfg.TruthFilePath(group),
	}

	guess, err := tabular.Read(in.GuessPath, r.cfg.CSVSettings, validation.NewValidator(r.rules()))
	if err != nil {
		return nil, fmt.Errorf("failed to read guess file: %w", err)
	}
	in.Guess = guess

	truth, err := tabular.Read(in.TruthPath, r.cfg.CSVSettings, validation.NewValidator(r.rules()))
	if err != nil {
		return nil, fmt.Errorf("failed to read truth file: %w", err)
	}
	in.Truth = truth

	r.logger.Debug().
		Str("group", group.Name).
		Str("guess", in.GuessPath).
		Str("truth", in.TruthPath).
		Int("guess_rows", guess.Len()).
		Int("truth_rows", truth.Len()).
		Msg("inputs read")

	return in, nil
}

// Reconcile matches the guess rows of one group against its truth rows.
func (r *Runner) Reconcile(in *Inputs) *GroupResult {
	guesses := r.projector.ProjectAll(in.Guess)
	truths := r.projector.ProjectAll(in.Truth)

	return &GroupResult{
		Group:     in.Group,
		Label:     in.Group.GroupLabel(),
		GuessPath: in.GuessPath,
		TruthPath: in.TruthPath,
		GuessRows: in.Guess.Len(),
		TruthRows: in.Truth.Len(),
		Match:     Match(guesses, truths),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Check reads every input and collects all malformed rows instead of
// stopping at the first one. Nothing is matched.
func (r *Runner) Check(groups []config.GroupConfig) []FileReport {
	reports := make([]FileReport, 0, 2*len(groups))

	for _, group := range groups {
		files := []struct{ role, path string }{
			{"guess", r.cfg.GuessFilePath(group)},
			{"truth", r.cfg.TruthFilePath(group)},
		}
		for _, f := range files {
			report := FileReport{Group: group.Name, Role: f.role, Path: f.path}

			validator := validation.NewCollectingValidator(r.rules())
			if _, err := tabular.Read(f.path, r.cfg.CSVSettings, validator); err != nil {
				report.Err = err
			}
			report.Rows = validator.RowsValidated()
			report.Errors = validator.Errors()

			reports = append(reports, report)
		}
	}

	return reports
}
