// Package engine evaluates a rule pack against a sequence of rows and
// aggregates the outcome into a Summary.
//
// Evaluation is a single sequential pass: for each row, required columns are
// checked first, then numeric rules, then cross-field rules, each group in
// rule pack order. That order decides which issues make it into the bounded
// sample, so it is part of the contract.
package engine

import (
	"errors"
	"fmt"
	"io"

	crdb "github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/bfv/rulecheck/internal/rulepack"
)

// DefaultSampleCap is the number of issues kept verbatim when no cap is given.
const DefaultSampleCap = 20

// Options tune one evaluation. The zero value keeps no samples and parses
// blank cells as values; start from DefaultOptions for the usual behavior.
type Options struct {
	// SampleCap bounds Summary.SampleIssues. Zero keeps no samples.
	SampleCap int
	// TreatEmptyAsMissing reports blank cells as MissingColumn rather than
	// trying to parse them.
	TreatEmptyAsMissing bool
}

// DefaultOptions returns a sample cap of 20 with blank cells treated as missing.
func DefaultOptions() Options {
	return Options{SampleCap: DefaultSampleCap, TreatEmptyAsMissing: true}
}

// Engine evaluates one validated rule pack. It holds no per-run state and
// may be reused for several row sources.
type Engine struct {
	pack *rulepack.RulePack
	opts Options
}

// New validates the pack and options. Any error is a configuration error.
func New(pack *rulepack.RulePack, opts Options) (*Engine, error) {
	if pack == nil {
		return nil, crdb.Mark(crdb.New("no rule pack given"), rulepack.ErrConfiguration)
	}
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	if opts.SampleCap < 0 {
		return nil, crdb.Mark(crdb.Newf("sample cap must be >= 0, got %d", opts.SampleCap), rulepack.ErrConfiguration)
	}
	return &Engine{pack: pack, opts: opts}, nil
}

// Evaluate runs a rule pack over src with the given options. opts is used as
// given: pass DefaultOptions() unless a field is meant to differ.
func Evaluate(pack *rulepack.RulePack, src RowSource, opts Options) (*Summary, error) {
	e, err := New(pack, opts)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(src)
}

// Evaluate consumes src to the end. Row data problems become issues; the
// only error returned is a failure of src itself.
func (e *Engine) Evaluate(src RowSource) (*Summary, error) {
	header := src.Columns()
	missing, checks := e.plan(header)
	log.Debug().
		Int("columns", len(header)).
		Strs("missingColumns", missing).
		Int("checks", len(checks)).
		Msg("evaluation started")

	acc := newAccumulator(e.opts.SampleCap, missing)
	for idx := 0; ; idx++ {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", idx, err)
		}

		acc.startRow()
		for _, c := range checks {
			for _, is := range c.apply(idx, row) {
				acc.record(is)
			}
		}
	}

	summary := acc.finish()
	log.Debug().
		Int("rows", summary.RowsChecked).
		Int("issues", summary.IssueCounts.Total()).
		Int("sampled", len(summary.SampleIssues)).
		Msg("evaluation complete")
	return summary, nil
}

// plan runs the schema check against the header and compiles the per-row
// checks in traversal order.
func (e *Engine) plan(header []string) ([]string, []check) {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	missing := []string{}
	checks := make([]check, 0, len(e.pack.RequiredColumns)+len(e.pack.NumericRules)+len(e.pack.CrossFieldRules))
	for _, col := range e.pack.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
			continue
		}
		checks = append(checks, requiredColumnCheck{column: col, treatEmptyAsMissing: e.opts.TreatEmptyAsMissing})
	}
	for _, rule := range e.pack.NumericRules {
		checks = append(checks, numericRangeCheck{rule: rule, treatEmptyAsMissing: e.opts.TreatEmptyAsMissing})
	}
	for _, rule := range e.pack.CrossFieldRules {
		checks = append(checks, crossFieldCheck{rule: rule, treatEmptyAsMissing: e.opts.TreatEmptyAsMissing})
	}
	return missing, checks
}
