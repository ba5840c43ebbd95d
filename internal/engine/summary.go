package engine

// Summary is the outcome of one evaluation pass. It is not modified after
// Evaluate returns it.
type Summary struct {
	RowsChecked int
	// MissingColumns lists required columns absent from the header, in
	// rule pack order.
	MissingColumns []string
	IssueCounts    IssueCounts
	// SampleIssues holds the first issues found, up to the sample cap.
	SampleIssues []Issue
}

// Clean reports whether the dataset passed every rule.
func (s *Summary) Clean() bool {
	return len(s.MissingColumns) == 0 && s.IssueCounts.Total() == 0
}

type cellKey struct {
	column string
	kind   Kind
}

// accumulator owns the Summary while a pass is running.
type accumulator struct {
	summary   Summary
	sampleCap int
	// seen suppresses repeat cell issues within the current row when several
	// rules read the same cell.
	seen map[cellKey]struct{}
}

func newAccumulator(sampleCap int, missing []string) *accumulator {
	return &accumulator{
		summary: Summary{
			MissingColumns: missing,
			SampleIssues:   make([]Issue, 0, min(sampleCap, 64)),
		},
		sampleCap: sampleCap,
		seen:      make(map[cellKey]struct{}),
	}
}

func (a *accumulator) startRow() {
	clear(a.seen)
	a.summary.RowsChecked++
}

func (a *accumulator) record(is Issue) {
	if (is.Kind == MissingColumn || is.Kind == NonNumericValue) && len(is.Columns) == 1 {
		key := cellKey{column: is.Columns[0], kind: is.Kind}
		if _, dup := a.seen[key]; dup {
			return
		}
		a.seen[key] = struct{}{}
	}

	a.summary.IssueCounts.add(is.Kind)
	if len(a.summary.SampleIssues) < a.sampleCap {
		a.summary.SampleIssues = append(a.summary.SampleIssues, is)
	}
}

func (a *accumulator) finish() *Summary {
	s := a.summary
	return &s
}
