package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfv/rulecheck/internal/rulepack"
)

func mustPack(t *testing.T, doc string) *rulepack.RulePack {
	t.Helper()
	pack, err := rulepack.Parse([]byte(doc), rulepack.FormatJSON)
	require.NoError(t, err)
	return pack
}

func mustEvaluate(t *testing.T, pack *rulepack.RulePack, src RowSource, opts Options) *Summary {
	t.Helper()
	summary, err := Evaluate(pack, src, opts)
	require.NoError(t, err)
	require.NotNil(t, summary)
	return summary
}

func TestEmptyRulePackYieldsNoIssues(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"required_columns": [], "numeric_rules": {}, "cross_field_rules": []}`)
	src := NewSliceSource([]string{"a", "b"},
		Row{"a": "1", "b": "x"},
		Row{"a": "", "b": ""},
		Row{},
		Row{"a": "abc"},
		Row{"b": "2"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, 5, summary.RowsChecked)
	assert.Equal(t, IssueCounts{}, summary.IssueCounts)
	assert.Empty(t, summary.SampleIssues)
	assert.Empty(t, summary.MissingColumns)
	assert.True(t, summary.Clean())
}

func TestNonNumericValueSkipsRangeCheck(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{
		"numeric_rules": {"price": {"min": 0, "max": 100}},
		"cross_field_rules": [{"name": "price_cap", "left": "price", "operator": "<=", "right": 50}]
	}`)
	src := NewSliceSource([]string{"price"}, Row{"price": "abc"})

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, 1, summary.IssueCounts.NonNumericValue)
	assert.Equal(t, 0, summary.IssueCounts.RangeViolation)
	assert.Equal(t, 0, summary.IssueCounts.CrossFieldViolation)

	require.Len(t, summary.SampleIssues, 1)
	is := summary.SampleIssues[0]
	assert.Equal(t, 0, is.Row)
	assert.Equal(t, NonNumericValue, is.Kind)
	assert.Equal(t, []string{"price"}, is.Columns)
	assert.Contains(t, is.Message, "abc")
}

func TestNumericBoundsAreInclusive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantRange int
		wantMsg   string
	}{
		{name: "upper bound", input: "100", wantRange: 0},
		{name: "lower bound", input: "0", wantRange: 0},
		{name: "inside", input: "42.5", wantRange: 0},
		{name: "just above", input: "100.01", wantRange: 1, wantMsg: "Value 100.01 in 'price' > max 100"},
		{name: "below", input: "-0.5", wantRange: 1, wantMsg: "Value -0.5 in 'price' < min 0"},
		{name: "padded", input: " 100 ", wantRange: 0},
	}

	pack := mustPack(t, `{"numeric_rules": {"price": {"min": 0, "max": 100}}}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := NewSliceSource([]string{"price"}, Row{"price": tt.input})
			summary := mustEvaluate(t, pack, src, DefaultOptions())
			assert.Equal(t, tt.wantRange, summary.IssueCounts.RangeViolation)
			assert.Equal(t, tt.wantRange, summary.IssueCounts.Total())
			if tt.wantMsg != "" {
				require.Len(t, summary.SampleIssues, 1)
				assert.Equal(t, tt.wantMsg, summary.SampleIssues[0].Message)
			}
		})
	}
}

func TestNumericRuleWithoutBoundsOnlyRequiresNumber(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"numeric_rules": {"qty": {}}}`)
	src := NewSliceSource([]string{"qty"},
		Row{"qty": "-1e9"},
		Row{"qty": "12"},
		Row{"qty": "twelve"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, IssueCounts{NonNumericValue: 1}, summary.IssueCounts)
	assert.Equal(t, 2, summary.SampleIssues[0].Row)
}

func TestCrossFieldComparison(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"cross_field_rules": [
		{"name": "end_after_start", "left": "end_date", "operator": ">=", "right": "start_date"}
	]}`)

	tests := []struct {
		name string
		row  Row
		want int
	}{
		{name: "end before start", row: Row{"start_date": "10", "end_date": "5"}, want: 1},
		{name: "end after start", row: Row{"start_date": "5", "end_date": "10"}, want: 0},
		{name: "equal", row: Row{"start_date": "7", "end_date": "7"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := NewSliceSource([]string{"start_date", "end_date"}, tt.row)
			summary := mustEvaluate(t, pack, src, DefaultOptions())
			assert.Equal(t, tt.want, summary.IssueCounts.CrossFieldViolation)
			assert.Equal(t, tt.want, summary.IssueCounts.Total())
		})
	}
}

func TestCrossFieldDefaultMessageAndColumns(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"cross_field_rules": [
		{"name": "end_after_start", "left": "end_date", "operator": ">=", "right": "start_date"}
	]}`)
	src := NewSliceSource([]string{"start_date", "end_date"}, Row{"start_date": "10", "end_date": "5"})

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	require.Len(t, summary.SampleIssues, 1)
	is := summary.SampleIssues[0]
	assert.Equal(t, CrossFieldViolation, is.Kind)
	assert.Equal(t, []string{"end_date", "start_date"}, is.Columns)
	assert.Equal(t, "end_after_start: end_date=5 >= start_date=10 does not hold", is.Message)
}

func TestCrossFieldMessageTemplate(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"cross_field_rules": [{
		"name": "end_after_start", "left": "end_date", "operator": ">=", "right": "start_date",
		"message": "{{.Rule}}: end {{.LeftValue}} is before start {{index .Row \"start_date\"}}"
	}]}`)
	src := NewSliceSource([]string{"start_date", "end_date"}, Row{"start_date": "10.0", "end_date": "5"})

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	require.Len(t, summary.SampleIssues, 1)
	assert.Equal(t, "end_after_start: end 5 is before start 10.0", summary.SampleIssues[0].Message)
}

func TestCrossFieldLiteralOperand(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"cross_field_rules": [
		{"name": "discount_cap", "left": "discount", "operator": "<", "right": 50}
	]}`)
	src := NewSliceSource([]string{"discount"},
		Row{"discount": "10"},
		Row{"discount": "50"},
		Row{"discount": "75"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, 2, summary.IssueCounts.CrossFieldViolation)
	require.Len(t, summary.SampleIssues, 2)
	assert.Equal(t, []string{"discount"}, summary.SampleIssues[0].Columns)
	assert.Equal(t, 1, summary.SampleIssues[0].Row)
	assert.Equal(t, 2, summary.SampleIssues[1].Row)
}

func TestCrossFieldUnusableOperandsSkipComparison(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"cross_field_rules": [
		{"name": "b_le_a", "left": "b", "operator": "<=", "right": "a"}
	]}`)
	src := NewSliceSource([]string{"a", "b"},
		Row{"a": "x", "b": ""},
		Row{"a": "1"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, IssueCounts{MissingColumn: 2, NonNumericValue: 1}, summary.IssueCounts)

	kinds := make([]Kind, 0, len(summary.SampleIssues))
	for _, is := range summary.SampleIssues {
		kinds = append(kinds, is.Kind)
	}
	// Left operand is reported before the right one.
	assert.Equal(t, []Kind{MissingColumn, NonNumericValue, MissingColumn}, kinds)
	assert.Equal(t, "Empty value in 'b'", summary.SampleIssues[0].Message)
	assert.Equal(t, "Missing value for column 'b'", summary.SampleIssues[2].Message)
}

func TestSampleCapBoundsSamplesNotCounts(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"numeric_rules": {"price": {}}}`)

	tests := []struct {
		name      string
		sampleCap int
	}{
		{name: "default cap", sampleCap: DefaultSampleCap},
		{name: "small cap", sampleCap: 3},
		{name: "no samples", sampleCap: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows := make([]Row, tt.sampleCap+50)
			for i := range rows {
				rows[i] = Row{"price": fmt.Sprintf("bad-%d", i)}
			}
			opts := DefaultOptions()
			opts.SampleCap = tt.sampleCap

			summary := mustEvaluate(t, pack, NewSliceSource([]string{"price"}, rows...), opts)
			assert.Len(t, summary.SampleIssues, tt.sampleCap)
			assert.Equal(t, tt.sampleCap+50, summary.IssueCounts.NonNumericValue)
			assert.Equal(t, tt.sampleCap+50, summary.RowsChecked)
			for i, is := range summary.SampleIssues {
				assert.Equal(t, i, is.Row, "samples keep the first issues in row order")
			}
		})
	}
}

func TestEvaluationIsDeterministic(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{
		"required_columns": ["id", "price", "region"],
		"numeric_rules": {"price": {"min": 0, "max": 100}, "qty": {"min": 1}},
		"cross_field_rules": [
			{"name": "qty_le_price", "left": "qty", "operator": "<=", "right": "price"},
			{"name": "price_ne_13", "left": "price", "operator": "!=", "right": 13}
		]
	}`)
	src := NewSliceSource([]string{"id", "price", "qty"},
		Row{"id": "1", "price": "13", "qty": "20"},
		Row{"id": "", "price": "abc", "qty": "0"},
		Row{"id": "3", "price": "150", "qty": ""},
		Row{"id": "4", "price": "50", "qty": "5"},
	)

	first := mustEvaluate(t, pack, src, DefaultOptions())
	src.Reset()
	second := mustEvaluate(t, pack, src, DefaultOptions())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"region"}, first.MissingColumns)
}

func TestMissingRequiredColumnReportedOnceAndPerRow(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{
		"required_columns": ["id", "price"],
		"numeric_rules": {"price": {"min": 0}}
	}`)
	src := NewSliceSource([]string{"id"},
		Row{"id": "1"},
		Row{"id": "2"},
		Row{"id": "3"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, []string{"price"}, summary.MissingColumns)
	assert.Equal(t, IssueCounts{MissingColumn: 3}, summary.IssueCounts)
	for i, is := range summary.SampleIssues {
		assert.Equal(t, i, is.Row)
		assert.Equal(t, []string{"price"}, is.Columns)
	}
	assert.False(t, summary.Clean())
}

func TestMissingRequiredColumnNotReferencedHasNoRowIssues(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"required_columns": ["id", "region"]}`)
	src := NewSliceSource([]string{"id"}, Row{"id": "1"}, Row{"id": "2"})

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, []string{"region"}, summary.MissingColumns)
	assert.Equal(t, 0, summary.IssueCounts.Total())
	assert.Equal(t, 2, summary.RowsChecked)
}

func TestTraversalOrderWithinRow(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{
		"required_columns": ["id"],
		"numeric_rules": {"price": {"max": 10}},
		"cross_field_rules": [{"name": "a_lt_b", "left": "a", "operator": "<", "right": "b"}]
	}`)
	src := NewSliceSource([]string{"id", "price", "a", "b"},
		Row{"id": "", "price": "11", "a": "2", "b": "1"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	kinds := make([]Kind, 0, len(summary.SampleIssues))
	for _, is := range summary.SampleIssues {
		kinds = append(kinds, is.Kind)
	}
	assert.Equal(t, []Kind{MissingColumn, RangeViolation, CrossFieldViolation}, kinds)
}

func TestCellIssuesReportedOncePerRow(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{
		"required_columns": ["price"],
		"numeric_rules": {"price": {"min": 0}},
		"cross_field_rules": [
			{"name": "r1", "left": "price", "operator": "<", "right": 100},
			{"name": "r2", "left": "price", "operator": ">", "right": -1}
		]
	}`)
	src := NewSliceSource([]string{"price"},
		Row{"price": ""},
		Row{"price": "n/a"},
	)

	summary := mustEvaluate(t, pack, src, DefaultOptions())
	assert.Equal(t, IssueCounts{MissingColumn: 1, NonNumericValue: 1}, summary.IssueCounts)
}

func TestTreatEmptyAsMissingOff(t *testing.T) {
	t.Parallel()

	pack := mustPack(t, `{"required_columns": ["price"], "numeric_rules": {"price": {}}}`)
	src := NewSliceSource([]string{"price"}, Row{"price": ""}, Row{})

	opts := DefaultOptions()
	opts.TreatEmptyAsMissing = false
	summary := mustEvaluate(t, pack, src, opts)

	// Blank cells are parsed and fail; absent cells are still missing.
	assert.Equal(t, 1, summary.IssueCounts.NonNumericValue)
	assert.Equal(t, 1, summary.IssueCounts.MissingColumn)
	assert.Equal(t, 1, summary.SampleIssues[1].Row)
}

func TestEngineReusableAcrossSources(t *testing.T) {
	t.Parallel()

	e, err := New(mustPack(t, `{"numeric_rules": {"x": {"max": 1}}}`), DefaultOptions())
	require.NoError(t, err)

	a, err := e.Evaluate(NewSliceSource([]string{"x"}, Row{"x": "2"}))
	require.NoError(t, err)
	b, err := e.Evaluate(NewSliceSource([]string{"x"}, Row{"x": "0"}, Row{"x": "0"}))
	require.NoError(t, err)

	assert.Equal(t, 1, a.IssueCounts.RangeViolation)
	assert.Equal(t, 1, a.RowsChecked)
	assert.Equal(t, 0, b.IssueCounts.Total())
	assert.Equal(t, 2, b.RowsChecked)
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(nil, DefaultOptions())
	require.Error(t, err)
	assert.True(t, rulepack.IsConfigurationError(err))

	_, err = New(mustPack(t, `{"required_columns": []}`), Options{SampleCap: -1})
	require.Error(t, err)
	assert.True(t, rulepack.IsConfigurationError(err))

	handBuilt := &rulepack.RulePack{CrossFieldRules: []rulepack.CrossFieldRule{
		{Name: "r", Left: "a", Operator: "=<", Right: rulepack.ColumnOperand("b")},
	}}
	_, err = New(handBuilt, DefaultOptions())
	require.Error(t, err)
	assert.True(t, rulepack.IsConfigurationError(err))
}

type failingSource struct {
	served int
	err    error
}

func (f *failingSource) Columns() []string { return []string{"x"} }

func (f *failingSource) Next() (Row, error) {
	if f.served == 2 {
		return nil, f.err
	}
	f.served++
	return Row{"x": "1"}, nil
}

func TestSourceErrorAbortsEvaluation(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")
	_, err := Evaluate(mustPack(t, `{"numeric_rules": {"x": {}}}`), &failingSource{err: boom}, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "reading row 2")
	assert.False(t, rulepack.IsConfigurationError(err))
}

func TestKindNames(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("Bogus")
	assert.False(t, ok)
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestZeroOptionsDifferFromDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Options{SampleCap: DefaultSampleCap, TreatEmptyAsMissing: true}, DefaultOptions())

	pack := mustPack(t, `{"numeric_rules": {"price": {}}}`)
	rows := []Row{{"price": ""}, {"price": "x"}}

	defaults := mustEvaluate(t, pack, NewSliceSource([]string{"price"}, rows...), DefaultOptions())
	assert.Equal(t, IssueCounts{MissingColumn: 1, NonNumericValue: 1}, defaults.IssueCounts)
	assert.Len(t, defaults.SampleIssues, 2)

	zero := mustEvaluate(t, pack, NewSliceSource([]string{"price"}, rows...), Options{})
	assert.Equal(t, IssueCounts{NonNumericValue: 2}, zero.IssueCounts)
	assert.Empty(t, zero.SampleIssues)
}
