package engine

import (
	"fmt"
	"strings"

	"github.com/bfv/rulecheck/internal/rulepack"
)

// check is one compiled rule applied to a single row. The three
// implementations below are the complete set of rule kinds.
type check interface {
	apply(idx int, row Row) []Issue
}

// requiredColumnCheck flags empty cells in a required column that the
// dataset does have. Columns absent from the header are reported once in
// Summary.MissingColumns instead.
type requiredColumnCheck struct {
	column              string
	treatEmptyAsMissing bool
}

func (c requiredColumnCheck) apply(idx int, row Row) []Issue {
	raw, ok := row[c.column]
	if ok && !(c.treatEmptyAsMissing && isBlank(raw)) {
		return nil
	}
	return []Issue{missingIssue(idx, c.column, ok)}
}

type numericRangeCheck struct {
	rule                rulepack.NumericRule
	treatEmptyAsMissing bool
}

func (c numericRangeCheck) apply(idx int, row Row) []Issue {
	v, issue := numericCell(idx, row, c.rule.Column, c.treatEmptyAsMissing)
	if issue != nil {
		return []Issue{*issue}
	}

	// Bounds are inclusive and min <= max, so at most one can be violated.
	switch {
	case c.rule.Min != nil && v < *c.rule.Min:
		return []Issue{rangeIssue(idx, c.rule.Column, v, "<", "min", *c.rule.Min)}
	case c.rule.Max != nil && v > *c.rule.Max:
		return []Issue{rangeIssue(idx, c.rule.Column, v, ">", "max", *c.rule.Max)}
	}
	return nil
}

func rangeIssue(idx int, column string, v float64, cmp, boundName string, bound float64) Issue {
	return Issue{
		Row:     idx,
		Kind:    RangeViolation,
		Columns: []string{column},
		Message: fmt.Sprintf("Value %s in '%s' %s %s %s",
			rulepack.FormatNumber(v), column, cmp, boundName, rulepack.FormatNumber(bound)),
	}
}

type crossFieldCheck struct {
	rule                rulepack.CrossFieldRule
	treatEmptyAsMissing bool
}

func (c crossFieldCheck) apply(idx int, row Row) []Issue {
	r := c.rule

	left, leftIssue := numericCell(idx, row, r.Left, c.treatEmptyAsMissing)
	right := r.Right.Literal
	var rightIssue *Issue
	if !r.Right.IsLiteral() {
		right, rightIssue = numericCell(idx, row, r.Right.Column, c.treatEmptyAsMissing)
	}

	// Unusable operands are reported and the comparison is skipped.
	if leftIssue != nil || rightIssue != nil {
		var issues []Issue
		for _, is := range []*Issue{leftIssue, rightIssue} {
			if is != nil {
				issues = append(issues, *is)
			}
		}
		return issues
	}

	if r.Operator.Holds(left, right) {
		return nil
	}

	columns := []string{r.Left}
	if !r.Right.IsLiteral() {
		columns = append(columns, r.Right.Column)
	}
	return []Issue{{
		Row:     idx,
		Kind:    CrossFieldViolation,
		Columns: columns,
		Message: r.Render(rulepack.MessageData{
			Rule:       r.Name,
			Left:       r.Left,
			Right:      r.Right.String(),
			Operator:   string(r.Operator),
			LeftValue:  rulepack.FormatNumber(left),
			RightValue: rulepack.FormatNumber(right),
			Row:        row,
		}),
	}}
}

// numericCell resolves a column to a number or to the issue explaining why
// it cannot be used.
func numericCell(idx int, row Row, column string, treatEmptyAsMissing bool) (float64, *Issue) {
	raw, ok := row[column]
	if !ok || (treatEmptyAsMissing && isBlank(raw)) {
		is := missingIssue(idx, column, ok)
		return 0, &is
	}
	v, err := ParseNumber(raw)
	if err != nil {
		return 0, &Issue{
			Row:     idx,
			Kind:    NonNumericValue,
			Columns: []string{column},
			Message: fmt.Sprintf("Non-numeric value in '%s': %s", column, raw),
		}
	}
	return v, nil
}

func missingIssue(idx int, column string, present bool) Issue {
	msg := fmt.Sprintf("Missing value for column '%s'", column)
	if present {
		msg = fmt.Sprintf("Empty value in '%s'", column)
	}
	return Issue{Row: idx, Kind: MissingColumn, Columns: []string{column}, Message: msg}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
