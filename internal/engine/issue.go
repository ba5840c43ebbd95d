package engine

import "fmt"

// Kind classifies an Issue.
type Kind int

const (
	MissingColumn Kind = iota
	NonNumericValue
	RangeViolation
	CrossFieldViolation
)

// Kinds lists every kind in report order.
var Kinds = []Kind{MissingColumn, NonNumericValue, RangeViolation, CrossFieldViolation}

func (k Kind) String() string {
	switch k {
	case MissingColumn:
		return "MissingColumn"
	case NonNumericValue:
		return "NonNumericValue"
	case RangeViolation:
		return "RangeViolation"
	case CrossFieldViolation:
		return "CrossFieldViolation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Issue is one data-quality problem found in one row.
type Issue struct {
	// Row is the 0-based position of the data row; the header is not counted.
	Row     int
	Kind    Kind
	Columns []string
	Message string
}

// IssueCounts holds the running total per kind.
type IssueCounts struct {
	MissingColumn       int
	NonNumericValue     int
	RangeViolation      int
	CrossFieldViolation int
}

// Get returns the count for k.
func (c IssueCounts) Get(k Kind) int {
	switch k {
	case MissingColumn:
		return c.MissingColumn
	case NonNumericValue:
		return c.NonNumericValue
	case RangeViolation:
		return c.RangeViolation
	case CrossFieldViolation:
		return c.CrossFieldViolation
	}
	return 0
}

// Total sums all kinds.
func (c IssueCounts) Total() int {
	return c.MissingColumn + c.NonNumericValue + c.RangeViolation + c.CrossFieldViolation
}

func (c *IssueCounts) add(k Kind) {
	switch k {
	case MissingColumn:
		c.MissingColumn++
	case NonNumericValue:
		c.NonNumericValue++
	case RangeViolation:
		c.RangeViolation++
	case CrossFieldViolation:
		c.CrossFieldViolation++
	}
}
