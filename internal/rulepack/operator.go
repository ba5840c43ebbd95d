package rulepack

import (
	"strconv"
	"strings"
)

// Operator is a cross-field comparison operator.
type Operator string

const (
	OpLessEqual    Operator = "<="
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpGreater      Operator = ">"
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// Operators lists the supported operators in documentation order.
var Operators = []Operator{OpLessEqual, OpLess, OpGreaterEqual, OpGreater, OpEqual, OpNotEqual}

// ParseOperator returns the operator spelled by s. Surrounding whitespace is ignored.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.TrimSpace(s))
	for _, known := range Operators {
		if op == known {
			return op, true
		}
	}
	return "", false
}

// Holds reports whether "left op right" is true.
func (o Operator) Holds(left, right float64) bool {
	switch o {
	case OpLessEqual:
		return left <= right
	case OpLess:
		return left < right
	case OpGreaterEqual:
		return left >= right
	case OpGreater:
		return left > right
	case OpEqual:
		return left == right
	case OpNotEqual:
		return left != right
	}
	return false
}

func operatorList() string {
	names := make([]string, len(Operators))
	for i, op := range Operators {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

// Operand is the right-hand side of a cross-field rule: either another
// column of the same row or a numeric literal.
type Operand struct {
	Column  string
	Literal float64
	literal bool
}

// ColumnOperand references a column by name.
func ColumnOperand(column string) Operand {
	return Operand{Column: column}
}

// LiteralOperand is a fixed number.
func LiteralOperand(v float64) Operand {
	return Operand{Literal: v, literal: true}
}

// IsLiteral reports whether the operand is a numeric literal.
func (o Operand) IsLiteral() bool {
	return o.literal
}

// String returns the column name or the formatted literal.
func (o Operand) String() string {
	if o.literal {
		return FormatNumber(o.Literal)
	}
	return o.Column
}

// FormatNumber renders a number the way it appears in issue messages:
// shortest representation, no exponent for ordinary magnitudes.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
